package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"kidquest/internal/models"
	"kidquest/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const IdentityContextKey ContextKey = "identity"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	logger      *zap.Logger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		logger:      logger,
	}
}

// RequireAuth verifies the bearer token and attaches the caller's identity
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "No token provided"})
			return
		}

		identity, err := m.authService.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			if statusFor(err) == http.StatusUnauthorized {
				respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid token"})
				return
			}
			respondWithError(w, r, m.logger, http.StatusInternalServerError, "Authentication failed", "", err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RequireRole rejects callers whose role is not listed. It must run after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
				return
			}
			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondJSON(w, http.StatusForbidden, errorResponse{Error: "Access denied"})
		})
	}
}

// Logging logs each request once it has been served
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// The identity is attached further down the chain, so capture it on the way back
			var identity models.Identity
			r = r.WithContext(context.WithValue(r.Context(), identitySlotKey, &identity))

			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			if identity.UserID != 0 {
				fields = append(fields, zap.Int64("user_id", identity.UserID))
			}
			logger.Info("HTTP request", fields...)
		})
	}
}

const identitySlotKey ContextKey = "identity_slot"

// WithIdentity returns a context carrying the authenticated caller
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	if slot, ok := ctx.Value(identitySlotKey).(*models.Identity); ok {
		*slot = identity
	}
	return context.WithValue(ctx, IdentityContextKey, identity)
}

// IdentityFromContext retrieves the caller from the request context
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(IdentityContextKey).(models.Identity)
	return identity, ok
}
