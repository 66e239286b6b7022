package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"kidquest/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	logger               *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		logger:               logger,
	}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required"`
	Avatar   string `json:"avatar"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register creates a password account and returns a token for it
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithServiceError(w, r, h.logger, err, "Registration failed")
		return
	}

	result, err := h.authService.Register(r.Context(), req.Name, req.Email, req.Password, req.Role, req.Avatar)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Registration failed")
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// Login checks credentials and returns a token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithServiceError(w, r, h.logger, err, "Login failed")
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Login failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Me returns the authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	user, err := h.authService.Me(r.Context(), caller)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to get user")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// TooManyRequests is served when a client exhausts its rate limit
func TooManyRequests(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests, please try again later"})
}
