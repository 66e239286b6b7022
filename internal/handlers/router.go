package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"kidquest/internal/models"
	"kidquest/internal/security"
)

// RouterDeps bundles what the API router needs
type RouterDeps struct {
	DB             Pinger
	Middleware     *Middleware
	Auth           *AuthHandler
	Links          *LinkHandler
	Progress       *ProgressHandler
	Community      *CommunityHandler
	AuthLimiter    *security.RateLimiter
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter mounts every endpoint under /api
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Kid Quest API is running! Visit /api/health to check DB status.\n"))
	})

	limited := d.AuthLimiter.Middleware(TooManyRequests)
	parentOrTeacher := RequireRole(models.RoleParent, models.RoleTeacher)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", Health(d.DB))

		r.Route("/auth", func(r chi.Router) {
			r.With(limited).Post("/register", d.Auth.Register)
			r.With(limited).Post("/login", d.Auth.Login)
			r.Get("/google/start", d.Auth.StartOAuth("google"))
			r.Get("/google/callback", d.Auth.OAuthCallback("google"))
			r.With(d.Middleware.RequireAuth).Get("/me", d.Auth.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(d.Middleware.RequireAuth)

			r.Route("/parent-kid", func(r chi.Router) {
				r.Post("/request", d.Links.CreateRequest)
				r.Get("/requests", d.Links.ListRequests)
				r.Post("/respond/{requestId}", d.Links.Respond)

				r.Group(func(r chi.Router) {
					r.Use(RequireRole(models.RoleParent))
					r.Get("/my-kids", d.Links.MyKids)
					r.Get("/kid-progress/{kidId}", d.Links.KidProgress)
					r.Post("/unlink/{kidId}", d.Links.Unlink)
				})
			})

			r.Route("/progress", func(r chi.Router) {
				r.Get("/", d.Progress.GetProgress)
				r.Post("/update", d.Progress.UpdateProgress)
				r.With(parentOrTeacher).Get("/children", d.Progress.Children)
			})

			r.Route("/activities", func(r chi.Router) {
				r.Get("/", d.Progress.ListActivities)
				r.Post("/log", d.Progress.LogActivity)
			})

			r.Route("/community/posts", func(r chi.Router) {
				r.Get("/", d.Community.ListPosts)
				r.With(RequireRole(models.RoleKid)).Post("/", d.Community.CreatePost)
				r.With(parentOrTeacher).Get("/pending", d.Community.ListPending)
				r.With(parentOrTeacher).Patch("/{id}/approve", d.Community.ApprovePost)
				r.Delete("/{id}", d.Community.DeletePost)
				r.Post("/{id}/react", d.Community.React)
				r.Get("/{id}/reactions", d.Community.ListReactions)
			})
		})
	})

	return r
}
