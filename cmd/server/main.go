package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"kidquest/internal/config"
	"kidquest/internal/database"
	"kidquest/internal/handlers"
	"kidquest/internal/logging"
	"kidquest/internal/repository"
	"kidquest/internal/security"
	"kidquest/internal/service"
)

const (
	stepDatabase   = "Connecting to database"
	stepMigrations = "Running migrations"
	stepBadWords   = "Seeding bad words filter"
	stepServices   = "Starting services"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Serve startup progress until the API is wired
	status := handlers.NewStartupStatus(stepDatabase, stepMigrations, stepBadWords, stepServices)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      status,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("addr", addr), zap.String("environment", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	status.SetCurrentStep(stepDatabase)
	db, err := database.InitializeWithConfig(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()
	status.CompleteStep(stepDatabase)

	status.SetCurrentStep(stepMigrations)
	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	logger.Info("Migrations completed successfully")
	status.CompleteStep(stepMigrations)

	status.SetCurrentStep(stepBadWords)
	if cfg.SeedBadWords {
		client := &http.Client{Timeout: 30 * time.Second}
		if err := db.SeedBadWords(ctx, client, database.BadWordsURL, logger); err != nil {
			logger.Warn("Failed to seed bad words filter", zap.Error(err))
		}
	}
	status.CompleteStep(stepBadWords)

	status.SetCurrentStep(stepServices)
	authLimiter := security.NewRateLimiter(10, time.Minute)
	defer authLimiter.Close()

	router, err := buildRouter(ctx, cfg, db, authLimiter, logger)
	if err != nil {
		logger.Fatal("Failed to start services", zap.Error(err))
	}
	status.CompleteStep(stepServices)
	status.MarkReady(router)
	logger.Info("Server ready", zap.String("addr", addr))

	<-ctx.Done()
	logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func buildRouter(ctx context.Context, cfg *config.Config, db *database.DB, authLimiter *security.RateLimiter, logger *zap.Logger) (http.Handler, error) {
	emailService, err := service.NewEmailService(ctx, service.EmailConfig{
		AWSRegion:  cfg.AWSRegion,
		FromEmail:  cfg.SESFromEmail,
		FromName:   cfg.SESFromName,
		AppBaseURL: cfg.AppBaseURL,
	}, logger)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	linkRepo := repository.NewLinkRequestRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	communityRepo := repository.NewCommunityRepository(db)
	badWordRepo := repository.NewBadWordRepository(db)

	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.TokenExpiry)
	authService := service.NewAuthService(userRepo, tokens, logger)
	linkService := service.NewLinkService(db, userRepo, linkRepo, emailService, cfg.LinkRerequestPolicy, logger)
	progressService := service.NewProgressService(db, progressRepo, badgeRepo, userRepo, activityRepo, cfg.BadgeAwardPolicy, logger)
	activityService := service.NewActivityService(activityRepo)
	communityService := service.NewCommunityService(db, communityRepo, userRepo, badWordRepo, logger)

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name: "google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
	}

	return handlers.NewRouter(handlers.RouterDeps{
		DB:             db,
		Middleware:     handlers.NewMiddleware(authService, logger),
		Auth:           handlers.NewAuthHandler(authService, oauthProviders, cfg.OAuthRedirectBaseURL, logger),
		Links:          handlers.NewLinkHandler(linkService, progressService, logger),
		Progress:       handlers.NewProgressHandler(progressService, activityService, logger),
		Community:      handlers.NewCommunityHandler(communityService, logger),
		AuthLimiter:    authLimiter,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	}), nil
}
