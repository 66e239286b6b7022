package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kidquest/internal/avatar"
	"kidquest/internal/models"
	"kidquest/internal/repository"
	"kidquest/internal/security"
	"kidquest/internal/validation"
)

// AuthResult is returned by every successful sign-in
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthService handles registration, sign-in and token verification
type AuthService struct {
	userRepo *repository.UserRepository
	tokens   *security.TokenIssuer
	logger   *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, tokens *security.TokenIssuer, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a password account and signs it in.
// An unknown or empty avatar is replaced by a random one.
func (s *AuthService) Register(ctx context.Context, name, email, password, role, avatarTag string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidateRole(role); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, name, email, passwordHash, role, avatar.Resolve(avatarTag))
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.Int64("user_id", user.ID), zap.String("role", role))
	return s.issue(user)
}

// Login checks a password and signs the user in
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !security.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Authenticate verifies a bearer token and re-reads its user from the store.
// The returned identity carries the stored role, not the one in the token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.Identity, error) {
	userID, _, err := s.tokens.Parse(token)
	if err != nil {
		return models.Identity{}, err
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return models.Identity{}, err
	}
	if user == nil {
		return models.Identity{}, security.ErrInvalidToken
	}

	return models.Identity{UserID: user.ID, Role: user.Role}, nil
}

// Me returns the caller's account
func (s *AuthService) Me(ctx context.Context, caller models.Identity) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, withMessage(ErrNotFound, "user not found")
	}
	return user, nil
}

// OAuthLogin signs in through an identity provider. Existing accounts are matched by
// provider identity, then by email; otherwise a new account with role is created.
func (s *AuthService) OAuthLogin(ctx context.Context, provider, subject, email, name, role string) (*AuthResult, error) {
	if provider == "" || subject == "" {
		return nil, errors.New("missing oauth provider information")
	}
	email = normalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetUserByOAuth(ctx, provider, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}
	if user != nil {
		return s.issue(user)
	}

	existing, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		if existing.OAuthProvider != "" && existing.OAuthProvider != provider {
			return nil, ErrEmailTaken
		}
		if err := s.userRepo.LinkOAuthIdentity(ctx, existing.ID, provider, subject); err != nil {
			return nil, err
		}
		return s.issue(existing)
	}

	if err := validation.ValidateRole(role); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = strings.Split(email, "@")[0]
	}

	user, err = s.userRepo.CreateOAuthUser(ctx, name, email, role, avatar.Resolve(""), provider, subject)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered via oauth",
		zap.Int64("user_id", user.ID),
		zap.String("provider", provider),
		zap.String("role", role))
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}
