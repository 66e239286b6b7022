package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Link request re-request policies
const (
	RerequestBlock  = "block"
	RerequestReopen = "reopen"
)

// Badge award policies
const (
	BadgePolicyExact     = "exact"
	BadgePolicyThreshold = "threshold"
)

// Config holds application configuration
type Config struct {
	Environment string
	ServerPort  string

	DatabaseType string // sqlite, postgres, mysql
	DatabasePath string // sqlite only
	DatabaseURL  string // postgres/mysql DSN

	DBStartupRetryAttempts int
	DBStartupRetryDelay    time.Duration

	JWTSecret   string
	TokenExpiry time.Duration

	AllowedOrigins []string

	LinkRerequestPolicy string
	BadgeAwardPolicy    string

	SeedBadWords bool

	// Amazon SES; an empty SESFromEmail disables email
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string

	GoogleClientID       string
	GoogleClientSecret   string
	OAuthRedirectBaseURL string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Environment:            getEnv("APP_ENV", "production"),
		ServerPort:             getEnv("PORT", "5000"),
		DatabaseType:           getEnv("DB_TYPE", "sqlite"),
		DatabasePath:           getEnv("DB_PATH", "./kidquest.db"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		DBStartupRetryAttempts: getEnvInt("DB_STARTUP_RETRY_ATTEMPTS", 5),
		DBStartupRetryDelay:    time.Duration(getEnvInt("DB_STARTUP_RETRY_DELAY_MS", 2000)) * time.Millisecond,
		JWTSecret:              getEnv("JWT_SECRET", "change-me-in-production"),
		TokenExpiry:            getEnvDuration("TOKEN_EXPIRY", 7*24*time.Hour),
		AllowedOrigins:         getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		LinkRerequestPolicy:    getEnv("LINK_REREQUEST_POLICY", RerequestBlock),
		BadgeAwardPolicy:       getEnv("BADGE_AWARD_POLICY", BadgePolicyExact),
		SeedBadWords:           getEnv("SEED_BAD_WORDS", "true") == "true",
		AWSRegion:              getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:           getEnv("SES_FROM_EMAIL", ""),
		SESFromName:            getEnv("SES_FROM_NAME", "Kid Quest"),
		AppBaseURL:             getEnv("APP_BASE_URL", "http://localhost:5173"),
		GoogleClientID:         getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:     getEnv("GOOGLE_CLIENT_SECRET", ""),
		OAuthRedirectBaseURL:   getEnv("OAUTH_REDIRECT_BASE_URL", "http://localhost:5000"),
	}
}

// IsDevelopment reports whether the app runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
