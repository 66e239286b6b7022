package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the application logger. Development gets a human readable
// console encoder at debug level; everything else logs JSON at info.
func New(environment string) (*zap.Logger, error) {
	var cfg zap.Config
	switch environment {
	case "development":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "staging":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	default:
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
