package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the process-wide logger. Development gets the human-readable
// console encoder, everything else logs JSON.
func New(environment string) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)

	if environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}

	return logger.Sugar(), nil
}
