package app

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/infra/telemetry"
)

// LoggingConfig configures logging wiring.
type LoggingConfig struct {
	Logger *zap.Logger
}

// Logging bundles the application logger.
type Logging struct {
	Logger *zap.Logger
}

// NewLogging tags the base logger as core output.
func NewLogging(cfg LoggingConfig) Logging {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String(telemetry.FieldLogSource, telemetry.LogSourceCore)).Named("app")
	return Logging{Logger: logger}
}

// NewBaseLogger builds the production JSON logger at the given level.
// An empty level keeps the production default (info).
func NewBaseLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if raw := strings.TrimSpace(level); raw != "" {
		parsed, err := zap.ParseAtomicLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		cfg.Level = parsed
	}
	return cfg.Build()
}
