package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusdata/nexusdata/internal/config"
)

func TestSetupReturnsLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
		logger := Setup(config.ServerConfig{Port: 8000, LogLevel: level})
		require.NotNil(t, logger)
	}
}

func TestSetupFallsBackOnInvalidLevel(t *testing.T) {
	logger := Setup(config.ServerConfig{Port: 8000, LogLevel: "verbose"})
	require.NotNil(t, logger)

	// Fallback level is info: debug is suppressed, info is not.
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestSetupSetsDefaultLogger(t *testing.T) {
	logger := Setup(config.ServerConfig{Port: 8000, LogLevel: "debug"})
	assert.Equal(t, logger, slog.Default())
}
