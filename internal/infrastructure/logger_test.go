package infrastructure

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackdid/internal/config"
)

func TestTraceIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", GetTraceID(ctx))

	ctx = WithTraceID(ctx, "abc-123")
	assert.Equal(t, "abc-123", GetTraceID(ctx))
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.input), tt.input)
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("console output", func(t *testing.T) {
		logger, err := NewLogger(config.LoggingConfig{Level: "info", Output: "console"})
		require.NoError(t, err)
		require.NotNil(t, logger)
	})

	t.Run("file output creates directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "app.log")
		logger, err := NewLogger(config.LoggingConfig{Level: "debug", Output: "file", FilePath: path})
		require.NoError(t, err)

		logger.InfoContext(WithTraceID(context.Background(), "trace-1"), "hello")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"hello"`)
		assert.Contains(t, string(data), `"trace_id":"trace-1"`)
	})
}

func TestNewMetrics(t *testing.T) {
	metrics, err := NewMetrics("test")
	require.NoError(t, err)
	require.NotNil(t, metrics.HTTPHandler)
	require.NotNil(t, metrics.StacksBuilt)
	require.NotNil(t, metrics.BuildDuration)

	ctx := context.Background()
	metrics.StacksBuilt.Add(ctx, 1)
	metrics.RowsStacked.Add(ctx, 100)
	metrics.BuildDuration.Record(ctx, 0.25)

	assert.NoError(t, metrics.Shutdown(ctx))
}
