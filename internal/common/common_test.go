package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("AI_TIMEOUT", "")

	cfg := LoadConfig()
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.LLM.MapTimeout)
	assert.Equal(t, 90*time.Second, cfg.Upload.Timeout)
	assert.False(t, cfg.AIConfigured())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_URL", "postgres://u:p@localhost:5432/prod")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AI_TIMEOUT", "5s")
	t.Setenv("AI_SAMPLE_ROWS", "3")
	t.Setenv("AI_ENABLED", "not-a-bool")

	cfg := LoadConfig()
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.LLM.MapTimeout)
	assert.Equal(t, 3, cfg.LLM.SampleRows)
	assert.True(t, cfg.LLM.Enabled)
	assert.True(t, cfg.AIConfigured())
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad driver", func(c *Config) { c.Database.Driver = "mongo" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"empty addr", func(c *Config) { c.Server.GRPCAddr = "" }},
		{"zero ai timeout", func(c *Config) { c.LLM.MapTimeout = 0 }},
		{"zero sample rows", func(c *Config) { c.LLM.SampleRows = 0 }},
		{"zero upload bytes", func(c *Config) { c.Upload.MaxBytes = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var appErr *AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, "CONFIG_ERROR", appErr.Code)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("decode: %w", ErrMalformedWorkbook), codes.InvalidArgument},
		{ErrUnsupportedFile, codes.InvalidArgument},
		{ErrUploadTooLarge, codes.ResourceExhausted},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
		{status.Error(codes.NotFound, "x"), codes.NotFound},
	}
	for _, tt := range tests {
		st, ok := status.FromError(ToStatus(tt.err))
		require.True(t, ok)
		assert.Equal(t, tt.code, st.Code(), tt.err.Error())
	}
	assert.NoError(t, ToStatus(nil))
}

func TestContextIDs(t *testing.T) {
	ctx := WithUploadID(WithRequestID(context.Background(), "r1"), "u1")
	assert.Equal(t, "r1", RequestIDFromContext(ctx))
	assert.Equal(t, "u1", UploadIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LogConfig{Level: "warn", Format: "json"})
	logger.Info("hidden")
	logger.Warn("pipeline.test", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"pipeline.test"`)
}
