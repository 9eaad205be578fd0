package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"console format", func(c *Config) { c.Format = "console" }, false},
		{"bad format", func(c *Config) { c.Format = "xml" }, true},
		{"negative skip", func(c *Config) { c.Caller.Skip = -1 }, true},
		{"empty field key", func(c *Config) { c.Fields = map[string]string{"": "x"} }, true},
		{"empty field value", func(c *Config) { c.Fields = map[string]string{"k": ""} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := NewLogger(cfg)
	require.Error(t, err)
}

func TestNewLogger_NilConfigUsesDefaults(t *testing.T) {
	logger, err := NewLogger(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ContextFields(ctx))

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithDocumentID(ctx, "doc-42")

	fields := ContextFields(ctx)
	require.Len(t, fields, 2)
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "doc-42", DocumentIDFromContext(ctx))
}

func TestLogger_EmitsContextFields(t *testing.T) {
	logger, logs := NewTestLogger()

	ctx := WithDocumentID(context.Background(), "doc-7")
	logger.Info(ctx, "processing started", zap.Int("progress", 10))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "processing started", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "doc-7", fields["document_id"])
	assert.Equal(t, int64(10), fields["progress"])
}

func TestLogger_NamedAndWith(t *testing.T) {
	logger, logs := NewTestLogger()

	child := logger.Named("pipeline").With(zap.String("worker", "w0"))
	child.Warn(context.Background(), "worker backoff")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "pipeline", entries[0].LoggerName)
	assert.Equal(t, "w0", entries[0].ContextMap()["worker"])
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}
