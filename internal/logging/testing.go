package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// NewTestLogger returns a logger backed by an observer core so tests can
// assert on emitted entries.
func NewTestLogger() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{
		zap:    zap.New(core),
		config: NewDefaultConfig(),
	}, logs
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
}
