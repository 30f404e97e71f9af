package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// NewTestLogger returns a debug-level logger recording into memory.
//
//	log, logs := logger.NewTestLogger()
//	svc.Run(log)
//	assert.Equal(t, 1, logs.FilterMessage("registered metrics").Len())
func NewTestLogger() (*CtxZapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &CtxZapLogger{
		base:   zap.New(core),
		module: "test",
	}, logs
}
