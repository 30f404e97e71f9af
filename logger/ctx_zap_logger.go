package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CtxZapLogger is a context-aware zap logger bound to one module.
// Obtain one through GetLogger or Manager.GetLogger.
//
//	log := logger.GetLogger("registrar")
//	log.DebugCtx(ctx, "registered metrics", zap.Int("specific", 3))
type CtxZapLogger struct {
	base   *zap.Logger
	module string
	config *ManagerConfig
}

// FromZap wraps an existing zap logger, for hosts that already own one.
func FromZap(base *zap.Logger, module string) *CtxZapLogger {
	return &CtxZapLogger{
		base:   base.With(zap.String("module", module)),
		module: module,
	}
}

// Nop returns a logger that discards everything.
func Nop() *CtxZapLogger {
	return &CtxZapLogger{base: zap.NewNop()}
}

func (l *CtxZapLogger) InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Info(msg, l.enrichFields(ctx, fields)...)
}

func (l *CtxZapLogger) Info(msg string, fields ...zap.Field) {
	l.InfoCtx(context.Background(), msg, fields...)
}

// ErrorCtx logs at error level and attaches a depth-limited stack when configured.
func (l *CtxZapLogger) ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	enriched := l.enrichFields(ctx, fields)

	if l.config != nil && shouldCaptureStacktrace("error", *l.config) {
		depth := l.config.StacktraceDepth
		if depth <= 0 {
			depth = 10
		}
		// skip CaptureStacktrace and ErrorCtx
		if stack := CaptureStacktrace(3, depth); stack != "" {
			enriched = append(enriched, zap.String("stack", stack))
		}
	}

	l.base.Error(msg, enriched...)
}

func (l *CtxZapLogger) Error(msg string, fields ...zap.Field) {
	l.ErrorCtx(context.Background(), msg, fields...)
}

func (l *CtxZapLogger) DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Debug(msg, l.enrichFields(ctx, fields)...)
}

func (l *CtxZapLogger) Debug(msg string, fields ...zap.Field) {
	l.DebugCtx(context.Background(), msg, fields...)
}

func (l *CtxZapLogger) WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Warn(msg, l.enrichFields(ctx, fields)...)
}

func (l *CtxZapLogger) Warn(msg string, fields ...zap.Field) {
	l.WarnCtx(context.Background(), msg, fields...)
}

// With returns a child logger carrying fields.
func (l *CtxZapLogger) With(fields ...zap.Field) *CtxZapLogger {
	return &CtxZapLogger{
		base:   l.base.With(fields...),
		module: l.module,
		config: l.config,
	}
}

// Module returns the module name the logger is bound to.
func (l *CtxZapLogger) Module() string {
	return l.module
}

// GetZapLogger exposes the underlying *zap.Logger for third-party integration.
func (l *CtxZapLogger) GetZapLogger() *zap.Logger {
	return l.base
}

// enrichFields prepends app_name and the trace id.
func (l *CtxZapLogger) enrichFields(ctx context.Context, fields []zap.Field) []zap.Field {
	if l.config == nil {
		return fields
	}

	enriched := make([]zap.Field, 0, len(fields)+2)
	enriched = append(enriched, zap.String("app_name", l.config.AppName))

	if l.config.EnableTraceID {
		if traceID := extractTraceIDFromContext(ctx, l.config); traceID != "" {
			fieldName := "trace_id"
			if l.config.TraceIDFieldName != "" {
				fieldName = l.config.TraceIDFieldName
			}
			enriched = append(enriched, zap.String(fieldName, traceID))
		}
	}

	return append(enriched, fields...)
}

// extractTraceIDFromContext prefers the active span, then the configured context key.
func extractTraceIDFromContext(ctx context.Context, cfg *ManagerConfig) string {
	if ctx == nil {
		return ""
	}
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}

	key := "trace_id"
	if cfg != nil && cfg.TraceIDKey != "" {
		key = cfg.TraceIDKey
	}
	if traceID, ok := ctx.Value(key).(string); ok {
		return traceID
	}
	return ""
}
