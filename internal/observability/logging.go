// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

var (
	loggerMu     sync.RWMutex
	globalLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

// SetLogger replaces the logger used by the async helpers. Servers pass
// the request-aware middleware logger here at startup.
func SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	loggerMu.Lock()
	globalLogger = l
	loggerMu.Unlock()
}

// Logger returns the logger used by the async helpers.
func Logger() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return globalLogger
}

func fieldsToAttrs(base []any, fields map[string]interface{}) []any {
	for k, v := range fields {
		base = append(base, slog.Any(k, v))
	}
	return base
}

// LogAsyncOperationStart logs the start of a best-effort side effect.
func LogAsyncOperationStart(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := fieldsToAttrs([]any{
		slog.String("operation", operation),
		slog.String("type", "async_start"),
	}, fields)
	Logger().DebugContext(ctx, "async operation started", attrs...)
}

// LogAsyncOperationEnd logs the completion of a best-effort side effect.
func LogAsyncOperationEnd(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := fieldsToAttrs([]any{
		slog.String("operation", operation),
		slog.String("type", "async_end"),
	}, fields)
	Logger().InfoContext(ctx, "async operation completed", attrs...)
}

// LogAsyncOperationError logs a swallowed failure of a best-effort side effect.
func LogAsyncOperationError(ctx context.Context, operation string, err error, fields map[string]interface{}) {
	attrs := fieldsToAttrs([]any{
		slog.String("operation", operation),
		slog.String("type", "async_error"),
		slog.String("error", err.Error()),
	}, fields)
	Logger().ErrorContext(ctx, "async operation failed", attrs...)
}
