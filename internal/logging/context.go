package logging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	loggerKey
)

// GenerateRequestID creates a new request id: 16 hex characters.
func GenerateRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// WithRequestID returns a new context with the given request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// NewRequestContext derives a context carrying a fresh request ID.
func NewRequestContext(parent context.Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return WithRequestID(parent, GenerateRequestID())
}

// RequestIDFromContext extracts the request ID from the context.
// Returns empty string if no request ID is set.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithLogger attaches a logger to ctx. LoggerFromContext prefers it over
// the global logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the context's logger (or the global one)
// annotated with the request ID, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := Logger()
	if ctx == nil {
		return logger
	}
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
		logger = l
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		logger = logger.With(KeyRequestID, requestID)
	}
	return logger
}
