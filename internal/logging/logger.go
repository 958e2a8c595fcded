package logging

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type requestIDKey struct{}

// Setup builds the process logger and installs it as the zap global.
func Setup(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// WithRequestID returns a copy of ctx carrying the request id.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID extracts the request id set by the HTTP middleware.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// Logger provides structured logging for services
type Logger struct {
	requestID string
	sugar     *zap.SugaredLogger
}

// NewLogger creates a logger with request context
func NewLogger(ctx context.Context) *Logger {
	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = "unknown"
	}
	return &Logger{
		requestID: requestID,
		sugar:     zap.L().Sugar().With("request_id", requestID),
	}
}

// LogError logs an error with context
func (l *Logger) LogError(operation string, err error) {
	l.sugar.Errorw("operation failed", "operation", operation, "error", err)
}

// LogErrorf logs a formatted error with context
func (l *Logger) LogErrorf(operation string, format string, args ...interface{}) {
	l.sugar.With("operation", operation).Errorf(format, args...)
}

// LogInfo logs an info message with context
func (l *Logger) LogInfo(operation string, message string) {
	l.sugar.Infow(message, "operation", operation)
}

// LogInfof logs a formatted info message with context
func (l *Logger) LogInfof(operation string, format string, args ...interface{}) {
	l.sugar.With("operation", operation).Infof(format, args...)
}

// LogWarn logs a warning with context
func (l *Logger) LogWarn(operation string, message string) {
	l.sugar.Warnw(message, "operation", operation)
}

// LogWarnf logs a formatted warning with context
func (l *Logger) LogWarnf(operation string, format string, args ...interface{}) {
	l.sugar.With("operation", operation).Warnf(format, args...)
}

// RequestIDValue returns the id this logger was created with.
func (l *Logger) RequestIDValue() string {
	return l.requestID
}
