// Package logtrace is a thin ctx-aware facade over zap. Every call takes the
// request context so correlation ids and origins set higher up the stack are
// attached to the record without threading a logger through each function.
package logtrace

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const (
	// CorrelationIDKey carries the correlation id in a context.
	CorrelationIDKey ctxKey = "correlation_id"
	// OriginKey carries the logical origin (e.g. "check", "install") in a context.
	OriginKey ctxKey = "origin"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// Setup initialises the global logger. Safe to call more than once; the last
// call wins. env "dev" selects the console encoder, anything else JSON.
func Setup(serviceName, env string, level zapcore.Level) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if env == "dev" {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(level))
	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).With(zap.String("service", serviceName))

	SetLogger(l)
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	logger = l
	mu.Unlock()
}

// ParseLevel maps a config string to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// CtxWithCorrelationID stores a correlation ID inside the context
func CtxWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// CtxWithOrigin stores the origin of the operation inside the context
func CtxWithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, OriginKey, origin)
}

// OriginFromContext returns the origin stored in ctx, or "" when absent.
func OriginFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(OriginKey).(string); ok {
		return v
	}
	return ""
}

func extractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if v, ok := ctx.Value(CorrelationIDKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// Debug logs a debug-level message
func Debug(ctx context.Context, message string, fields Fields) {
	logWithLevel(zapcore.DebugLevel, ctx, message, fields)
}

// Info logs an info-level message
func Info(ctx context.Context, message string, fields Fields) {
	logWithLevel(zapcore.InfoLevel, ctx, message, fields)
}

// Warn logs a warning-level message
func Warn(ctx context.Context, message string, fields Fields) {
	logWithLevel(zapcore.WarnLevel, ctx, message, fields)
}

// Error logs an error-level message
func Error(ctx context.Context, message string, fields Fields) {
	logWithLevel(zapcore.ErrorLevel, ctx, message, fields)
}

// Fatal logs a fatal-level message and exits
func Fatal(ctx context.Context, message string, fields Fields) {
	logWithLevel(zapcore.FatalLevel, ctx, message, fields)
}

func logWithLevel(level zapcore.Level, ctx context.Context, message string, fields Fields) {
	mu.RLock()
	l := logger
	mu.RUnlock()

	if !l.Core().Enabled(level) {
		return
	}

	zf := make([]zap.Field, 0, len(fields)+2)
	if cid := extractCorrelationID(ctx); cid != "unknown" {
		zf = append(zf, zap.String(FieldCorrelationID, cid))
	}
	if origin := OriginFromContext(ctx); origin != "" {
		zf = append(zf, zap.String(FieldOrigin, origin))
	}
	for k, v := range fields {
		switch val := v.(type) {
		case error:
			zf = append(zf, zap.String(k, val.Error()))
		case fmt.Stringer:
			zf = append(zf, zap.Stringer(k, val))
		default:
			zf = append(zf, zap.Any(k, val))
		}
	}

	if ce := l.Check(level, message); ce != nil {
		ce.Write(zf...)
	}
}
