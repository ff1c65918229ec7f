// Package logger provides a structured, levelled logger built on log/slog.
//
// Logs go to stderr so CLI output on stdout stays clean. WithCtx returns the
// logger injected by the web UI middleware, already tagged with request_id:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order cancelled", "order_id", id)
//	// → time=... level=INFO msg="order cancelled" request_id=3f6c... order_id=66a1...
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/shashiranjanraj/aquaportal/config"
)

var L *slog.Logger

func init() {
	L = New(config.AppEnv(), config.LogLevel(), os.Stderr)
	slog.SetDefault(L)
}

// New builds a logger for env: JSON for production, text otherwise.
func New(env, level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	switch env {
	case "production", "prod":
		return slog.New(slog.NewJSONHandler(w, opts))
	default:
		return slog.New(slog.NewTextHandler(w, opts))
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ─────────────────────────────────────────────
// Context-aware logger
// ─────────────────────────────────────────────

type ctxKey struct{}

// WithCtx returns the *slog.Logger stored in ctx by InjectLogger, or the base
// logger when none is present.
func WithCtx(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a *slog.Logger (pre-tagged with request_id) into ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// Component returns the base logger tagged with a component name.
func Component(name string) *slog.Logger {
	return L.With("component", name)
}

// ─────────────────────────────────────────────
// Short-hand helpers (use base logger)
// ─────────────────────────────────────────────

// Debug logs at DEBUG level.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs at INFO level.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at WARN level.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at ERROR level.
func Error(msg string, args ...any) { L.Error(msg, args...) }
