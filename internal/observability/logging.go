// Package observability provides structured logging, request
// correlation, and metrics/tracing setup shared by the orchestrator,
// CLI, and every internal package that logs.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/haasonsaas/sentry/internal/sanitize"
)

// Logger wraps slog with automatic secret/PII redaction of both the
// log message and every argument, so a stray ToolResult or error value
// passed to a log call can never leak a credential into the log stream.
type Logger struct {
	logger *slog.Logger
	san    *sanitize.Sanitizer
}

// LogConfig configures NewLogger.
type LogConfig struct {
	Level     string // debug, info, warn, error
	Format    string // json or text
	Output    io.Writer
	AddSource bool
}

type ctxKey string

const (
	RequestIDKey ctxKey = "request_id"
	TaskIDKey    ctxKey = "task_id"
)

// NewLogger builds a Logger. Unset fields default to info/json/stdout.
func NewLogger(cfg LogConfig) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}

	return &Logger{logger: slog.New(handler), san: sanitize.New(sanitize.DefaultConfig())}
}

// WithContext attaches request/task correlation fields found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	var attrs []any
	if v, ok := ctx.Value(RequestIDKey).(string); ok && v != "" {
		attrs = append(attrs, "request_id", v)
	}
	if v, ok := ctx.Value(TaskIDKey).(string); ok && v != "" {
		attrs = append(attrs, "task_id", v)
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{logger: l.logger.With(attrs...), san: l.san}
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) { l.log(ctx, slog.LevelDebug, msg, args...) }
func (l *Logger) Info(ctx context.Context, msg string, args ...any)  { l.log(ctx, slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(ctx context.Context, msg string, args ...any)  { l.log(ctx, slog.LevelWarn, msg, args...) }
func (l *Logger) Error(ctx context.Context, msg string, args ...any) { l.log(ctx, slog.LevelError, msg, args...) }

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	msg = l.san.Sanitize(msg).Text
	redacted := make([]any, len(args))
	for i, a := range args {
		redacted[i] = l.san.SanitizeValue(a)
	}
	l.logger.Log(ctx, level, msg, redacted...)
}

// Slog exposes the underlying *slog.Logger for libraries that want one
// directly (e.g. as a dependency of other internal packages).
func (l *Logger) Slog() *slog.Logger { return l.logger }
