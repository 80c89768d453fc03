package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	chatIDKey    contextKey = "chat_id"
)

var logger *slog.Logger

// InitLogger initializes the global structured logger
func InitLogger(level, format string) {
	initLogger(os.Stdout, level, format)
}

func initLogger(w io.Writer, level, format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: level == "debug",
	}

	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// FromContext returns a logger with context values attached
func FromContext(ctx context.Context) *slog.Logger {
	base := logger
	if base == nil {
		base = slog.Default()
	}

	attrs := make([]any, 0, 2)
	if reqID, ok := ctx.Value(requestIDKey).(string); ok && reqID != "" {
		attrs = append(attrs, slog.String("request_id", reqID))
	}
	if chatID, ok := ctx.Value(chatIDKey).(string); ok && chatID != "" {
		attrs = append(attrs, slog.String("chat_id", chatID))
	}

	if len(attrs) > 0 {
		return base.With(attrs...)
	}
	return base
}

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithChatID adds the chat being operated on to context
func WithChatID(ctx context.Context, chatID string) context.Context {
	return context.WithValue(ctx, chatIDKey, chatID)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
