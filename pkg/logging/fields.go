package logging

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// WithContext stores the request-scoped logger in the context so every
// layer below the middleware logs with the same base attributes.
func WithContext(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext returns the request-scoped logger, falling back to the
// process default when no middleware put one in.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}

// Domain identifiers

func Room(name string) slog.Attr {
	return slog.String("room", name)
}

func User(id string) slog.Attr {
	return slog.String("user_id", id)
}

func MessageID(id string) slog.Attr {
	return slog.String("message_id", id)
}

func OnlineCount(n int) slog.Attr {
	return slog.Int("online_count", n)
}

// Request / tracing

func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

func TraceID(id string) slog.Attr {
	return slog.String("trace_id", id)
}

// Error handling

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
