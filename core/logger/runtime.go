package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	keyLogger ctxKey = iota
	keyMeta
)

// Meta is the correlation data of one update. Every non-zero field is added
// to records logged with the carrying context.
type Meta struct {
	RID        string
	UpdateID   int
	UserID     int64
	ChatID     int64
	Handler    string
	Classifier string
}

// MetaFrom returns the metadata stored in ctx.
func MetaFrom(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(keyMeta).(Meta)
	return m
}

func withMeta(ctx context.Context, set func(*Meta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := MetaFrom(ctx)
	set(&m)
	return context.WithValue(ctx, keyMeta, m)
}

// WithLogger stores log in ctx for propagation across layers.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, keyLogger, log)
}

// FromContext returns the logger stored in ctx or the global one.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(keyLogger).(*slog.Logger); ok {
			return l
		}
	}
	return L
}

// WithRID attaches the request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return withMeta(ctx, func(m *Meta) { m.RID = rid })
}

// WithUpdateMeta attaches the update, user and chat identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withMeta(ctx, func(m *Meta) {
		m.UpdateID = updateID
		m.UserID = userID
		m.ChatID = chatID
	})
}

// WithHandler names the handler serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" && ctx != nil {
		return ctx
	}
	return withMeta(ctx, func(m *Meta) { m.Handler = handler })
}

// WithClassifier tags ctx with the classifier the chat is working in.
func WithClassifier(ctx context.Context, name string) context.Context {
	if name == "" && ctx != nil {
		return ctx
	}
	return withMeta(ctx, func(m *Meta) { m.Classifier = name })
}
