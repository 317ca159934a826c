package helpers

import (
	"context"

	"github.com/m3rciful/achibot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const ctxStoreKey = "logger_ctx"

// BuildContext returns the request context for c: request id, update, user
// and chat ids, and the telegram component logger. The first call derives
// it and later calls reuse the stored value.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(ctxStoreKey).(context.Context); ok {
		return ctx
	}
	updateID := c.Update().ID
	chatID, userID := ChatID(c), senderID(c)

	ctx := logger.WithRID(context.Background(), logger.BuildRID(updateID, chatID, userID))
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component(logger.CompTG))
	c.Set(ctxStoreKey, ctx)
	return ctx
}

// WithHandler tags the request context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	c.Set(ctxStoreKey, ctx)
	return ctx
}

// ChatID returns the id of the update's chat, or 0 for chatless updates
// such as inline queries.
func ChatID(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	return 0
}

func senderID(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}
