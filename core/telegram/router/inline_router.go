package router

import (
	"log/slog"

	"github.com/m3rciful/achibot/core/metrics"
	tg "github.com/m3rciful/achibot/core/telegram"
	"github.com/m3rciful/achibot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// InlineRoute binds an inline query handler. Empty queries are skipped.
func InlineRoute(h tele.HandlerFunc, m *metrics.Metrics) tg.Route {
	handler := func(c tele.Context) error {
		q := c.Query()
		if q == nil || q.Text == "" {
			skipped(m, c, "inline")
			return nil
		}
		return dispatch(m, c, "inline", h, slog.Int("query_len", len([]rune(q.Text))))
	}
	return tg.Route{
		Endpoint: tele.OnQuery,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
