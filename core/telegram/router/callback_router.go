package router

import (
	"log/slog"

	"github.com/m3rciful/achibot/core/metrics"
	tg "github.com/m3rciful/achibot/core/telegram"
	"github.com/m3rciful/achibot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/achibot/core/telegram/helpers"
	"github.com/m3rciful/achibot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
	Metrics  *metrics.Metrics
}

// CallbackRoute dispatches button presses by their unique key. Handlers may
// answer the query themselves via helpers.Answer; otherwise an empty answer
// is sent once the handler returns.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		defer func() { _ = tghelpers.Answer(c, "") }()

		key, _ := callbacks.ParseCallbackData(c.Callback())
		name := "callback." + handlerName(key)
		if h, ok := reg.GetCallback(key); ok && h != nil {
			return dispatch(opts.Metrics, c, name, h, slog.String("cb_key", key))
		}

		fallback := reg.CallbackNotFound()
		if fallback == nil {
			fallback = opts.NotFound
		}
		return dispatch(opts.Metrics, c, name, fallback,
			slog.String("cb_key", key),
			slog.String("reason", "not_found"),
		)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
