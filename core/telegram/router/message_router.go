package router

import (
	"github.com/m3rciful/achibot/core/metrics"
	tg "github.com/m3rciful/achibot/core/telegram"
	tghelpers "github.com/m3rciful/achibot/core/telegram/helpers"
	"github.com/m3rciful/achibot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM defines the minimal interface for a per-chat conversation manager.
type FSM interface {
	InProgress(chatID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for text/document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownCommand  tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
	Metrics         *metrics.Metrics
}

// TextRoutes builds handlers for text and document routing. Text reaching
// these routes is either a command alias, an unregistered command, input for
// an active conversation, or free text.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	m := opts.Metrics
	handler := func(c tele.Context) error {
		cmd := commandName(c.Text())
		if cmd != "" && reg != nil {
			if key, def, ok := reg.LookupCommand(cmd); ok && def.Handler != nil && !def.AdminOnly {
				return dispatch(m, c, handlerName(key), def.Handler)
			}
		}

		switch {
		case fsmMgr != nil && fsmMgr.InProgress(tghelpers.ChatID(c)):
			return dispatch(m, c, "fsm", fsmMgr.ManagerHandler)
		case cmd != "" && opts.UnknownCommand != nil:
			return dispatch(m, c, "unknown_command", opts.UnknownCommand)
		case reg != nil && reg.TextFallback() != nil:
			return dispatch(m, c, "fallback", reg.TextFallback())
		case opts.UnknownText != nil:
			return dispatch(m, c, "unknown_text", opts.UnknownText)
		}
		skipped(m, c, "unknown_text")
		return nil
	}

	docHandler := func(c tele.Context) error {
		if opts.UnknownDocument == nil {
			skipped(m, c, "unexpected_document")
			return nil
		}
		return dispatch(m, c, "unexpected_document", opts.UnknownDocument)
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(handler)},
		{Endpoint: tele.OnDocument, Handler: wrap(docHandler)},
	}
}
