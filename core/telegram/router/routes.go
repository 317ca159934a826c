package router

import (
	"github.com/m3rciful/achibot/core/metrics"
	tg "github.com/m3rciful/achibot/core/telegram"
	"github.com/m3rciful/achibot/core/telegram/ui"
)

// RoutesOptions configures Routes.
type RoutesOptions struct {
	AdminID int64
	Metrics *metrics.Metrics
}

// Routes assembles command, callback and text routes for reg, answering
// unmatched updates through fb.
func Routes(reg *tg.Registry, fsm FSM, fb ui.FallbackProvider, opts RoutesOptions) []tg.Route {
	routes := CommandRoutes(reg, CommandRouteOptions{
		AdminID:       opts.AdminID,
		OnAdminReject: fb.AdminRejected(),
		Metrics:       opts.Metrics,
	})
	routes = append(routes, CallbackRoute(reg, CallbackOptions{
		NotFound: fb.UnknownCallback(),
		Metrics:  opts.Metrics,
	}))
	return append(routes, TextRoutes(fsm, reg, TextOptions{
		UnknownCommand:  fb.UnknownCommand(),
		UnknownDocument: fb.UnknownDocument(),
		Metrics:         opts.Metrics,
	})...)
}
