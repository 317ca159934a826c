package router

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/m3rciful/achibot/core/logger"
	"github.com/m3rciful/achibot/core/metrics"
	tg "github.com/m3rciful/achibot/core/telegram"
	"github.com/m3rciful/achibot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
	Metrics       *metrics.Metrics
}

// CommandRoutes binds every registered command, and each of its aliases,
// to the command handler behind recover, request logging and, for admin
// commands, the admin check. Routes come out sorted by endpoint.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	admin := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	cmds := reg.Commands()
	var routes []tg.Route
	for _, key := range slices.Sorted(maps.Keys(cmds)) {
		def := cmds[key]
		name, inner := handlerName(key), def.Handler
		var h tele.HandlerFunc = func(c tele.Context) error {
			return dispatch(opts.Metrics, c, name, inner)
		}
		if def.AdminOnly {
			h = admin(h)
		}
		h = middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
		for _, endpoint := range append([]string{key}, def.Aliases...) {
			routes = append(routes, tg.Route{Endpoint: endpoint, Handler: h})
		}
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(cmds)),
		slog.Int("routes", len(routes)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
