package middleware

import (
	"log/slog"

	"github.com/m3rciful/achibot/core/logger"
	tghelpers "github.com/m3rciful/achibot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions configures AdminOnlyMiddleware. A zero AdminID means no one
// is admin.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// IsAdmin reports whether the sender is the configured admin.
func (o AdminOptions) IsAdmin(c tele.Context) bool {
	u := c.Sender()
	return o.AdminID != 0 && u != nil && u.ID == o.AdminID
}

// AdminOnlyMiddleware passes only the admin's updates to next; others get
// OnReject, when set.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.IsAdmin(c) {
				return next(c)
			}
			reason := "not_admin"
			if opts.AdminID == 0 {
				reason = "no_admin_configured"
			}
			logger.Warn(tghelpers.BuildContext(c), logger.CompTG, "admin.reject",
				slog.String("status", "fail"),
				slog.String("reason", reason),
			)
			if opts.OnReject == nil {
				return nil
			}
			return opts.OnReject(c)
		}
	}
}
