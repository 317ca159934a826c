package telegram

import (
	coreconfig "github.com/m3rciful/achibot/core/config"
	"github.com/m3rciful/achibot/core/metrics"
	"github.com/m3rciful/achibot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares returns the global chain: recover, the optional rate
// limit, request logging and message metrics. A nil m reports to
// metrics.Default.
func DefaultMiddlewares(cfg *coreconfig.Config, m *metrics.Metrics, onLimited tele.HandlerFunc) []Middleware {
	chain := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}

	if cfg != nil && cfg.RateLimit.Interval() > 0 {
		chain = append(chain, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval:  cfg.RateLimit.Interval(),
				Exclude:   cfg.RateLimit.Excluded(),
				OnLimited: onLimited,
				Metrics:   m,
			}),
		})
	}

	return append(chain,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetrics(m)},
	)
}
