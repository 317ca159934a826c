package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/achibot/core/logger"
	"github.com/m3rciful/achibot/core/metrics"
	tghelpers "github.com/m3rciful/achibot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude lists update kinds that bypass the limit: message, callback,
	// inline_query or other.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// Metrics receives the dropped-update counter; nil uses metrics.Default.
	Metrics *metrics.Metrics
	// Now overrides the clock in tests.
	Now func() time.Time
}

// RateLimitMiddleware drops updates from a user that arrive less than
// Interval after the previous accepted one.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	m := opts.Metrics
	if m == nil {
		m = metrics.Default
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	lim := &limiter{interval: opts.Interval, last: make(map[int64]time.Time)}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			if _, skip := opts.Exclude[updateKind(c.Update())]; skip {
				return next(c)
			}
			if lim.allow(user.ID, now()) {
				return next(c)
			}

			m.RateLimited.Inc()
			logger.Warn(rateLimitContext(c), logger.CompTG, "tg.rate_limit",
				slog.String("status", "rate_limited"),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}

// limiter tracks the last accepted update per user.
type limiter struct {
	interval time.Duration

	mu     sync.Mutex
	last   map[int64]time.Time
	pruned time.Time
}

func (l *limiter) allow(id int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.pruned) > time.Minute {
		for k, t := range l.last {
			if now.Sub(t) >= l.interval {
				delete(l.last, k)
			}
		}
		l.pruned = now
	}
	if t, ok := l.last[id]; ok && now.Sub(t) < l.interval {
		return false
	}
	l.last[id] = now
	return true
}

func updateKind(u tele.Update) string {
	switch {
	case u.Callback != nil:
		return "callback"
	case u.Message != nil:
		return "message"
	case u.Query != nil:
		return "inline_query"
	default:
		return "other"
	}
}

// rateLimitContext runs before LoggerMiddleware, so ids come straight from
// the update.
func rateLimitContext(c tele.Context) context.Context {
	return logger.WithUpdateMeta(context.Background(), c.Update().ID, c.Sender().ID, tghelpers.ChatID(c))
}
