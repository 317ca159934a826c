package middleware

import (
	"log/slog"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/m3rciful/achibot/core/logger"
	"github.com/m3rciful/achibot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/achibot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const (
	seenWindow = 10 * time.Second
	seenLimit  = 1024
)

// seenUpdates remembers update ids for a short window, oldest first, so a
// chain installed on several branches logs each update once.
type seenUpdates struct {
	mu  sync.Mutex
	ids *orderedmap.OrderedMap[int, time.Time]
}

func newSeenUpdates() *seenUpdates {
	return &seenUpdates{ids: orderedmap.New[int, time.Time]()}
}

// mark records id and reports whether it was already recorded.
func (s *seenUpdates) mark(id int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := s.ids.Oldest(); p != nil; p = s.ids.Oldest() {
		if now.Sub(p.Value) <= seenWindow && s.ids.Len() < seenLimit {
			break
		}
		s.ids.Delete(p.Key)
	}
	if _, ok := s.ids.Get(id); ok {
		return true
	}
	s.ids.Set(id, now)
	return false
}

var seen = newSeenUpdates()

// LoggerMiddleware prepares the request context and logs one sampled
// debug line per received update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		upd := c.Update()
		if logger.ShouldSampleDebug() && !seen.mark(upd.ID, time.Now()) {
			logger.LogEvent(ctx, logger.Component(logger.CompTG), slog.LevelDebug, "update.received",
				receivedAttrs(c, upd)...)
		}
		return next(c)
	}
}

func receivedAttrs(c tele.Context, upd tele.Update) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if u := c.Sender(); u != nil {
		if u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
		if u.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", u.LanguageCode))
		}
	}

	switch {
	case upd.Callback != nil:
		key, payload := callbacks.ParseCallbackData(upd.Callback)
		attrs = append(attrs,
			slog.String("cb_key", logger.SanitizeLimit(key, 128)),
			slog.String("payload", logger.SanitizeLimit(payload, 256)),
		)
	case upd.Query != nil:
		attrs = append(attrs, slog.String("query", logger.SanitizeLimit(upd.Query.Text, 256)))
	case upd.Message != nil:
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(c.Text(), 256)))
	}
	return attrs
}
