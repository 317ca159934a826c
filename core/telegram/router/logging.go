package router

import (
	"cmp"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/achibot/core/logger"
	"github.com/m3rciful/achibot/core/metrics"
	tghelpers "github.com/m3rciful/achibot/core/telegram/helpers"
	"github.com/m3rciful/achibot/core/telegram/middleware"
	"github.com/m3rciful/achibot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

const statusSkip = "skip"

// summary describes one handled update: one metrics sample and one
// handler.handled log line.
type summary struct {
	name   string
	status string
	start  time.Time
	extras []slog.Attr
}

// dispatch runs h under name and reports the result. A nil h is a no-op.
func dispatch(m *metrics.Metrics, c tele.Context, name string, h tele.HandlerFunc, extras ...slog.Attr) error {
	s := summary{name: name, start: time.Now(), extras: extras}
	tghelpers.WithHandler(c, name)
	var err error
	if h != nil {
		err = h(c)
	}
	s.report(m, c, err)
	return err
}

// skipped reports an update that no handler was run for.
func skipped(m *metrics.Metrics, c tele.Context, name string) {
	summary{name: name, status: statusSkip, start: time.Now()}.report(m, c, nil)
}

func (s summary) report(m *metrics.Metrics, c tele.Context, err error) {
	if m == nil {
		m = metrics.Default
	}
	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	status := cmp.Or(s.status, outcome)
	took := time.Since(s.start)
	m.Updates.WithLabelValues(s.name, status).Inc()
	m.HandlerDuration.WithLabelValues(s.name).Observe(took.Seconds())

	msgs, kb := middleware.GetCounters(c)
	attrs := append([]slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", took),
	}, s.extras...)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(netutil.Redact(err), 256)),
			slog.String("err_code", errorCode(err)),
			slog.String("err_kind", netutil.Kind(err)),
			slog.String("cause", s.name),
		)
	}
	ctx := tghelpers.WithHandler(c, s.name)
	logger.LogEvent(ctx, logger.Component(logger.CompTG), slog.LevelInfo, "handler.handled", attrs...)
}

// handlerName turns "/Some Cmd" into "some_cmd" for labels.
func handlerName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// errorCode prefers an explicit Code() anywhere in the chain and falls back
// to the error's type name.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}

// commandName extracts "/cmd" from "/cmd@bot payload". Non-commands yield "".
func commandName(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name, _, _ := strings.Cut(text, " ")
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name)
}
