package middleware

import (
	"strconv"

	"github.com/m3rciful/achibot/core/metrics"

	tele "gopkg.in/telebot.v4"
)

// metricsContext wraps tele.Context to count sent messages and detect keyboard usage.
type metricsContext struct {
	tele.Context
	m *metrics.Metrics
}

func (mc metricsContext) incMessages(kind string, hasKB bool) {
	n, _ := mc.Get("messages").(int)
	mc.Set("messages", n+1)
	if hasKB {
		mc.Set("kb", true)
	}
	mc.m.MessagesSent.WithLabelValues(kind, strconv.FormatBool(hasKB)).Inc()
}

func hasKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

// Send proxies tele.Context.Send while updating message counters.
func (mc metricsContext) Send(what interface{}, opts ...interface{}) error {
	err := mc.Context.Send(what, opts...)
	if err == nil {
		mc.incMessages("send", hasKeyboard(opts))
	}
	return err
}

// Reply proxies tele.Context.Reply while updating message counters.
func (mc metricsContext) Reply(what interface{}, opts ...interface{}) error {
	err := mc.Context.Reply(what, opts...)
	if err == nil {
		mc.incMessages("send", hasKeyboard(opts))
	}
	return err
}

// Edit proxies tele.Context.Edit while updating message counters.
func (mc metricsContext) Edit(what interface{}, opts ...interface{}) error {
	err := mc.Context.Edit(what, opts...)
	if err == nil {
		mc.incMessages("edit", hasKeyboard(opts))
	}
	return err
}

// EditOrSend proxies tele.Context.EditOrSend while updating message counters.
func (mc metricsContext) EditOrSend(what interface{}, opts ...interface{}) error {
	err := mc.Context.EditOrSend(what, opts...)
	if err == nil {
		kind := "send"
		if mc.Callback() != nil {
			kind = "edit"
		}
		mc.incMessages(kind, hasKeyboard(opts))
	}
	return err
}

// EditOrReply proxies tele.Context.EditOrReply while updating message counters.
func (mc metricsContext) EditOrReply(what interface{}, opts ...interface{}) error {
	err := mc.Context.EditOrReply(what, opts...)
	if err == nil {
		kind := "send"
		if mc.Callback() != nil {
			kind = "edit"
		}
		mc.incMessages(kind, hasKeyboard(opts))
	}
	return err
}

// MessageMetrics instruments the context to count messages and keyboard
// usage per update and in the given collectors.
func MessageMetrics(m *metrics.Metrics) tele.MiddlewareFunc {
	if m == nil {
		m = metrics.Default
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set("messages", 0)
			c.Set("kb", false)
			return next(metricsContext{Context: c, m: m})
		}
	}
}

// GetCounters reads message count and keyboard presence flags from context.
func GetCounters(c tele.Context) (int, bool) {
	msgs, _ := c.Get("messages").(int)
	kb, _ := c.Get("kb").(bool)
	return msgs, kb
}
