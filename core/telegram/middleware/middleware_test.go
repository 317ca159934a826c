package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/achibot/core/metrics"
)

type fakeContext struct {
	tele.Context
	user     *tele.User
	callback bool
	store    map[string]any
	sent     []any
}

func newFake(userID int64) *fakeContext {
	return &fakeContext{user: &tele.User{ID: userID}, store: map[string]any{}}
}

func (f *fakeContext) Sender() *tele.User { return f.user }
func (f *fakeContext) Chat() *tele.Chat { return &tele.Chat{ID: f.user.ID} }
func (f *fakeContext) Text() string { return "hi" }
func (f *fakeContext) Get(key string) any { return f.store[key] }
func (f *fakeContext) Set(key string, val any) { f.store[key] = val }
func (f *fakeContext) Callback() *tele.Callback { return nil }

func (f *fakeContext) Update() tele.Update {
	if f.callback {
		return tele.Update{ID: 1, Callback: &tele.Callback{}}
	}
	return tele.Update{ID: 1, Message: &tele.Message{}}
}

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	now := time.Unix(100, 0)
	m := metrics.New()
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
		Metrics:   m,
		Now:       func() time.Time { return now },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	require.NoError(t, h(newFake(1)))
	require.NoError(t, h(newFake(1)))
	require.NoError(t, h(newFake(2)), "other users are not affected")
	cb := newFake(1)
	cb.callback = true
	require.NoError(t, h(cb), "excluded update kinds pass")
	now = now.Add(2 * time.Second)
	require.NoError(t, h(newFake(1)))

	assert.Equal(t, 4, calls)
	assert.Equal(t, 1, limited)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))
}

func TestMessageMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	c := newFake(1)
	h := MessageMetrics(m)(func(c tele.Context) error {
		if err := c.Send("a"); err != nil {
			return err
		}
		return c.Send("b", &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{}})
	})
	require.NoError(t, h(c))

	msgs, kb := GetCounters(c)
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesSent.WithLabelValues("send", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesSent.WithLabelValues("send", "false")))
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	err := RecoverMiddleware(func(tele.Context) error { panic("boom") })(newFake(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	want := errors.New("plain")
	assert.ErrorIs(t, RecoverMiddleware(func(tele.Context) error { return want })(newFake(1)), want)
}

func TestAdminOnly(t *testing.T) {
	t.Parallel()

	rejected := 0
	mw := AdminOnlyMiddleware(AdminOptions{AdminID: 7, OnReject: func(tele.Context) error { rejected++; return nil }})
	ran := 0
	h := mw(func(tele.Context) error { ran++; return nil })

	require.NoError(t, h(newFake(7)))
	require.NoError(t, h(newFake(8)))
	assert.Equal(t, 1, ran)
	assert.Equal(t, 1, rejected)
}

func TestAdminOnlyWithoutAdmin(t *testing.T) {
	t.Parallel()

	ran := false
	h := AdminOnlyMiddleware(AdminOptions{})(func(tele.Context) error { ran = true; return nil })
	require.NoError(t, h(newFake(1)))
	assert.False(t, ran)
}

func TestSeenUpdates(t *testing.T) {
	t.Parallel()

	s := newSeenUpdates()
	at := time.Unix(100, 0)
	assert.False(t, s.mark(1, at))
	assert.True(t, s.mark(1, at.Add(time.Second)))
	assert.False(t, s.mark(2, at.Add(time.Second)))
	assert.False(t, s.mark(1, at.Add(seenWindow+2*time.Second)), "expired ids are forgotten")

	for id := range seenLimit + 10 {
		s.mark(1000+id, at)
	}
	assert.LessOrEqual(t, s.ids.Len(), seenLimit)
}

func TestLoggerMiddlewareStoresContext(t *testing.T) {
	t.Parallel()

	c := newFake(5)
	called := false
	h := LoggerMiddleware(func(c tele.Context) error {
		called = true
		assert.NotNil(t, c.Get("logger_ctx"))
		return nil
	})
	require.NoError(t, h(c))
	assert.True(t, called)
}

func TestLimiterPrunesIdleUsers(t *testing.T) {
	t.Parallel()

	l := &limiter{interval: time.Second, last: map[int64]time.Time{}}
	at := time.Unix(1000, 0)
	for id := range int64(50) {
		assert.True(t, l.allow(id, at))
	}
	assert.False(t, l.allow(1, at.Add(500*time.Millisecond)))
	assert.True(t, l.allow(1, at.Add(2*time.Minute)))
	assert.Len(t, l.last, 1)
}

func TestUpdateKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "callback", updateKind(tele.Update{Callback: &tele.Callback{}}))
	assert.Equal(t, "message", updateKind(tele.Update{Message: &tele.Message{}}))
	assert.Equal(t, "inline_query", updateKind(tele.Update{Query: &tele.Query{}}))
	assert.Equal(t, "other", updateKind(tele.Update{}))
}
