package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/achibot/core/config"
	"github.com/m3rciful/achibot/core/metrics"
	"github.com/m3rciful/achibot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/Select", commands.Command{Handler: noop, Description: "menu", Aliases: []string{"menu"}}))
	require.NoError(t, reg.RegisterCommand("/stats", commands.Command{Handler: noop, Description: "stats", AdminOnly: true}))
	require.NoError(t, reg.RegisterCommand("/hidden", commands.Command{Handler: noop, Description: "x", Hidden: true}))
	assert.ErrorIs(t, reg.RegisterCommand("noslash", commands.Command{Handler: noop, Description: "x"}), ErrInvalidRegistration)
	assert.ErrorIs(t, reg.RegisterCommand("/nodesc", commands.Command{Handler: noop}), ErrInvalidRegistration)
	assert.ErrorIs(t, reg.RegisterCommand("/menu", commands.Command{Handler: noop, Description: "x"}), ErrDuplicateRegistration)
	assert.ErrorIs(t, reg.RegisterCommand("/other", commands.Command{Handler: noop, Description: "x", Aliases: []string{"/STATS"}}), ErrDuplicateRegistration)

	assert.Len(t, reg.Commands(), 3)
	assert.Equal(t, []tele.Command{{Text: "/select", Description: "menu"}}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 3)

	key, _, ok := reg.LookupCommand("/MENU")
	require.True(t, ok)
	assert.Equal(t, "/select", key)
	key, _, ok = reg.LookupCommand("select")
	require.True(t, ok)
	assert.Equal(t, "/select", key)
	_, _, ok = reg.LookupCommand("/nope")
	assert.False(t, ok)
	_, _, ok = reg.LookupCommand("/other")
	assert.False(t, ok, "a rejected command leaves nothing behind")
}

func TestRegistryCallbacks(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("nav", noop))
	require.ErrorIs(t, reg.RegisterCallback("nav", noop), ErrDuplicateRegistration)
	require.ErrorIs(t, reg.RegisterCallback("", noop), ErrInvalidRegistration)
	require.NoError(t, reg.RegisterCallback("pin", noop))

	_, ok := reg.GetCallback("nav")
	assert.True(t, ok)
	assert.Equal(t, []string{"nav", "pin"}, reg.ListCallbacks())
	assert.NotNil(t, reg.CallbackNotFound())
}

func TestBuildPoller(t *testing.T) {
	t.Parallel()

	lp, ok := BuildPoller(PollerOptions{RunMode: "longpoll"}).(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, lp.Timeout)
	assert.Equal(t, AllowedUpdates, lp.AllowedUpdates)

	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = "Webhook"
	cfg.Webhook = coreconfig.WebhookConfig{Listen: "0.0.0.0", Port: 8443, URL: "https://example.org/hook"}
	wh, ok := BuildPoller(PollerOptionsFrom(cfg)).(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", wh.Listen)
	assert.Equal(t, "https://example.org/hook", wh.Endpoint.PublicURL)
	assert.Contains(t, wh.AllowedUpdates, "inline_query")
}

func TestDefaultMiddlewares(t *testing.T) {
	t.Parallel()

	names := func(mws []Middleware) []string {
		out := make([]string, 0, len(mws))
		for _, mw := range mws {
			out = append(out, mw.Name)
		}
		return out
	}

	cfg := &coreconfig.Config{}
	assert.Equal(t, []string{"recover", "logger", "metrics"}, names(DefaultMiddlewares(cfg, metrics.New(), nil)))

	cfg.RateLimit.IntervalMS = 500
	assert.Equal(t, []string{"recover", "rate_limit", "logger", "metrics"}, names(DefaultMiddlewares(cfg, nil, nil)))
}
