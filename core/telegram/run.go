package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/achibot/core/config"
	"github.com/m3rciful/achibot/core/logger"
	"github.com/m3rciful/achibot/core/metrics"
	"github.com/m3rciful/achibot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// Middleware is a named global middleware installed with bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route binds a handler to an endpoint accepted by tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions is everything RunTelegram needs besides the context.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	Middlewares []Middleware
	Routes      []Route

	// Metrics is served on Config.Metrics.Listen when that is set.
	Metrics *metrics.Metrics
	Health  metrics.HealthFunc

	// KeepWebhook skips the deleteWebhook call made before long polling.
	KeepWebhook bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime is handed to the lifecycle hooks.
type Runtime struct {
	Bot      *tele.Bot
	Registry *Registry
}

// RunTelegram builds the bot, installs middlewares and routes and blocks
// until ctx is cancelled or the poller stops on its own.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.Config
	if cfg == nil {
		return errors.New("telegram: nil config provided")
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	started := time.Now()
	poller := BuildPoller(PollerOptionsFrom(cfg))
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: BuildHTTPClient(),
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	announce(ctx, poller, time.Since(started))
	if _, polling := poller.(*tele.LongPoller); polling && !opts.KeepWebhook {
		dropWebhook(bot)
	}

	rt := Runtime{Bot: bot, Registry: opts.Registry}
	install(bot, opts)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	metricsCtx, stopMetrics := context.WithCancel(ctx)
	defer stopMetrics()
	metricsDone := serveMetrics(metricsCtx, cfg.Metrics, opts)

	runErr := poll(ctx, bot)

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(ctx, rt)
	}
	stopMetrics()
	metricsErr := <-metricsDone

	switch {
	case stopErr != nil:
		return stopErr
	case runErr != nil && !errors.Is(runErr, context.Canceled):
		return runErr
	default:
		return metricsErr
	}
}

func install(bot *tele.Bot, opts RunOptions) {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, route := range opts.Routes {
		if route.Endpoint != nil && route.Handler != nil {
			bot.Handle(route.Endpoint, route.Handler)
		}
	}
	InitBotCommands(bot, opts.Registry)
}

// poll runs the bot until ctx ends or Start returns by itself.
func poll(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}

// serveMetrics starts the metrics listener when one is configured. The
// returned channel yields the serve error once the listener has stopped.
func serveMetrics(ctx context.Context, cfg coreconfig.MetricsConfig, opts RunOptions) <-chan error {
	done := make(chan error, 1)
	if cfg.Listen == "" {
		done <- nil
		return done
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Default
	}
	go func() {
		err := metrics.Serve(ctx, cfg.Listen, metrics.Handler(m, cfg.Path, opts.Health))
		if err != nil {
			logger.Error(ctx, logger.CompMetrics, "serve",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
		done <- err
	}()
	return done
}

func announce(ctx context.Context, poller tele.Poller, took time.Duration) {
	switch p := poller.(type) {
	case *tele.Webhook:
		logger.TG.InfoContext(ctx, "webhook mode",
			slog.String("event", "mode"),
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", logger.RoundMS(took)),
		)
	case *tele.LongPoller:
		logger.TG.InfoContext(ctx, "polling mode",
			slog.String("event", "mode"),
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Int("timeout_seconds", int(p.Timeout/time.Second)),
			slog.Duration("duration", logger.RoundMS(took)),
		)
	}
}

// dropWebhook clears a webhook left over from an earlier deployment so
// getUpdates is not rejected. Pending updates are kept.
func dropWebhook(bot *tele.Bot) {
	_, err := bot.Raw("deleteWebhook", map[string]bool{"drop_pending_updates": false})
	if err != nil {
		logger.TG.Warn("failed to delete webhook",
			slog.String("event", "delete_webhook"),
			slog.String("status", "fail"),
			slog.String("err", netutil.Redact(err)),
		)
		return
	}
	logger.TG.Info("webhook deleted",
		slog.String("event", "delete_webhook"),
		slog.String("status", "ok"),
	)
}
