// Package app assembles the achibot runtime from configuration: logger,
// optional database, classifier catalog, pins store and telegram routes.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/achibot/core/bootstrap"
	corecmd "github.com/m3rciful/achibot/core/cmd"
	"github.com/m3rciful/achibot/core/logger"
	"github.com/m3rciful/achibot/core/metrics"
	tg "github.com/m3rciful/achibot/core/telegram"
	tghelpers "github.com/m3rciful/achibot/core/telegram/helpers"
	"github.com/m3rciful/achibot/core/telegram/router"
	"github.com/m3rciful/achibot/core/telegram/state"
	"github.com/m3rciful/achibot/internal/bot"
	"github.com/m3rciful/achibot/internal/classifier"
	"github.com/m3rciful/achibot/internal/pins"

	tele "gopkg.in/telebot.v4"
)

const rateLimitedText = "Забагато запитів, спробуйте за мить."

// Options overrides infrastructure hooks, mainly for tests.
type Options struct {
	Bootstrap bootstrap.Options
	Metrics   *metrics.Metrics
}

// App holds the wired runtime.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	catalog  *classifier.Catalog
	sessions state.Manager
	metrics  *metrics.Metrics
	bot      *bot.Bot
	registry *tg.Registry
}

// LoadConfig adapts Load to the command runner.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	return Load(path)
}

// Bootstrap adapts New to the command runner.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(context.Background(), cfg, Options{})
}

// New initialises infrastructure and loads every classifier artifact. A
// missing artifact is fatal.
func New(ctx context.Context, cfg *Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	bopts := opts.Bootstrap
	bopts.Config = cfg.CoreConfig()
	res, err := bootstrap.Run(ctx, bopts)
	if err != nil {
		return nil, err
	}

	catalog, err := classifier.LoadCatalog(cfg.Classifiers.Default, cfg.CatalogSources())
	if err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("app: load classifiers: %w", err)
	}
	for _, name := range catalog.Names() {
		tree, _ := catalog.Get(name)
		st := tree.Stats()
		logger.Info(ctx, logger.CompTree, "load",
			slog.String("classifier", name),
			slog.Int("classes", st.Classes),
			slog.Int("records", st.Records),
			slog.Int("max_depth", st.MaxDepth),
		)
	}

	store := pins.NewMemoryStore()
	backend := "memory"
	if res.DB != nil {
		store = pins.NewSQLStore(res.DB)
		backend = "postgres"
	}
	logger.Info(ctx, logger.CompPins, "store", slog.String("backend", backend))

	m := opts.Metrics
	if m == nil {
		m = metrics.Default
	}
	sessions := state.NewMemoryManager()
	svc, err := bot.NewService(catalog, sessions, store, bot.Options{
		Navigation:  cfg.NavigationOptions(),
		SearchLimit: cfg.Navigation.SearchLimit,
		Metrics:     m,
	})
	if err != nil {
		_ = res.Close()
		return nil, err
	}

	b := bot.New(svc)
	reg := tg.NewRegistry()
	if err := b.Register(reg); err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}

	return &App{
		cfg:      cfg,
		db:       res.DB,
		catalog:  catalog,
		sessions: sessions,
		metrics:  m,
		bot:      b,
		registry: reg,
	}, nil
}

// TelegramRunOptions builds routes, middlewares and lifecycle hooks.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()

	routes := router.Routes(a.registry, a.sessions, a.bot, router.RoutesOptions{
		AdminID: core.Telegram.AdminID,
		Metrics: a.metrics,
	})
	routes = append(routes, a.bot.Routes()...)

	return tg.RunOptions{
		Config:      core,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(core, a.metrics, rateLimited),
		Routes:      routes,
		Metrics:     a.metrics,
		Health:      a.health,
		OnStop: func(context.Context, tg.Runtime) error {
			return a.Close()
		},
	}, nil
}

func rateLimited(c tele.Context) error {
	return tghelpers.Answer(c, rateLimitedText)
}

func (a *App) health(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.PingContext(ctx)
}

// Close releases the database connection, if any.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
