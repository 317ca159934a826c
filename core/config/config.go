package config

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings that are common for all bots.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Stacks      string `yaml:"stacks"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	ErrorsFile  string `yaml:"errors_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Interval is the minimum gap between two accepted updates of one user.
func (r RateLimitConfig) Interval() time.Duration {
	return time.Duration(r.IntervalMS) * time.Millisecond
}

// Excluded returns ExcludeUpdates as a lowercased set.
func (r RateLimitConfig) Excluded() map[string]struct{} {
	set := make(map[string]struct{}, len(r.ExcludeUpdates))
	for _, kind := range r.ExcludeUpdates {
		set[strings.ToLower(strings.TrimSpace(kind))] = struct{}{}
	}
	return set
}

// DatabaseConfig holds optional Postgres settings. An empty host disables
// the database entirely.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// Enabled reports whether a database host is configured.
func (c DatabaseConfig) Enabled() bool { return strings.TrimSpace(c.Host) != "" }

// MetricsConfig controls the Prometheus listener. Empty listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
	Path   string `yaml:"path" envconfig:"METRICS_PATH"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Database  DatabaseConfig  `yaml:"database"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadInto decodes the YAML file at path into dst and overlays environment
// variables. dst is typically an application config embedding Config inline.
// No validation is performed.
func LoadInto(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Normalize validates cfg and fills defaults. Every problem found is
// reported, joined into one error.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	return errors.Join(
		cfg.normalizeTelegram(),
		cfg.RateLimit.normalize(),
		cfg.Database.normalize(),
		cfg.Metrics.normalize(),
	)
}

var runModeAliases = map[string]string{
	"":              RunModeLongpoll,
	"polling":       RunModeLongpoll,
	RunModeLongpoll: RunModeLongpoll,
	RunModeWebhook:  RunModeWebhook,
}

func (cfg *Config) normalizeTelegram() error {
	var errs []error
	if cfg.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram token is required"))
	}
	mode, ok := runModeAliases[strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))]
	if !ok {
		return errors.Join(append(errs,
			fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode))...)
	}
	cfg.Telegram.RunMode = mode

	switch mode {
	case RunModeWebhook:
		wh := cfg.Webhook
		if strings.TrimSpace(wh.URL) == "" {
			errs = append(errs, errors.New("webhook.url is required in webhook mode"))
		}
		if strings.TrimSpace(wh.Listen) == "" {
			errs = append(errs, errors.New("webhook.listen is required in webhook mode"))
		}
		if wh.Port <= 0 {
			errs = append(errs, errors.New("webhook.port must be > 0 in webhook mode"))
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			errs = append(errs, errors.New("telegram.longpoll_timeout_seconds must be >= 0"))
		}
	}
	return errors.Join(errs...)
}

func (r *RateLimitConfig) normalize() error {
	var errs []error
	if r.IntervalMS < 0 {
		errs = append(errs, errors.New("rate_limit.interval_ms must be >= 0"))
	}
	kinds := r.ExcludeUpdates[:0]
	for _, v := range r.ExcludeUpdates {
		switch kind := strings.ToLower(strings.TrimSpace(v)); kind {
		case "":
		case UpdateCallback, UpdateMessage, UpdateInlineQuery:
			kinds = append(kinds, kind)
		default:
			errs = append(errs, fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v))
		}
	}
	r.ExcludeUpdates = kinds
	return errors.Join(errs...)
}

func (db *DatabaseConfig) normalize() error {
	if !db.Enabled() {
		return nil
	}
	if strings.TrimSpace(db.Name) == "" {
		return errors.New("database.name is required when database.host is set")
	}
	db.Port = cmp.Or(db.Port, "5432")
	db.SSLMode = cmp.Or(db.SSLMode, "disable")
	db.MigrationsDir = cmp.Or(db.MigrationsDir, "migrations")
	if db.MaxConnections <= 0 {
		db.MaxConnections = 5
	}
	return nil
}

func (m *MetricsConfig) normalize() error {
	m.Listen = strings.TrimSpace(m.Listen)
	m.Path = cmp.Or(m.Path, "/metrics")
	if !strings.HasPrefix(m.Path, "/") {
		return errors.New("metrics.path must start with '/'")
	}
	return nil
}
