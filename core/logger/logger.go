package logger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/achibot/core/buildinfo"
	coreconfig "github.com/m3rciful/achibot/core/config"
)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	shutdown   bool

	logWriter  *asyncWriter
	logClosers []io.Closer

	levelVar slog.LevelVar

	debugSampler  = newRatioSampler(1, 50)
	traceOverride bool

	// L is the base logger exposed for compatibility while migrating to context-first logging.
	L *slog.Logger

	// DB logs database-related events for legacy call sites.
	DB *slog.Logger
	// TG logs Telegram transport events for legacy call sites.
	TG *slog.Logger
	// MIG logs database migration events for legacy call sites.
	MIG *slog.Logger
	// TWire logs Telegram wiring steps for legacy call sites.
	TWire *slog.Logger
)

// Component names used across the bot.
const (
	CompApp     = "app"
	CompTG      = "tg"
	CompTGWire  = "tg.wire"
	CompDB      = "db"
	CompMigrate = "db.migrate"
	CompNav     = "nav"
	CompTree    = "tree"
	CompPins    = "pins"
	CompMetrics = "metrics"
)

func init() {
	// Until InitLogger runs, component loggers discard output so packages
	// and tests never see nil loggers.
	L = slog.New(slog.DiscardHandler)
	wireComponents()
}

// InitLogger configures the global structured logger. Only the first call has
// an effect.
//
// Records go to stdout and, when logging.dir is set, to logging.bot_file.
// logging.errors_file receives warnings and errors only.
func InitLogger(cfg *coreconfig.Config) error {
	var initErr error
	initOnce.Do(func() {
		st := settingsFrom(cfg)
		levelVar.Set(st.level)
		debugSampler.Set(st.sampleNum, st.sampleDen)
		traceOverride = traceRequested()

		sinks, closers, err := openSinks(cfg)
		if err != nil {
			initErr = err
			return
		}
		logClosers = closers
		logWriter = newAsyncWriter(sinks, 64*1024)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			format:   st.format,
			keyOrder: st.keyOrder,
		}))
		slog.SetDefault(L)

		wireComponents()
		L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("component", CompApp),
			slog.String("go_version", runtime.Version()),
			slog.String("build", buildinfo.String()),
			slog.String("cfg_profile", st.profile),
		)
	})
	return initErr
}

func wireComponents() {
	DB = L.With("component", CompDB)
	TG = L.With("component", CompTG)
	MIG = L.With("component", CompMigrate)
	TWire = L.With("component", CompTGWire)
}

// Shutdown flushes buffered log output and closes opened files.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if shutdown {
		return nil
	}
	shutdown = true

	var errs []error
	if logWriter != nil {
		errs = append(errs, logWriter.Flush(), logWriter.Close())
	}
	for _, c := range logClosers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func openSinks(cfg *coreconfig.Config) ([]sink, []io.Closer, error) {
	sinks := []sink{{w: os.Stdout, min: slog.LevelDebug}}
	if cfg == nil {
		return sinks, nil, nil
	}
	dir := strings.TrimSpace(cfg.Logging.Dir)
	if dir == "" {
		return sinks, nil, nil
	}

	var closers []io.Closer
	files := []struct {
		name string
		min  slog.Level
	}{
		{strings.TrimSpace(cfg.Logging.BotFile), slog.LevelDebug},
		{strings.TrimSpace(cfg.Logging.ErrorsFile), slog.LevelWarn},
	}
	for _, f := range files {
		if f.name == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, closers, fmt.Errorf("logger: create log dir %s: %w", dir, err)
		}
		path := filepath.Join(dir, f.name)
		fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, nil, fmt.Errorf("logger: open %s: %w", path, err)
		}
		sinks = append(sinks, sink{w: fh, min: f.min})
		closers = append(closers, fh)
	}
	return sinks, closers, nil
}

// settings is the logging section resolved to concrete values.
type settings struct {
	level     slog.Level
	format    logFormat
	keyOrder  []string
	profile   string
	sampleNum int
	sampleDen int
}

var configLevels = map[string]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

// settingsFrom resolves cfg. The profile defaults to prod, where JSON is
// the default format; debug and dev profiles default to key=value lines.
// Debug sampling defaults to 1 in 50.
func settingsFrom(cfg *coreconfig.Config) settings {
	st := settings{
		level:     slog.LevelInfo,
		format:    formatJSON,
		keyOrder:  slices.Clone(defaultKeyOrder),
		sampleNum: 1,
		sampleDen: 50,
	}
	if cfg == nil {
		return st
	}
	lc := cfg.Logging

	st.profile = strings.ToLower(cmp.Or(strings.TrimSpace(lc.Profile), "prod"))
	st.level = configLevels[normalizeLevel(strings.TrimSpace(lc.Level))]

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		st.format = formatKV
	case "json":
	default:
		if st.profile == "debug" || st.profile == "dev" {
			st.format = formatKV
		}
	}

	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		if order := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }); len(order) > 0 {
			st.keyOrder = order
		}
	}
	if strings.TrimSpace(lc.DebugSample) != "" {
		st.sampleNum, st.sampleDen = parseRatioSpec(lc.DebugSample)
	}
	return st
}

// LogEvent logs attrs with an event attribute through logg, or the context
// logger when logg is nil.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns the base logger scoped to a component attribute.
func Component(name string) *slog.Logger {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return L.With("component", trimmed)
	}
	return L
}

// Event logs one event for component at level.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), level, event, attrs...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// traceRequested reports whether TRACE or LOG_TRACE asks for every
// sampled debug line.
func traceRequested() bool {
	for _, key := range []string{"TRACE", "LOG_TRACE"} {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "1", "true", "on", "yes":
			return true
		}
	}
	return false
}

// ShouldSampleDebug reports whether debug details of a high-volume event
// should be logged.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}
