package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/achibot/core/logger"
)

const (
	defaultMigrationsDir = "migrations"
	migrateWaitTimeout   = 30 * time.Second
)

// RunMigrations waits for postgres and applies every pending up migration
// from cfg.MigrationsDir.
func RunMigrations(ctx context.Context, cfg Config) error {
	if err := WaitForPostgres(ctx, DSN(cfg), migrateWaitTimeout); err != nil {
		return migrateFailed("db not ready", "database not ready", err)
	}

	srcURL, err := sourceURL(cfg.MigrationsDir)
	if err != nil {
		return migrateFailed("migrations path lookup failed", "resolve migrations dir", err)
	}
	src, err := source.Open(srcURL)
	if err != nil {
		return migrateFailed("open source failed", "open migrations", err)
	}
	known, err := versions(src)
	if err != nil {
		_ = src.Close()
		return migrateFailed("list versions failed", "list migrations", err)
	}
	logger.MIG.Debug("migrations resolved",
		slog.String("event", "resolve"),
		slog.String("source", srcURL),
		slog.Int("files_total", len(known)),
		slog.String("versions", preview(known)),
	)

	m, err := migrate.NewWithSourceInstance("file", src, URL(cfg))
	if err != nil {
		_ = src.Close()
		return migrateFailed("init failed", "failed to initialize migrations", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.MIG.Warn("close failed",
				slog.String("event", "db.migrate"),
				slog.String("err", errors.Join(srcErr, dbErr).Error()),
			)
		}
	}()

	from, _, _ := m.Version()
	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
		return fmt.Errorf("migration execution failed: %w", err)
	}
	to, _, _ := m.Version()

	applied := between(known, from, to)
	logger.MIG.Info("migrations summary",
		slog.String("event", "summary"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.String("versions", preview(applied)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

func migrateFailed(msg, wrap string, err error) error {
	logger.MIG.Error(msg,
		slog.String("event", "db.migrate"),
		slog.String("err", err.Error()),
	)
	return fmt.Errorf("%s: %w", wrap, err)
}

func sourceURL(dir string) (string, error) {
	if dir == "" {
		dir = defaultMigrationsDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// versions walks the source in ascending order. An empty source yields nil.
func versions(src source.Driver) ([]uint, error) {
	var out []uint
	v, err := src.First()
	for err == nil {
		out = append(out, v)
		v, err = src.Next(v)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	return out, err
}

// between returns the versions in (from, to].
func between(known []uint, from, to uint) []uint {
	var out []uint
	for _, v := range known {
		if v > from && v <= to {
			out = append(out, v)
		}
	}
	return out
}

func preview(vs []uint) string {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = strconv.FormatUint(uint64(v), 10)
	}
	s, truncated := logger.SummarizeStrings(names, 6)
	if truncated {
		s += ", …"
	}
	return s
}
