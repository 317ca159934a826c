package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/achibot/core/logger"
)

const (
	driverName      = "postgres"
	connectTimeout  = 5 * time.Second
	readyPollPeriod = 2 * time.Second
)

// Connect opens the pins database with the configured pool size and waits
// up to connectTimeout for the first successful ping.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	start := time.Now()
	db, err := sqlx.Open(driverName, DSN(cfg))
	if err != nil {
		return nil, connectFailed(cfg, "db.open", time.Since(start), err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := waitReady(ctx, db, connectTimeout); err != nil {
		_ = db.Close()
		return nil, connectFailed(cfg, "db.ping", time.Since(start), err)
	}

	logger.DB.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("driver", driverName),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return db, nil
}

func connectFailed(cfg Config, event string, took time.Duration, err error) error {
	logger.DB.Error("db connect failed",
		slog.String("event", event),
		slog.String("driver", driverName),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
		slog.Duration("duration", logger.RoundMS(took)),
		slog.String("err", err.Error()),
	)
	return fmt.Errorf("db connect: %w", err)
}

// WaitForPostgres blocks until the server behind dsn answers a ping, the
// timeout passes or ctx is cancelled.
func WaitForPostgres(ctx context.Context, dsn string, timeout time.Duration) error {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return waitReady(ctx, db, timeout)
}

type pinger interface {
	PingContext(ctx context.Context) error
}

func waitReady(ctx context.Context, db pinger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(readyPollPeriod)
	defer ticker.Stop()
	for attempt := 1; ; attempt++ {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		logger.DB.Debug("db not ready",
			slog.String("event", "db.ping"),
			slog.Int("attempt", attempt),
			slog.String("err", err.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout reached waiting for database: %w", err)
		case <-ticker.C:
		}
	}
}
