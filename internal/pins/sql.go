package pins

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/achibot/core/logger"
)

const (
	countPinsSQL  = `SELECT count(*) AS total, coalesce(sum(CASE WHEN classifier = ? AND code = ? THEN 1 ELSE 0 END), 0) AS existing FROM pins WHERE chat_id = ?`
	insertPinSQL  = `INSERT INTO pins (chat_id, classifier, code, created_at) VALUES (:chat_id, :classifier, :code, :created_at) ON CONFLICT (chat_id, classifier, code) DO NOTHING`
	deletePinSQL  = `DELETE FROM pins WHERE chat_id = ? AND classifier = ? AND code = ?`
	selectPinsSQL = `SELECT chat_id, classifier, code, created_at FROM pins WHERE chat_id = ? ORDER BY created_at, classifier, code`
	lockChatSQL   = `SELECT pg_advisory_xact_lock($1)`
)

type sqlStore struct {
	db *sqlx.DB
	// addMu serialises Add within the process; postgres also takes a
	// per-chat advisory lock so other instances wait too.
	addMu sync.Mutex
}

// NewSQLStore returns a store backed by the pins table.
func NewSQLStore(db *sqlx.DB) Store {
	return &sqlStore{db: db}
}

// Add counts and inserts in one transaction so concurrent pins cannot push a
// chat past MaxPerChat.
func (s *sqlStore) Add(ctx context.Context, p Pin) (bool, error) {
	p = normalize(p)
	s.addMu.Lock()
	defer s.addMu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("pins: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if s.db.DriverName() == "postgres" {
		if _, err := tx.ExecContext(ctx, lockChatSQL, p.ChatID); err != nil {
			return false, fmt.Errorf("pins: lock chat: %w", err)
		}
	}
	var counts struct {
		Total    int `db:"total"`
		Existing int `db:"existing"`
	}
	if err := tx.GetContext(ctx, &counts, tx.Rebind(countPinsSQL), p.Classifier, p.Code, p.ChatID); err != nil {
		return false, fmt.Errorf("pins: count: %w", err)
	}
	if counts.Existing > 0 {
		return false, nil
	}
	if counts.Total >= MaxPerChat {
		return false, ErrLimitReached
	}
	res, err := tx.NamedExecContext(ctx, insertPinSQL, p)
	if err != nil {
		return false, fmt.Errorf("pins: insert: %w", err)
	}
	added, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pins: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("pins: commit: %w", err)
	}
	logger.Debug(ctx, logger.CompPins, "pins.add",
		slog.Int64("chat_id", p.ChatID),
		slog.String("classifier", p.Classifier),
		slog.String("code", p.Code),
		slog.Bool("changed", added > 0),
	)
	return added > 0, nil
}

func (s *sqlStore) Remove(ctx context.Context, chatID int64, classifier, code string) (bool, error) {
	classifier = strings.ToLower(strings.TrimSpace(classifier))
	code = strings.TrimSpace(code)
	res, err := s.db.ExecContext(ctx, s.db.Rebind(deletePinSQL), chatID, classifier, code)
	if err != nil {
		return false, fmt.Errorf("pins: delete: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pins: delete: %w", err)
	}
	logger.Debug(ctx, logger.CompPins, "pins.remove",
		slog.Int64("chat_id", chatID),
		slog.String("classifier", classifier),
		slog.String("code", code),
		slog.Bool("changed", removed > 0),
	)
	return removed > 0, nil
}

func (s *sqlStore) List(ctx context.Context, chatID int64) ([]Pin, error) {
	var out []Pin
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(selectPinsSQL), chatID); err != nil {
		return nil, fmt.Errorf("pins: list: %w", err)
	}
	return out, nil
}
