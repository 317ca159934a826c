// Package pins stores the codes a chat has pinned for quick access.
package pins

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxPerChat caps the number of pins a single chat may keep.
const MaxPerChat = 50

// ErrLimitReached is returned by Add when the chat already has MaxPerChat pins.
var ErrLimitReached = errors.New("pins: limit reached")

// Pin is a code pinned by a chat.
type Pin struct {
	ChatID     int64     `db:"chat_id"`
	Classifier string    `db:"classifier"`
	Code       string    `db:"code"`
	CreatedAt  time.Time `db:"created_at"`
}

// Store keeps pins per chat. Add and Remove report whether anything changed.
type Store interface {
	Add(ctx context.Context, p Pin) (bool, error)
	Remove(ctx context.Context, chatID int64, classifier, code string) (bool, error)
	List(ctx context.Context, chatID int64) ([]Pin, error)
}

func normalize(p Pin) Pin {
	p.Classifier = strings.ToLower(strings.TrimSpace(p.Classifier))
	p.Code = strings.TrimSpace(p.Code)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return p
}
