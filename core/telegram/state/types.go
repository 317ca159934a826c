package state

import (
	"slices"
	"time"

	tele "gopkg.in/telebot.v4"
)

// State identifies a conversation step.
type State string

const (
	// StateIdle indicates there is no active conversation in the chat.
	StateIdle State = "idle"
	// StateNavigating marks a chat walking a classifier menu.
	StateNavigating State = "navigating"
)

// Session is the per-chat conversation record. Path holds the menu labels
// chosen so far within Classifier.
type Session struct {
	State      State
	Classifier string
	Path       []string
	UpdatedAt  time.Time
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	s.Path = slices.Clone(s.Path)
	return s
}

// Manager stores sessions keyed by chat id. Writes are last-write-wins.
type Manager interface {
	Get(chatID int64) (Session, bool)
	Save(chatID int64, s Session)
	Clear(chatID int64) bool
	Len() int

	InProgress(chatID int64) bool
	Handle(st State, h tele.HandlerFunc)
	ManagerHandler(c tele.Context) error
}
