package state

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/achibot/core/logger"
	tghelpers "github.com/m3rciful/achibot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	handlers handlers
	now      func() time.Time
}

// Option customises a memory manager.
type Option func(*memoryManager)

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(m *memoryManager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemoryManager constructs an in-memory Manager. Sessions live until
// cleared or the process exits.
func NewMemoryManager(opts ...Option) Manager {
	m := &memoryManager{
		sessions: make(map[int64]Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a copy of the chat's session.
func (m *memoryManager) Get(chatID int64) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[chatID]
	if !ok {
		return Session{State: StateIdle}, false
	}
	return s.Clone(), true
}

// Save replaces the chat's session and stamps UpdatedAt.
func (m *memoryManager) Save(chatID int64, s Session) {
	s = s.Clone()
	if s.State == "" {
		s.State = StateIdle
	}
	s.UpdatedAt = m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatID] = s
}

// Clear removes the chat's session and reports whether one existed.
func (m *memoryManager) Clear(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[chatID]
	delete(m.sessions, chatID)
	return ok
}

// Len returns the number of stored sessions.
func (m *memoryManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// InProgress reports whether the chat is in a state other than idle.
func (m *memoryManager) InProgress(chatID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[chatID]
	return ok && s.State != StateIdle
}

// Handle registers the text handler for st.
func (m *memoryManager) Handle(st State, h tele.HandlerFunc) {
	m.handlers.set(st, h)
}

// ManagerHandler runs the handler registered for the chat's current state.
func (m *memoryManager) ManagerHandler(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	s, _ := m.Get(chat.ID)
	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, logger.CompTG, "fsm.manager",
		slog.String("status", "ok"),
		slog.Int64("chat_id", chat.ID),
		slog.String("state", string(s.State)),
	)
	if h, ok := m.handlers.get(s.State); ok {
		return h(c)
	}
	return nil
}
