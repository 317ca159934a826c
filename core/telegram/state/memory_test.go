package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

// fakeContext implements only what the manager touches.
type fakeContext struct {
	tele.Context
	chat  *tele.Chat
	store map[string]any
}

func newFakeContext(chatID int64) *fakeContext {
	return &fakeContext{chat: &tele.Chat{ID: chatID}, store: map[string]any{}}
}

func (f *fakeContext) Chat() *tele.Chat { return f.chat }
func (f *fakeContext) Sender() *tele.User { return &tele.User{ID: f.chat.ID} }
func (f *fakeContext) Update() tele.Update { return tele.Update{ID: 1} }
func (f *fakeContext) Get(key string) any { return f.store[key] }
func (f *fakeContext) Set(key string, val any) { f.store[key] = val }

func TestSaveGetClear(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewMemoryManager(WithClock(func() time.Time { return at }))

	s, ok := m.Get(7)
	assert.False(t, ok)
	assert.Equal(t, StateIdle, s.State)

	path := []string{"ClassA", "BlockA"}
	m.Save(7, Session{State: StateNavigating, Classifier: "mkh10", Path: path})
	path[0] = "mutated"

	got, ok := m.Get(7)
	require.True(t, ok)
	assert.Equal(t, []string{"ClassA", "BlockA"}, got.Path, "saved sessions are copies")
	assert.Equal(t, at, got.UpdatedAt)
	assert.True(t, m.InProgress(7))
	assert.Equal(t, 1, m.Len())

	got.Path[1] = "changed"
	again, _ := m.Get(7)
	assert.Equal(t, "BlockA", again.Path[1])

	assert.True(t, m.Clear(7))
	assert.False(t, m.Clear(7))
	assert.False(t, m.InProgress(7))
	assert.Zero(t, m.Len())
}

func TestChatsAreIsolated(t *testing.T) {
	t.Parallel()

	m := NewMemoryManager()
	m.Save(1, Session{State: StateNavigating, Classifier: "achi", Path: []string{"A"}})
	m.Save(2, Session{})

	one, _ := m.Get(1)
	two, _ := m.Get(2)
	assert.Equal(t, []string{"A"}, one.Path)
	assert.Equal(t, StateIdle, two.State, "empty state defaults to idle")
	assert.False(t, m.InProgress(2))
}

func TestManagerHandlerDispatchesByState(t *testing.T) {
	t.Parallel()

	m := NewMemoryManager()
	var calls []int64
	m.Handle(StateNavigating, func(c tele.Context) error {
		calls = append(calls, c.Chat().ID)
		return nil
	})

	require.NoError(t, m.ManagerHandler(newFakeContext(5)), "idle chat has no handler")
	m.Save(5, Session{State: StateNavigating})
	require.NoError(t, m.ManagerHandler(newFakeContext(5)))
	assert.Equal(t, []int64{5}, calls)
}

func TestConcurrentSaves(t *testing.T) {
	t.Parallel()

	m := NewMemoryManager()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chat := int64(i % 4)
			m.Save(chat, Session{State: StateNavigating, Path: []string{"x"}})
			_, _ = m.Get(chat)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 4, m.Len())
}
