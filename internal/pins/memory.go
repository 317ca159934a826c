package pins

import (
	"context"
	"strings"
	"sync"
)

type memoryStore struct {
	mu   sync.Mutex
	byID map[int64][]Pin
}

// NewMemoryStore returns a process-local store. Pins are lost on restart.
func NewMemoryStore() Store {
	return &memoryStore{byID: make(map[int64][]Pin)}
}

func (m *memoryStore) Add(_ context.Context, p Pin) (bool, error) {
	p = normalize(p)
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.byID[p.ChatID]
	for _, existing := range list {
		if existing.Classifier == p.Classifier && existing.Code == p.Code {
			return false, nil
		}
	}
	if len(list) >= MaxPerChat {
		return false, ErrLimitReached
	}
	m.byID[p.ChatID] = append(list, p)
	return true, nil
}

func (m *memoryStore) Remove(_ context.Context, chatID int64, classifier, code string) (bool, error) {
	classifier = strings.ToLower(strings.TrimSpace(classifier))
	code = strings.TrimSpace(code)
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.byID[chatID]
	for i, p := range list {
		if p.Classifier == classifier && p.Code == code {
			m.byID[chatID] = append(list[:i:i], list[i+1:]...)
			if len(m.byID[chatID]) == 0 {
				delete(m.byID, chatID)
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) List(_ context.Context, chatID int64) ([]Pin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Pin(nil), m.byID[chatID]...), nil
}
