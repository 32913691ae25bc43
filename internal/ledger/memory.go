package ledger

import (
	"encoding/json"
	"sync"

	"github.com/sadopc/billr/internal/model"
)

// MemoryStore is a Persister that keeps documents in process memory. It is
// used when no durable backend is configured and in tests.
type MemoryStore struct {
	mu        sync.Mutex
	docs      map[model.Kind][]json.RawMessage
	scalars   map[string]string
	failSaves error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:    make(map[model.Kind][]json.RawMessage),
		scalars: make(map[string]string),
	}
}

func (m *MemoryStore) LoadCollection(kind model.Kind) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]json.RawMessage(nil), m.docs[kind]...), nil
}

func (m *MemoryStore) SaveCollection(kind model.Kind, docs []json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaves != nil {
		return m.failSaves
	}
	m.docs[kind] = append([]json.RawMessage(nil), docs...)
	return nil
}

func (m *MemoryStore) LoadScalar(key, def string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.scalars[key]; ok {
		return v, nil
	}
	return def, nil
}

func (m *MemoryStore) SaveScalar(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaves != nil {
		return m.failSaves
	}
	m.scalars[key] = value
	return nil
}

// SetFailSaves makes every subsequent save return err. A nil err restores
// normal behaviour.
func (m *MemoryStore) SetFailSaves(err error) {
	m.mu.Lock()
	m.failSaves = err
	m.mu.Unlock()
}

// Count returns the number of stored documents of a kind.
func (m *MemoryStore) Count(kind model.Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[kind])
}
