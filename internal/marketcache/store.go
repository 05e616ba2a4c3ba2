package marketcache

import (
	"sync"
	"time"
)

// Store persists raw market-wide table payloads keyed by table name.
type Store interface {
	Get(key string) (payload []byte, fetchedAt time.Time, ok bool, err error)
	Put(key string, payload []byte, fetchedAt time.Time) error
	Close() error
}

// MemoryStore is an in-process Store used when no SQLite path is configured
// and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	payload   []byte
	fetchedAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Get(key string) ([]byte, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, time.Time{}, false, nil
	}
	return e.payload, e.fetchedAt, true, nil
}

func (m *MemoryStore) Put(key string, payload []byte, fetchedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{payload: payload, fetchedAt: fetchedAt}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
