package store

import (
	"bytes"
	"sort"
	"sync"
)

// MemoryStore keeps records in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Get returns the record for key.
func (m *MemoryStore) Get(key string) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		return Record{}, false, nil
	}
	return Record{Version: rec.Version, Data: bytes.Clone(rec.Data)}, true, nil
}

// Put stores rec under key.
func (m *MemoryStore) Put(key string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = Record{Version: rec.Version, Data: bytes.Clone(rec.Data)}
	return nil
}

// Delete removes key.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

// Keys lists stored keys.
func (m *MemoryStore) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.records))
	for k := range m.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
