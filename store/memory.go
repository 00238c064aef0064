package store

import (
	"context"
	"sync"
)

// MemoryStore keeps history in memory. It backs tests and the `memory`
// storage driver; nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records []StepRecord
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SaveStep appends a copy of the record, so later caller mutations cannot
// reach stored history.
func (m *MemoryStore) SaveStep(_ context.Context, rec StepRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec.Clone())
	return nil
}

// History returns copies of all records in insertion (tick) order.
func (m *MemoryStore) History(_ context.Context) ([]StepRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]StepRecord, len(m.records))
	for i, rec := range m.records {
		out[i] = rec.Clone()
	}
	return out, nil
}

// LastStep returns a copy of the most recent record, or nil when empty.
func (m *MemoryStore) LastStep(_ context.Context) (*StepRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.records) == 0 {
		return nil, nil
	}
	last := m.records[len(m.records)-1].Clone()
	return &last, nil
}

// Clear deletes all history.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	return nil
}

// Stats reports the number of stored steps.
func (m *MemoryStore) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{DatabasePath: ":memory:", Records: len(m.records)}, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
