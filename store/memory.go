package store

import (
	"context"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// MemoryStore keeps every record in a map. Nothing survives the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uint64]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uint64]Record)}
}

func (m *MemoryStore) Get(_ context.Context, hash uint64) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[hash]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) Contains(_ context.Context, hash uint64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[hash]
	return ok, nil
}

func (m *MemoryStore) InsertIfAbsent(_ context.Context, r Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.Hash]; ok {
		return false, nil
	}
	m.records[r.Hash] = r
	return true, nil
}

func (m *MemoryStore) Flush(context.Context) error { return nil }

func (m *MemoryStore) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

func (m *MemoryStore) Statistics(context.Context) (Statistics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var s Statistics
	for _, r := range m.records {
		s.Add(r)
	}
	return s, nil
}

// ForEach iterates over a snapshot, so fn may write to the store.
func (m *MemoryStore) ForEach(ctx context.Context, fn func(Record) error) error {
	m.mu.RLock()
	recs := lo.Values(m.records)
	m.mu.RUnlock()
	slices.SortFunc(recs, func(a, b Record) int {
		switch {
		case a.Hash < b.Hash:
			return -1
		case a.Hash > b.Hash:
			return 1
		}
		return 0
	})
	for _, r := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
