package settings

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and tooling dry runs.
// Setting FailReads makes every read return that error.
type MemoryStore struct {
	mu        sync.Mutex
	rows      map[string]Setting
	FailReads error
	Now       func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Setting)}
}

func (m *MemoryStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads != nil {
		return Setting{}, m.FailReads
	}
	row, ok := m.rows[id]
	if !ok {
		return Setting{}, ErrNotFound
	}
	return row, nil
}

func (m *MemoryStore) ListByType(_ context.Context, settingType string) ([]Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads != nil {
		return nil, m.FailReads
	}
	out := make([]Setting, 0, 1)
	for _, row := range m.rows {
		if row.Type == settingType {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Create(_ context.Context, in Setting) (Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[in.ID]; ok {
		return Setting{}, ErrConflict
	}
	now := m.now()
	in.Value = append(json.RawMessage(nil), in.Value...)
	in.CreatedAt, in.UpdatedAt = now, now
	m.rows[in.ID] = in
	return in, nil
}

func (m *MemoryStore) Update(_ context.Context, id string, value json.RawMessage) (Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return Setting{}, ErrNotFound
	}
	row.Value = append(json.RawMessage(nil), value...)
	row.UpdatedAt = m.now()
	m.rows[id] = row
	return row, nil
}

func (m *MemoryStore) Upsert(_ context.Context, in Setting) (Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	row, ok := m.rows[in.ID]
	if !ok {
		row = Setting{ID: in.ID, Type: in.Type, CreatedAt: now}
	}
	row.Value = append(json.RawMessage(nil), in.Value...)
	row.UpdatedAt = now
	m.rows[in.ID] = row
	return row, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) (Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return Setting{}, ErrNotFound
	}
	delete(m.rows, id)
	return row, nil
}
