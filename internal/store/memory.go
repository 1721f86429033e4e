package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"droptrack/internal/core"
)

// Memory is an in-memory Store used for tests and local development.
type Memory struct {
	mu      sync.Mutex
	records map[string]core.DailyRecord
	nextID  int64
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]core.DailyRecord),
		nextID:  1,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the timestamp source, for tests.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Upsert(ctx context.Context, r core.DailyRecord) (core.DailyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := r.Date.String()
	now := m.now()
	if existing, ok := m.records[key]; ok {
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
	} else {
		r.ID = m.nextID
		m.nextID++
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	m.records[key] = r
	return r, nil
}

func (m *Memory) GetByDate(ctx context.Context, d core.Date) (*core.DailyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[d.String()]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Memory) DeleteByDate(ctx context.Context, d core.Date) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := d.String()
	if _, ok := m.records[key]; !ok {
		return false, nil
	}
	delete(m.records, key)
	return true, nil
}

func (m *Memory) ListMonth(ctx context.Context, year, month int) ([]core.DailyRecord, error) {
	first, next := monthBounds(year, month)

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []core.DailyRecord
	for _, r := range m.records {
		if !r.Date.Before(first) && r.Date.Before(next) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) ListByCreatedRange(ctx context.Context, start, end time.Time) ([]core.DailyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []core.DailyRecord
	for _, r := range m.records {
		if !r.CreatedAt.Before(start) && !r.CreatedAt.After(end) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListAll(ctx context.Context) ([]core.DailyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.DailyRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Date.Before(out[i].Date) })
	return out, nil
}

func (m *Memory) Close() error { return nil }
