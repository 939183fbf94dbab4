// Package archive keeps a durable copy of daily snapshots outside the
// record store.
package archive

import (
	"context"
	"sort"
	"sync"

	"juicestand/internal/core"
)

// SnapshotArchive stores at most one snapshot per day; saving a day again
// replaces it.
type SnapshotArchive interface {
	SaveSnapshot(ctx context.Context, s core.DaySnapshot) error
	Close(ctx context.Context) error
}

// Memory is an in-process archive.
type Memory struct {
	mu   sync.Mutex
	days map[string]core.DaySnapshot
}

var _ SnapshotArchive = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{days: make(map[string]core.DaySnapshot)}
}

func (m *Memory) SaveSnapshot(_ context.Context, s core.DaySnapshot) error {
	if err := s.Date.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.days[s.Date.String()] = s
	return nil
}

// Snapshots returns every archived snapshot, oldest first.
func (m *Memory) Snapshots() []core.DaySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.DaySnapshot, 0, len(m.days))
	for _, s := range m.days {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (m *Memory) Close(context.Context) error { return nil }
