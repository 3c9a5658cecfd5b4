package persist

import (
	"context"
	"fmt"
	"sync"

	"terminus-core/internal/worldgen"
)

// MemoryStore keeps encoded documents in memory. It runs the same codec as
// the SQLite store, so documents it accepts would survive a real round trip.
type MemoryStore struct {
	mu        sync.Mutex
	overrides map[worldgen.Coord][]byte
	snapshot  []byte
	closed    bool
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{overrides: make(map[worldgen.Coord][]byte)}
}

func (m *MemoryStore) LoadOverrides(_ context.Context, key worldgen.Coord) ([]Override, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("%w: store closed", ErrPersistence)
	}
	blob, ok := m.overrides[key]
	if !ok {
		return nil, nil
	}
	ov, err := DecodeOverrides(key, blob)
	if err != nil {
		return nil, fmt.Errorf("%w: load overrides %v: %w", ErrPersistence, key, err)
	}
	return ov, nil
}

func (m *MemoryStore) SaveOverrides(_ context.Context, key worldgen.Coord, overrides []Override) error {
	blob, err := EncodeOverrides(key, overrides)
	if err != nil {
		return fmt.Errorf("%w: save overrides %v: %w", ErrPersistence, key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("%w: store closed", ErrPersistence)
	}
	if len(overrides) == 0 {
		delete(m.overrides, key)
		return nil
	}
	m.overrides[key] = blob
	return nil
}

func (m *MemoryStore) LoadEntitySnapshot(context.Context) (*EntitySnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("%w: store closed", ErrPersistence)
	}
	if m.snapshot == nil {
		return nil, ErrNoSnapshot
	}
	snap, err := DecodeSnapshot(m.snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: load snapshot: %w", ErrPersistence, err)
	}
	return snap, nil
}

func (m *MemoryStore) SaveEntitySnapshot(_ context.Context, snap *EntitySnapshot) error {
	blob, err := EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("%w: save snapshot: %w", ErrPersistence, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("%w: store closed", ErrPersistence)
	}
	m.snapshot = blob
	return nil
}

// Chunks returns the number of chunks with stored overrides.
func (m *MemoryStore) Chunks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.overrides)
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
