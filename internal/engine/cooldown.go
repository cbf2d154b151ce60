package engine

import (
	"context"
	"sync"
	"time"
)

// UpdateFunc receives the current cooldown state and returns the state to
// persist and whether anything changed. It may be called more than once by
// stores that retry optimistic transactions, so it must not have side effects.
type UpdateFunc func(current CooldownState) (next CooldownState, changed bool)

// CooldownStore persists CooldownState. Update is the read-modify-write
// critical section: no other update may interleave between the read handed
// to fn and the write of its result.
type CooldownStore interface {
	LoadCooldown(ctx context.Context) (CooldownState, error)
	UpdateCooldown(ctx context.Context, fn UpdateFunc) error
}

// MemoryCooldownStore keeps the state in process memory.
type MemoryCooldownStore struct {
	mu    sync.Mutex
	state CooldownState
}

var _ CooldownStore = (*MemoryCooldownStore)(nil)

// NewMemoryCooldownStore returns a store seeded with initial.
func NewMemoryCooldownStore(initial CooldownState) *MemoryCooldownStore {
	return &MemoryCooldownStore{state: copyState(initial)}
}

// LoadCooldown returns a copy of the current state.
func (m *MemoryCooldownStore) LoadCooldown(ctx context.Context) (CooldownState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyState(m.state), nil
}

// UpdateCooldown applies fn under the store mutex.
func (m *MemoryCooldownStore) UpdateCooldown(ctx context.Context, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, changed := fn(copyState(m.state))
	if changed {
		m.state = copyState(next)
	}
	return nil
}

func copyState(s CooldownState) CooldownState {
	var out CooldownState
	if s.LastS != nil {
		t := *s.LastS
		out.LastS = &t
	}
	if s.LastP != nil {
		t := *s.LastP
		out.LastP = &t
	}
	return out
}

// FormatTimestamp renders a cooldown timestamp for key-value persistence.
func FormatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp reads a persisted cooldown timestamp. Empty, missing or
// malformed values mean "no prior entry" and yield nil.
func ParseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}
