package persistence

import (
	"context"
	"fmt"
	"sync"

	"example.com/ranking/internal/domain"
)

// InMemoryStore keeps the snapshot in memory for local development and tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	state  domain.Snapshot
	events []domain.Event
}

// NewInMemoryStore constructs a store holding a copy of initial.
func NewInMemoryStore(initial domain.Snapshot) *InMemoryStore {
	return &InMemoryStore{state: initial.Clone()}
}

// LoadSnapshot implements domain.SnapshotStore.
func (s *InMemoryStore) LoadSnapshot(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone(), nil
}

// SaveSnapshot implements domain.SnapshotStore.
func (s *InMemoryStore) SaveSnapshot(ctx context.Context, next domain.Snapshot, events []domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if next.Version != s.state.Version {
		return fmt.Errorf("%w: store is at version %d, write based on %d", domain.ErrVersionConflict, s.state.Version, next.Version)
	}
	state := next.Clone()
	state.Version = next.Version + 1
	s.state = state
	s.events = append(s.events, events...)
	return nil
}

// Events returns every event recorded so far.
func (s *InMemoryStore) Events() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}
