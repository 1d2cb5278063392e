package state

import (
	"context"
	"sync"

	"certwatch/internal/domain"
)

// MemoryStore keeps the snapshot in process memory.
// Params: mutex-guarded snapshot map.
// Returns: store implementation without external dependencies.
type MemoryStore struct {
	mu       sync.Mutex
	snapshot domain.Snapshot
}

// NewMemoryStore creates an in-memory snapshot store.
// Params: none.
// Returns: initialized empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshot: domain.Snapshot{}}
}

// Load returns a copy of the held snapshot.
// Params: context (unused).
// Returns: snapshot copy, never shared with callers.
func (s *MemoryStore) Load(_ context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(domain.Snapshot, len(s.snapshot))
	for key, value := range s.snapshot {
		out[key] = value
	}
	return out, nil
}

// Save replaces the held snapshot with a copy of the argument.
// Params: context (unused) and snapshot to keep.
// Returns: nil.
func (s *MemoryStore) Save(_ context.Context, snapshot domain.Snapshot) error {
	copied := make(domain.Snapshot, len(snapshot))
	for key, value := range snapshot {
		copied[key] = value
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = copied
	return nil
}

// Close releases memory store resources.
// Params: none.
// Returns: nil.
func (s *MemoryStore) Close() error {
	return nil
}
