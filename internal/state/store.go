package state

import (
	"context"

	"certwatch/internal/domain"
)

// Store provides whole-snapshot persistence for site state.
// Params: load/save operations over the full site-key map.
// Returns: backend persistence behavior.
//
// Load is fail-open: a missing or corrupted backend yields an empty
// snapshot, never an error that would abort a monitoring cycle.
type Store interface {
	Load(ctx context.Context) (domain.Snapshot, error)
	Save(ctx context.Context, snapshot domain.Snapshot) error
	Close() error
}
