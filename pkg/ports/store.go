package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// SnapshotStore defines the interface for persisting state snapshots.
// This lets a tree resume its component state after a process restart.
type SnapshotStore interface {
	// Save persists the snapshot for a given root ID.
	Save(ctx context.Context, rootID string, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a given root ID.
	// Returns domain.ErrSnapshotNotFound if the snapshot does not exist.
	Load(ctx context.Context, rootID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given root ID.
	Delete(ctx context.Context, rootID string) error

	// List returns the root IDs that have a snapshot.
	List(ctx context.Context) ([]string, error)
}
