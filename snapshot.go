package arbor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

// Snapshot captures every linked state value keyed by position.
func (e *Engine) Snapshot() *domain.Snapshot {
	var gen uint64
	if cur := e.Current(); cur != nil {
		gen = cur.Number
	}
	return e.capture(gen)
}

func (e *Engine) capture(generation uint64) *domain.Snapshot {
	snap := domain.NewSnapshot(e.rootID, generation)
	for _, entry := range e.store.Entries() {
		snap.States[entry.Position] = entry.Value
		if h, ok := e.registry.Lookup(entry.Handle); ok {
			snap.Types[entry.Position] = h.TypeName
		}
	}
	snap.SavedAt = time.Now()
	return snap
}

// Restore seeds the store with the persisted snapshot for this root. Seeds
// are consumed by the first build that links each position, so Restore must
// run before the positions are built. A missing snapshot is not an error.
func (e *Engine) Restore(ctx context.Context) error {
	if e.snapshots == nil {
		return fmt.Errorf("no snapshot manager configured")
	}
	snap, err := e.snapshots.Load(ctx, e.rootID)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
	e.RestoreFrom(snap)
	return nil
}

// RestoreFrom seeds the store from snap.
func (e *Engine) RestoreFrom(snap *domain.Snapshot) {
	if snap == nil {
		return
	}
	e.store.Seed(snap.States)
	e.logger.Info("state restored from snapshot",
		"generation", snap.Generation,
		"entries", len(snap.States),
	)
}
