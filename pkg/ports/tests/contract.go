package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SnapshotStoreContractTest verifies that an adapter complies with ports.SnapshotStore.
func SnapshotStoreContractTest(t *testing.T, store ports.SnapshotStore) {
	t.Helper()
	ctx := context.Background()
	rootID := "contract-" + time.Now().Format("20060102150405.000000")

	t.Run("SaveAndLoad", func(t *testing.T) {
		snap := domain.NewSnapshot(rootID, 3)
		snap.States["/Root@0/Counter@0"] = 42
		snap.States["/Root@0/Title#t"] = "hello"
		snap.Types["/Root@0/Counter@0"] = "Counter"

		require.NoError(t, store.Save(ctx, rootID, snap))

		loaded, err := store.Load(ctx, rootID)
		require.NoError(t, err)
		assert.Equal(t, rootID, loaded.RootID)
		assert.Equal(t, uint64(3), loaded.Generation)
		assert.Equal(t, "hello", loaded.States["/Root@0/Title#t"])
		assert.Equal(t, "Counter", loaded.Types["/Root@0/Counter@0"])
		// JSON backends turn ints into float64; only presence is part of the contract.
		assert.NotNil(t, loaded.States["/Root@0/Counter@0"])
	})

	t.Run("LoadIsolatedFromCaller", func(t *testing.T) {
		loaded, err := store.Load(ctx, rootID)
		require.NoError(t, err)
		loaded.States["/Root@0/Title#t"] = "mutated"

		again, err := store.Load(ctx, rootID)
		require.NoError(t, err)
		assert.Equal(t, "hello", again.States["/Root@0/Title#t"])
	})

	t.Run("LoadNonExistent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+rootID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("List", func(t *testing.T) {
		other := rootID + "-other"
		require.NoError(t, store.Save(ctx, other, domain.NewSnapshot(other, 1)))
		defer func() { _ = store.Delete(ctx, other) }()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, rootID)
		assert.Contains(t, ids, other)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, rootID))

		_, err := store.Load(ctx, rootID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

		assert.NoError(t, store.Delete(ctx, rootID), "deleting twice is not an error")
	})
}
