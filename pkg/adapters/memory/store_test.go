package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	tests.SnapshotStoreContractTest(t, memory.NewStore())
}

func TestMemoryStore_SaveCopies(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	snap := domain.NewSnapshot("root", 1)
	snap.States["/Root@0"] = 1
	require.NoError(t, store.Save(ctx, "root", snap))

	snap.States["/Root@0"] = 2

	loaded, err := store.Load(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.States["/Root@0"])
}

func TestRenderer_Last(t *testing.T) {
	r := memory.NewRenderer()
	gen, diff := r.Last()
	assert.Nil(t, gen)
	assert.Nil(t, diff)

	g := domain.NewGeneration(1, domain.TriggerInitial)
	require.NoError(t, r.Publish(context.Background(), g, &domain.TreeDiff{Generation: 1}))

	gen, diff = r.Last()
	assert.Same(t, g, gen)
	assert.Equal(t, uint64(1), diff.Generation)
	assert.Equal(t, 1, r.Published())
}
