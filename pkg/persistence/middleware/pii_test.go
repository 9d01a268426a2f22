package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := NewMockStore()
	secure := middleware.NewPIIMiddleware([]string{"(?i)password", "ssn"})(underlying)
	ctx := context.Background()

	snap := domain.NewSnapshot("root", 1)
	snap.States["/Form@0/Username@0"] = "jdoe"
	snap.States["/Form@0/Password@0"] = "secret123"
	snap.Types["/Form@0/Password@0"] = "Password"
	snap.States["/Form@0/Profile@0"] = map[string]any{
		"address":    "123 St",
		"ssn_number": "999-99-9999",
	}

	require.NoError(t, secure.Save(ctx, "root", snap))

	// The caller's snapshot is untouched.
	assert.Equal(t, "secret123", snap.States["/Form@0/Password@0"])
	assert.Equal(t, "999-99-9999", snap.States["/Form@0/Profile@0"].(map[string]any)["ssn_number"])

	stored, err := underlying.Load(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", stored.States["/Form@0/Username@0"])
	assert.NotContains(t, stored.States, domain.Position("/Form@0/Password@0"))
	assert.NotContains(t, stored.Types, domain.Position("/Form@0/Password@0"))

	profile := stored.States["/Form@0/Profile@0"].(map[string]any)
	assert.Equal(t, middleware.Mask, profile["ssn_number"])
	assert.Equal(t, "123 St", profile["address"])
}

func TestChain_Order(t *testing.T) {
	underlying := NewMockStore()
	key := generateKey(t)
	store := middleware.Chain(underlying,
		middleware.NewPIIMiddleware([]string{"Secret"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)
	ctx := context.Background()

	snap := domain.NewSnapshot("root", 1)
	snap.States["/Root@0/Secret@0"] = "x"
	snap.States["/Root@0/Public@0"] = "y"
	require.NoError(t, store.Save(ctx, "root", snap))

	loaded, err := store.Load(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, "y", loaded.States["/Root@0/Public@0"])
	assert.NotContains(t, loaded.States, domain.Position("/Root@0/Secret@0"))
}
