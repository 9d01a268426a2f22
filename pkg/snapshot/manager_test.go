package snapshot_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowStore simulates latency and counts overlapping calls.
type slowStore struct {
	*memory.Store
	mu       sync.Mutex
	active   int
	overlaps int
}

func (s *slowStore) Save(ctx context.Context, rootID string, snap *domain.Snapshot) error {
	s.mu.Lock()
	s.active++
	if s.active > 1 {
		s.overlaps++
	}
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	s.mu.Lock()
	s.active--
	s.mu.Unlock()
	return s.Store.Save(ctx, rootID, snap)
}

func TestManager_SerializesWritesPerRoot(t *testing.T) {
	store := &slowStore{Store: memory.NewStore()}
	mgr := snapshot.NewManager(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(gen uint64) {
			defer wg.Done()
			assert.NoError(t, mgr.Save(ctx, "root", domain.NewSnapshot("root", gen)))
		}(uint64(i))
	}
	wg.Wait()

	assert.Equal(t, 0, store.overlaps)
}

func TestManager_LoadOrEmpty(t *testing.T) {
	mgr := snapshot.NewManager(memory.NewStore())
	ctx := context.Background()

	snap, err := mgr.LoadOrEmpty(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", snap.RootID)
	assert.Empty(t, snap.States)

	saved := domain.NewSnapshot("fresh", 4)
	saved.States["/Root@0"] = "x"
	require.NoError(t, mgr.Save(ctx, "fresh", saved))

	snap, err = mgr.LoadOrEmpty(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), snap.Generation)

	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, ids)
}

type fakeLocker struct {
	mu       sync.Mutex
	locked   []string
	unlocked int
	ttl      time.Duration
	err      error
}

func (l *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.locked = append(l.locked, key)
	l.ttl = ttl
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocked++
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &fakeLocker{}
	mgr := snapshot.NewManager(memory.NewStore(),
		snapshot.WithLocker(locker),
		snapshot.WithLockTTL(time.Second),
	)
	ctx := context.Background()

	require.NoError(t, mgr.Save(ctx, "root", domain.NewSnapshot("root", 1)))
	_, err := mgr.Load(ctx, "root")
	require.NoError(t, err)

	assert.Equal(t, []string{"root", "root"}, locker.locked)
	assert.Equal(t, 2, locker.unlocked)
	assert.Equal(t, time.Second, locker.ttl)
}

func TestManager_DistributedLockFailure(t *testing.T) {
	locker := &fakeLocker{err: errors.New("redis down")}
	mgr := snapshot.NewManager(memory.NewStore(), snapshot.WithLocker(locker))

	err := mgr.Save(context.Background(), "root", domain.NewSnapshot("root", 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}
