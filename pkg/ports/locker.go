package ports

import (
	"context"
	"time"
)

// DefaultLockTTL bounds how long a snapshot write may hold its lock.
const DefaultLockTTL = 10 * time.Second

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes snapshot writes for one root across replicas
// that share a SnapshotStore.
type DistributedLocker interface {
	// Lock blocks until the lock for key is held or ctx is done. The lock is
	// dropped by the backend after ttl even if the UnlockFunc is never called.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
