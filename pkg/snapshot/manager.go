package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager guards snapshot access for each root ID.
// Lock entries are reference counted and dropped once nobody waits on them.
type Manager struct {
	store ports.SnapshotStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides ports.DefaultLockTTL for distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager on top of store.
func NewManager(store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: ports.DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) acquire(rootID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[rootID]
	if !exists {
		entry = &lockEntry{}
		m.locks[rootID] = entry
	}
	entry.refs++
	return entry
}

func (m *Manager) release(rootID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[rootID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, rootID)
	}
}

// Save persists snap under rootID.
func (m *Manager) Save(ctx context.Context, rootID string, snap *domain.Snapshot) error {
	return m.WithLock(ctx, rootID, func(ctx context.Context) error {
		if err := m.store.Save(ctx, rootID, snap); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		return nil
	})
}

// Load retrieves the snapshot for rootID.
func (m *Manager) Load(ctx context.Context, rootID string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, rootID, func(ctx context.Context) error {
		var err error
		snap, err = m.store.Load(ctx, rootID)
		return err
	})
	return snap, err
}

// LoadOrEmpty returns the stored snapshot, or an empty one when none exists.
func (m *Manager) LoadOrEmpty(ctx context.Context, rootID string) (*domain.Snapshot, error) {
	snap, err := m.Load(ctx, rootID)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		return domain.NewSnapshot(rootID, 0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return snap, nil
}

// Delete removes the snapshot for rootID.
func (m *Manager) Delete(ctx context.Context, rootID string) error {
	return m.WithLock(ctx, rootID, func(ctx context.Context) error {
		return m.store.Delete(ctx, rootID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// WithLock runs fn while holding the lock for rootID.
func (m *Manager) WithLock(ctx context.Context, rootID string, fn func(context.Context) error) error {
	entry := m.acquire(rootID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(rootID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, rootID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"root_id", rootID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// lockCount is used by tests to detect leaked lock entries.
func (m *Manager) lockCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
