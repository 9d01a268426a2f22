package middleware_test

import (
	"context"
	"sort"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware. It keeps the
// exact pointer it was given so tests can inspect what reached the backend.
type MockStore struct {
	data map[string]*domain.Snapshot
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.Snapshot),
	}
}

func (s *MockStore) Save(ctx context.Context, rootID string, snap *domain.Snapshot) error {
	s.data[rootID] = snap
	return nil
}

func (s *MockStore) Load(ctx context.Context, rootID string) (*domain.Snapshot, error) {
	snap, ok := s.data[rootID]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return snap, nil
}

func (s *MockStore) Delete(ctx context.Context, rootID string) error {
	delete(s.data, rootID)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

var _ ports.SnapshotStore = (*MockStore)(nil)
