package memory

import (
	"context"
	"sync"

	"github.com/granada-os/personalization/internal/domain/location"
)

type SnapshotRepository struct {
	mu    sync.RWMutex
	items map[string]location.Snapshot
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{items: make(map[string]location.Snapshot)}
}

func (r *SnapshotRepository) GetSnapshot(_ context.Context, clientKey string) (location.Snapshot, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[clientKey]
	return item, ok, nil
}

func (r *SnapshotRepository) PutSnapshot(_ context.Context, snapshot location.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[snapshot.ClientKey] = snapshot
	return nil
}
