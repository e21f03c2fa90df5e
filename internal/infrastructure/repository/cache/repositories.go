package cache

import (
	"context"
	"time"

	"github.com/granada-os/personalization/internal/domain/location"
	"github.com/granada-os/personalization/internal/domain/onboarding"
	basecache "github.com/granada-os/personalization/internal/platform/cache"
)

type cachedProgress struct {
	value  onboarding.Progress
	exists bool
}

// ProgressRepository is a read-through cache in front of the durable progress store.
type ProgressRepository struct {
	next  onboarding.ProgressRepository
	cache *basecache.Store[cachedProgress]
}

func NewProgressRepository(next onboarding.ProgressRepository, ttl time.Duration) *ProgressRepository {
	return &ProgressRepository{next: next, cache: basecache.NewStore[cachedProgress](ttl)}
}

func (r *ProgressRepository) GetProgress(ctx context.Context, sessionID string) (onboarding.Progress, bool, error) {
	cached, err := r.cache.GetOrLoad(ctx, progressKey(sessionID), func(ctx context.Context) (cachedProgress, error) {
		item, exists, err := r.next.GetProgress(ctx, sessionID)
		if err != nil {
			return cachedProgress{}, err
		}
		return cachedProgress{value: item, exists: exists}, nil
	})
	if err != nil {
		return onboarding.Progress{}, false, err
	}

	return cloneProgress(cached.value), cached.exists, nil
}

func (r *ProgressRepository) UpsertProgress(ctx context.Context, sessionID string, progress onboarding.Progress) error {
	if err := r.next.UpsertProgress(ctx, sessionID, progress); err != nil {
		r.cache.Delete(ctx, progressKey(sessionID))
		return err
	}
	r.cache.Set(ctx, progressKey(sessionID), cachedProgress{value: cloneProgress(progress), exists: true})
	return nil
}

func (r *ProgressRepository) DeleteProgress(ctx context.Context, sessionID string) error {
	defer r.cache.Delete(ctx, progressKey(sessionID))
	return r.next.DeleteProgress(ctx, sessionID)
}

func progressKey(sessionID string) string {
	return "progress:session:" + sessionID
}

func cloneProgress(item onboarding.Progress) onboarding.Progress {
	copied := item
	if item.UserLocation != nil {
		loc := *item.UserLocation
		copied.UserLocation = &loc
	}
	return copied
}

// SnapshotRepository keeps recent location snapshots in memory and writes through.
type SnapshotRepository struct {
	next  location.SnapshotRepository
	cache *basecache.Store[location.Snapshot]
}

func NewSnapshotRepository(next location.SnapshotRepository, ttl time.Duration) *SnapshotRepository {
	return &SnapshotRepository{next: next, cache: basecache.NewStore[location.Snapshot](ttl)}
}

func (r *SnapshotRepository) GetSnapshot(ctx context.Context, clientKey string) (location.Snapshot, bool, error) {
	key := "snapshot:" + clientKey
	if snap, ok := r.cache.Get(ctx, key); ok {
		return snap, true, nil
	}

	snap, ok, err := r.next.GetSnapshot(ctx, clientKey)
	if err != nil || !ok {
		return location.Snapshot{}, ok, err
	}
	r.cache.Set(ctx, key, snap)
	return snap, true, nil
}

func (r *SnapshotRepository) PutSnapshot(ctx context.Context, snapshot location.Snapshot) error {
	if err := r.next.PutSnapshot(ctx, snapshot); err != nil {
		return err
	}
	r.cache.Set(ctx, "snapshot:"+snapshot.ClientKey, snapshot)
	return nil
}
