package memory

import (
	"context"
	"sync"

	"github.com/granada-os/personalization/internal/domain/onboarding"
)

type ProgressRepository struct {
	mu    sync.RWMutex
	items map[string]onboarding.Progress
}

func NewProgressRepository() *ProgressRepository {
	return &ProgressRepository{items: make(map[string]onboarding.Progress)}
}

func (r *ProgressRepository) GetProgress(_ context.Context, sessionID string) (onboarding.Progress, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[sessionID]
	if !ok {
		return onboarding.Progress{}, false, nil
	}

	return cloneProgress(item), true, nil
}

func (r *ProgressRepository) UpsertProgress(_ context.Context, sessionID string, progress onboarding.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[sessionID] = cloneProgress(progress)
	return nil
}

func (r *ProgressRepository) DeleteProgress(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, sessionID)
	return nil
}

func cloneProgress(item onboarding.Progress) onboarding.Progress {
	copied := item
	if item.UserLocation != nil {
		loc := *item.UserLocation
		copied.UserLocation = &loc
	}
	return copied
}
