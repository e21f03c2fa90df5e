package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/granada-os/personalization/internal/platform/resilience"
)

var ErrNilLoader = errors.New("cache loader is required")

type item[V any] struct {
	value     V
	storedAt  time.Time
	expiresAt time.Time
}

// Store is an in-process TTL map. A zero TTL keeps entries until deleted.
// Expired entries are swept from Set at most once per TTL. With a size cap,
// Set evicts the oldest entry to make room for a new key.
type Store[V any] struct {
	mu         sync.RWMutex
	items      map[string]item[V]
	ttl        time.Duration
	maxEntries int
	nextSweep  time.Time
	flight     resilience.SingleFlight[V]
	now        func() time.Time
}

func NewStore[V any](ttl time.Duration) *Store[V] {
	return &Store[V]{
		items: make(map[string]item[V]),
		ttl:   ttl,
		now:   time.Now,
	}
}

// WithClock swaps the time source; intended for tests.
func (s *Store[V]) WithClock(now func() time.Time) *Store[V] {
	if now != nil {
		s.now = now
	}
	return s
}

// WithMaxEntries caps the number of entries. Zero or less means no cap.
func (s *Store[V]) WithMaxEntries(n int) *Store[V] {
	s.maxEntries = max(n, 0)
	return s
}

func (s *Store[V]) TTL() time.Duration {
	return s.ttl
}

func (s *Store[V]) Get(_ context.Context, key string) (V, bool) {
	var zero V
	if key == "" {
		return zero, false
	}

	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if s.expired(it) {
		s.mu.Lock()
		if current, still := s.items[key]; still && s.expired(current) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return zero, false
	}

	return it.value, true
}

// Age reports how long ago the live entry for key was stored.
func (s *Store[V]) Age(_ context.Context, key string) (time.Duration, bool) {
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()
	if !ok || s.expired(it) {
		return 0, false
	}
	return s.now().Sub(it.storedAt), true
}

func (s *Store[V]) Set(_ context.Context, key string, value V) {
	if key == "" {
		return
	}

	now := s.now()
	it := item[V]{value: value, storedAt: now}
	if s.ttl > 0 {
		it.expiresAt = now.Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ttl > 0 && !now.Before(s.nextSweep) {
		s.purgeExpiredLocked()
		s.nextSweep = now.Add(s.ttl)
	}
	if _, exists := s.items[key]; !exists && s.maxEntries > 0 && len(s.items) >= s.maxEntries {
		s.purgeExpiredLocked()
		for len(s.items) >= s.maxEntries {
			s.evictOldestLocked()
		}
	}
	s.items[key] = it
}

func (s *Store[V]) Delete(_ context.Context, key string) {
	if key == "" {
		return
	}

	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

func (s *Store[V]) DeletePrefix(_ context.Context, prefix string) {
	if prefix == "" {
		return
	}

	s.mu.Lock()
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			delete(s.items, key)
		}
	}
	s.mu.Unlock()
}

// Len counts live entries and drops expired ones on the way.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked()
	return len(s.items)
}

func (s *Store[V]) purgeExpiredLocked() {
	for key, it := range s.items {
		if s.expired(it) {
			delete(s.items, key)
		}
	}
}

func (s *Store[V]) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for key, it := range s.items {
		if !found || it.storedAt.Before(oldestAt) {
			oldestKey, oldestAt, found = key, it.storedAt, true
		}
	}
	if found {
		delete(s.items, oldestKey)
	}
}

// GetOrLoad returns the cached value or runs loader once per key across
// concurrent callers. Loader errors are not cached.
func (s *Store[V]) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (V, error)) (V, error) {
	var zero V
	if loader == nil {
		return zero, ErrNilLoader
	}
	if key == "" {
		return loader(ctx)
	}

	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	value, err, _ := s.flight.Do(key, func() (V, error) {
		if cached, ok := s.Get(ctx, key); ok {
			return cached, nil
		}

		loaded, loadErr := loader(ctx)
		if loadErr != nil {
			return zero, loadErr
		}
		s.Set(ctx, key, loaded)
		return loaded, nil
	})
	if err != nil {
		return zero, err
	}

	return value, nil
}

func (s *Store[V]) expired(it item[V]) bool {
	if s.ttl <= 0 {
		return false
	}
	return !it.expiresAt.After(s.now())
}
