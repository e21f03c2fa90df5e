package memory

import (
	"context"
	"sync"
	"time"

	"github.com/granada-os/personalization/internal/domain/onboarding"
)

// DefaultSessionTTL is how long an untouched flow session survives.
const DefaultSessionTTL = 24 * time.Hour

type sessionEntry struct {
	session   onboarding.Session
	expiresAt time.Time
}

// SessionRepository keeps flow sessions in process. Sessions hold the password, so they are never persisted.
// Every save extends the session's life by the TTL; expired sessions read as missing and are dropped.
type SessionRepository struct {
	mu    sync.Mutex
	items map[string]sessionEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewSessionRepository uses DefaultSessionTTL when ttl is not positive.
func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionRepository{
		items: make(map[string]sessionEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// WithClock swaps the time source; intended for tests.
func (r *SessionRepository) WithClock(now func() time.Time) *SessionRepository {
	if now != nil {
		r.now = now
	}
	return r
}

func (r *SessionRepository) GetSession(_ context.Context, id string) (onboarding.Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.items[id]
	if !ok {
		return onboarding.Session{}, false, nil
	}
	if !entry.expiresAt.After(r.now()) {
		delete(r.items, id)
		return onboarding.Session{}, false, nil
	}

	return cloneSession(entry.session), true, nil
}

func (r *SessionRepository) SaveSession(_ context.Context, session onboarding.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[session.ID] = sessionEntry{
		session:   cloneSession(session),
		expiresAt: r.now().Add(r.ttl),
	}
	return nil
}

func (r *SessionRepository) DeleteSession(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, id)
	return nil
}

// PurgeExpired drops every expired session and returns how many were removed.
func (r *SessionRepository) PurgeExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, entry := range r.items {
		if !entry.expiresAt.After(now) {
			delete(r.items, id)
			removed++
		}
	}
	return removed
}

// RunJanitor purges expired sessions every interval until ctx is done.
func (r *SessionRepository) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.PurgeExpired()
		}
	}
}

func cloneSession(item onboarding.Session) onboarding.Session {
	copied := item
	copied.Profile.FundingGoals = append([]string(nil), item.Profile.FundingGoals...)
	return copied
}
