package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/granada-os/personalization/internal/domain/location"
	"github.com/granada-os/personalization/internal/domain/onboarding"
)

func TestProgressRepository_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewProgressRepository()
	loc := &onboarding.ProgressLocation{Country: "Kenya", CountryCode: "KE"}
	require.NoError(t, repo.UpsertProgress(ctx, "s1", onboarding.Progress{CurrentStep: "EMAIL", UserLocation: loc}))

	loc.Country = "Uganda"
	got, ok, err := repo.GetProgress(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Kenya", got.UserLocation.Country)

	got.UserLocation.Country = "Ghana"
	again, _, _ := repo.GetProgress(ctx, "s1")
	assert.Equal(t, "Kenya", again.UserLocation.Country)

	require.NoError(t, repo.DeleteProgress(ctx, "s1"))
	_, ok, err = repo.GetProgress(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionRepository_SaveAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewSessionRepository(0)
	session := onboarding.NewSession("s1", time.Now())
	session.Profile.FundingGoals = []string{"Capacity building"}
	require.NoError(t, repo.SaveSession(ctx, session))

	session.Profile.FundingGoals[0] = "changed"
	got, ok, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"Capacity building"}, got.Profile.FundingGoals)

	require.NoError(t, repo.DeleteSession(ctx, "s1"))
	_, ok, _ = repo.GetSession(ctx, "s1")
	assert.False(t, ok)
}

func TestSessionRepository_ExpiresIdleSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewSessionRepository(time.Hour).WithClock(func() time.Time { return now })

	require.NoError(t, repo.SaveSession(ctx, onboarding.NewSession("active", now)))
	require.NoError(t, repo.SaveSession(ctx, onboarding.NewSession("idle", now)))

	now = now.Add(45 * time.Minute)
	require.NoError(t, repo.SaveSession(ctx, onboarding.NewSession("active", now)))

	now = now.Add(30 * time.Minute)
	_, ok, err := repo.GetSession(ctx, "idle")
	require.NoError(t, err)
	assert.False(t, ok, "idle session should be gone after the TTL")

	_, ok, err = repo.GetSession(ctx, "active")
	require.NoError(t, err)
	assert.True(t, ok, "saving should extend the session's life")

	now = now.Add(time.Hour)
	assert.Equal(t, 1, repo.PurgeExpired())
	assert.Equal(t, 0, repo.PurgeExpired())
}

func TestSessionRepository_RunJanitorStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewSessionRepository(time.Minute).WithClock(func() time.Time { return now })
	require.NoError(t, repo.SaveSession(ctx, onboarding.NewSession("s1", now)))
	now = now.Add(2 * time.Minute)

	done := make(chan struct{})
	go func() {
		defer close(done)
		repo.RunJanitor(ctx, time.Millisecond)
	}()

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.items) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestSnapshotRepository_OverwritesByClientKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewSnapshotRepository()
	require.NoError(t, repo.PutSnapshot(ctx, location.Snapshot{ClientKey: "ip:1.2.3.4", Guess: location.Guess{Country: "Kenya"}}))
	require.NoError(t, repo.PutSnapshot(ctx, location.Snapshot{ClientKey: "ip:1.2.3.4", Guess: location.Guess{Country: "Nigeria"}}))

	got, ok, err := repo.GetSnapshot(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Nigeria", got.Guess.Country)

	_, ok, _ = repo.GetSnapshot(ctx, "ip:5.6.7.8")
	assert.False(t, ok)
}
