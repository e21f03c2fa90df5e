package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/granada-os/personalization/internal/domain/location"
	locationmock "github.com/granada-os/personalization/internal/mocks/domain/location"
	"github.com/granada-os/personalization/internal/platform/logging"
)

func newStubDetector(t *testing.T, name string, guess location.Guess, err error) *locationmock.Detector {
	t.Helper()

	d := locationmock.NewDetector(t)
	d.On("Name").Return(name).Maybe()
	d.On("Detect", mock.Anything, mock.Anything).Return(guess, err).Maybe()
	return d
}

func TestLocationService_Detect_PicksHighestConfidence(t *testing.T) {
	t.Parallel()

	ip := newStubDetector(t, "ip_api", location.Guess{Country: "Nigeria", City: "Lagos", Confidence: location.ConfidenceIPAPI, Source: location.SourceIPAPI}, nil)
	tz := newStubDetector(t, "timezone", location.Guess{Country: "Kenya", Confidence: location.ConfidenceTimezone, Source: location.SourceTimezone}, nil)
	lang := newStubDetector(t, "language", location.Guess{}, ErrNoSignal)

	snapshots := locationmock.NewSnapshotRepository(t)
	snapshots.
		On("PutSnapshot", mock.Anything, mock.MatchedBy(func(s location.Snapshot) bool {
			return s.ClientKey == "session:abc" && s.Guess.Country == "Nigeria"
		})).
		Return(nil).
		Once()

	service := NewLocationService([]location.Detector{ip, tz, lang}, snapshots, logging.NewNop(), LocationServiceConfig{})
	got := service.Detect(context.Background(), location.Signals{SessionID: "abc"})

	assert.Equal(t, "Nigeria", got.Country)
	assert.Equal(t, "Africa", got.Continent)
	assert.Equal(t, "NGN", got.Currency)
	assert.Equal(t, location.SourceIPAPI, got.Source)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)
}

func TestLocationService_Detect_TiesKeepDetectorOrder(t *testing.T) {
	t.Parallel()

	first := newStubDetector(t, "timezone", location.Guess{Country: "Kenya", Confidence: 0.5}, nil)
	second := newStubDetector(t, "language", location.Guess{Country: "France", Confidence: 0.5}, nil)

	service := NewLocationService([]location.Detector{first, second}, nil, logging.NewNop(), LocationServiceConfig{})
	got := service.Detect(context.Background(), location.Signals{ClientIP: "10.0.0.1"})

	assert.Equal(t, "Kenya", got.Country)
}

func TestLocationService_Detect_FallsBackWhenEveryDetectorFails(t *testing.T) {
	t.Parallel()

	offset := 60
	tests := []struct {
		name    string
		signals location.Signals
		country string
	}{
		{name: "no signals", signals: location.Signals{SessionID: "s-1"}, country: "Kenya"},
		{name: "offset known", signals: location.Signals{SessionID: "s-2", UTCOffsetMinutes: &offset}, country: "Nigeria"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			failing := newStubDetector(t, "ip_api", location.Guess{}, errors.New("provider down"))
			service := NewLocationService([]location.Detector{failing}, nil, logging.NewNop(), LocationServiceConfig{})

			got := service.Detect(context.Background(), tc.signals)
			assert.Equal(t, tc.country, got.Country)
			assert.Equal(t, location.SourceFallback, got.Source)
			assert.InDelta(t, location.ConfidenceFallback, got.Confidence, 1e-9)
			assert.Equal(t, "en", got.Language)
		})
	}
}

func TestLocationService_Detect_NoDetectorsStillAnswers(t *testing.T) {
	t.Parallel()

	service := NewLocationService(nil, nil, logging.NewNop(), LocationServiceConfig{})
	got := service.Detect(context.Background(), location.Signals{})

	assert.GreaterOrEqual(t, got.Confidence, 0.0)
	assert.LessOrEqual(t, got.Confidence, 1.0)
	assert.Equal(t, location.SourceFallback, got.Source)
}

func TestLocationService_Detect_UsesFreshSnapshotWhenDetectorsFail(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	failing := newStubDetector(t, "ip_api", location.Guess{}, errors.New("timeout"))
	snapshots := locationmock.NewSnapshotRepository(t)
	snapshots.
		On("GetSnapshot", mock.Anything, "ip:41.90.1.1").
		Return(location.Snapshot{
			ClientKey: "ip:41.90.1.1",
			Guess:     location.Guess{Country: "Uganda", Confidence: 1.7, Source: location.SourceIPAPI},
			StoredAt:  now.Add(-5 * time.Minute),
		}, true, nil).
		Once()

	service := NewLocationService([]location.Detector{failing}, snapshots, logging.NewNop(), LocationServiceConfig{})
	service.now = func() time.Time { return now }

	got := service.Detect(context.Background(), location.Signals{ClientIP: "41.90.1.1"})
	assert.Equal(t, "Uganda", got.Country)
	assert.Equal(t, location.SourceCache, got.Source)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestLocationService_Detect_IgnoresStaleSnapshot(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	failing := newStubDetector(t, "ip_api", location.Guess{}, errors.New("timeout"))
	snapshots := locationmock.NewSnapshotRepository(t)
	snapshots.
		On("GetSnapshot", mock.Anything, "ip:41.90.1.1").
		Return(location.Snapshot{
			Guess:    location.Guess{Country: "Uganda", Confidence: 0.8},
			StoredAt: now.Add(-DefaultLocationCacheTTL),
		}, true, nil).
		Once()

	service := NewLocationService([]location.Detector{failing}, snapshots, logging.NewNop(), LocationServiceConfig{})
	service.now = func() time.Time { return now }

	got := service.Detect(context.Background(), location.Signals{ClientIP: "41.90.1.1"})
	assert.Equal(t, location.SourceFallback, got.Source)
}

func TestLocationService_Detect_CachesPerClient(t *testing.T) {
	t.Parallel()

	d := locationmock.NewDetector(t)
	d.On("Name").Return("timezone").Maybe()
	d.On("Detect", mock.Anything, mock.Anything).
		Return(location.Guess{Country: "Kenya", Confidence: location.ConfidenceTimezone}, nil).
		Once()

	service := NewLocationService([]location.Detector{d}, nil, logging.NewNop(), LocationServiceConfig{})
	first := service.Detect(context.Background(), location.Signals{SessionID: "same"})
	second := service.Detect(context.Background(), location.Signals{SessionID: "same"})

	require.Equal(t, first, second)
}

func TestLocationService_Detect_DoesNotLeakGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	slow := locationmock.NewDetector(t)
	slow.On("Name").Return("latency").Maybe()
	slow.On("Detect", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, _ location.Signals) (location.Guess, error) {
			<-ctx.Done()
			return location.Guess{}, ctx.Err()
		}).
		Once()
	fast := newStubDetector(t, "timezone", location.Guess{Country: "Kenya", Confidence: 0.6}, nil)

	service := NewLocationService([]location.Detector{slow, fast}, nil, logging.NewNop(), LocationServiceConfig{
		DetectBudget: 20 * time.Millisecond,
	})
	got := service.Detect(context.Background(), location.Signals{SessionID: "leak"})
	assert.Equal(t, "Kenya", got.Country)
}

func TestClientKey(t *testing.T) {
	t.Parallel()

	offset := 180
	assert.Equal(t, "session:abc", ClientKey(location.Signals{SessionID: " abc ", ClientIP: "1.1.1.1"}))
	assert.Equal(t, "ip:1.1.1.1", ClientKey(location.Signals{ClientIP: "1.1.1.1"}))

	fp := ClientKey(location.Signals{TimeZone: "Africa/Nairobi", Language: "sw", UTCOffsetMinutes: &offset})
	assert.Regexp(t, `^fp:[0-9a-f]{16}$`, fp)
	assert.Equal(t, fp, ClientKey(location.Signals{TimeZone: "Africa/Nairobi", Language: "sw", UTCOffsetMinutes: &offset}))
	assert.NotEqual(t, fp, ClientKey(location.Signals{TimeZone: "Europe/Paris", Language: "fr"}))
}
