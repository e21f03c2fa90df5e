package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/granada-os/personalization/internal/domain/location"
	"github.com/granada-os/personalization/internal/platform/cache"
	"github.com/granada-os/personalization/internal/platform/logging"
)

const (
	DefaultLocationCacheTTL     = 15 * time.Minute
	DefaultLocationCacheEntries = 10000
	DefaultLocationDetectBudget = 5 * time.Second
)

var errAllDetectorsFailed = errors.New("all location detectors failed")

type LocationServiceConfig struct {
	CacheTTL        time.Duration
	CacheMaxEntries int
	DetectBudget    time.Duration
}

// LocationService combines the detectors into one guess per client. It never fails.
type LocationService struct {
	detectors []location.Detector
	cache     *cache.Store[location.Guess]
	snapshots location.SnapshotRepository
	logger    *logging.Logger
	cfg       LocationServiceConfig
	now       func() time.Time
}

// NewLocationService runs detectors in the given order; ties in confidence go to the earlier one.
func NewLocationService(
	detectors []location.Detector,
	snapshots location.SnapshotRepository,
	logger *logging.Logger,
	cfg LocationServiceConfig,
) *LocationService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultLocationCacheTTL
	}
	if cfg.CacheMaxEntries <= 0 {
		cfg.CacheMaxEntries = DefaultLocationCacheEntries
	}
	if cfg.DetectBudget <= 0 {
		cfg.DetectBudget = DefaultLocationDetectBudget
	}

	active := make([]location.Detector, 0, len(detectors))
	for _, d := range detectors {
		if d != nil {
			active = append(active, d)
		}
	}

	return &LocationService{
		detectors: active,
		cache:     cache.NewStore[location.Guess](cfg.CacheTTL).WithMaxEntries(cfg.CacheMaxEntries),
		snapshots: snapshots,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *LocationService) Detect(ctx context.Context, signals location.Signals) location.Guess {
	key := ClientKey(signals)
	ctx, span := startUsecaseSpan(ctx, "usecase.LocationService.Detect", attribute.Int("location.detectors", len(s.detectors)))
	defer span.End()

	guess, err := s.cache.GetOrLoad(ctx, key, func(ctx context.Context) (location.Guess, error) {
		detected, err := s.detectAll(ctx, signals)
		if err != nil {
			return location.Guess{}, err
		}
		s.mirror(ctx, key, detected)
		return detected, nil
	})
	if err == nil {
		span.SetAttributes(attribute.String("location.source", string(guess.Source)))
		return guess
	}

	s.logger.WarnContext(ctx, "location detection failed, falling back", "client_key", key, "error", err)
	if stored, ok := s.storedGuess(ctx, key); ok {
		return stored
	}
	return location.Fallback(signals, s.now())
}

// ClientKey identifies a client for caching: session first, then IP, then a digest of the signals.
func ClientKey(signals location.Signals) string {
	if v := strings.TrimSpace(signals.SessionID); v != "" {
		return "session:" + v
	}
	if v := strings.TrimSpace(signals.ClientIP); v != "" {
		return "ip:" + v
	}

	var b strings.Builder
	b.WriteString(signals.TimeZone)
	b.WriteByte('|')
	b.WriteString(signals.Language)
	b.WriteByte('|')
	if signals.UTCOffsetMinutes != nil {
		b.WriteString(strconv.Itoa(*signals.UTCOffsetMinutes))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return "fp:" + hex.EncodeToString(sum[:8])
}

type rankedGuess struct {
	rank  int
	guess location.Guess
}

func (s *LocationService) detectAll(ctx context.Context, signals location.Signals) (location.Guess, error) {
	if len(s.detectors) == 0 {
		return location.Guess{}, errAllDetectorsFailed
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.DetectBudget)
	defer cancel()

	p := pool.NewWithResults[rankedGuess]().
		WithMaxGoroutines(len(s.detectors)).
		WithContext(ctx)
	for i, d := range s.detectors {
		p.Go(func(ctx context.Context) (rankedGuess, error) {
			g, err := d.Detect(ctx, signals)
			if err != nil {
				s.logger.WarnContext(ctx, "location detector failed", "detector", d.Name(), "error", err)
				return rankedGuess{}, fmt.Errorf("%s: %w", d.Name(), err)
			}
			return rankedGuess{rank: i, guess: g.Complete()}, nil
		})
	}

	results, err := p.Wait()
	if len(results) == 0 {
		if err == nil {
			err = errAllDetectorsFailed
		}
		return location.Guess{}, fmt.Errorf("%w: %w", errAllDetectorsFailed, err)
	}

	slices.SortFunc(results, func(a, b rankedGuess) int { return a.rank - b.rank })
	guesses := make([]location.Guess, len(results))
	for i, r := range results {
		guesses[i] = r.guess
	}
	best, _ := location.Best(guesses)
	if best.DetectedAt.IsZero() {
		best.DetectedAt = s.now()
	}
	return best, nil
}

func (s *LocationService) mirror(ctx context.Context, key string, guess location.Guess) {
	if s.snapshots == nil {
		return
	}
	err := s.snapshots.PutSnapshot(ctx, location.Snapshot{
		ClientKey: key,
		Guess:     guess,
		StoredAt:  s.now(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "mirror location snapshot failed", "client_key", key, "error", err)
	}
}

func (s *LocationService) storedGuess(ctx context.Context, key string) (location.Guess, bool) {
	if s.snapshots == nil {
		return location.Guess{}, false
	}
	snap, ok, err := s.snapshots.GetSnapshot(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "read location snapshot failed", "client_key", key, "error", err)
		return location.Guess{}, false
	}
	if !ok || s.now().Sub(snap.StoredAt) >= s.cfg.CacheTTL {
		return location.Guess{}, false
	}

	g := snap.Guess
	g.Source = location.SourceCache
	g.Confidence = location.ClampConfidence(g.Confidence)
	return g, true
}
