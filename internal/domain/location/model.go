package location

import (
	"context"
	"math"
	"time"
)

type Source string

const (
	SourceIPAPI    Source = "ip_api"
	SourceTimezone Source = "timezone"
	SourceLanguage Source = "language"
	SourceLatency  Source = "latency"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// Detector confidence weights. Higher means more trusted.
const (
	ConfidenceIPAPI    = 0.8
	ConfidenceTimezone = 0.6
	ConfidenceLanguage = 0.4
	ConfidenceLatency  = 0.3
	ConfidenceFallback = 0.2
)

const (
	UnknownCountry   = "Unknown"
	UnknownContinent = "Unknown"
	DefaultCountry   = "Kenya"
	DefaultLanguage  = "en"
)

// Guess is a best-effort location estimate. It is never validated against ground truth.
type Guess struct {
	Country    string    `json:"country"`
	Region     string    `json:"region"`
	City       string    `json:"city"`
	Continent  string    `json:"continent"`
	Timezone   string    `json:"timezone"`
	Currency   string    `json:"currency"`
	Language   string    `json:"language"`
	Confidence float64   `json:"confidence"`
	Source     Source    `json:"source"`
	DetectedAt time.Time `json:"detectedAt"`
}

// Signals carries what the client could tell us about itself.
type Signals struct {
	SessionID        string
	ClientIP         string
	TimeZone         string
	Language         string
	UTCOffsetMinutes *int
	LatencySamples   []LatencySample
}

// LatencySample is one client-measured round trip to a probe target.
type LatencySample struct {
	Target string  `json:"target"`
	Millis float64 `json:"millis"`
}

// Detector produces a single guess from the signals or fails.
type Detector interface {
	Name() string
	Detect(ctx context.Context, signals Signals) (Guess, error)
}

// Snapshot is a persisted guess, keyed by client.
type Snapshot struct {
	ClientKey string
	Guess     Guess
	StoredAt  time.Time
}

type SnapshotRepository interface {
	GetSnapshot(ctx context.Context, clientKey string) (Snapshot, bool, error)
	PutSnapshot(ctx context.Context, snapshot Snapshot) error
}

// ClampConfidence keeps v in [0,1]. NaN maps to 0.
func ClampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Best returns the highest-confidence guess. Equal confidences keep the earlier guess.
func Best(guesses []Guess) (Guess, bool) {
	if len(guesses) == 0 {
		return Guess{}, false
	}

	best := guesses[0]
	for _, g := range guesses[1:] {
		if ClampConfidence(g.Confidence) > ClampConfidence(best.Confidence) {
			best = g
		}
	}
	best.Confidence = ClampConfidence(best.Confidence)
	return best, true
}

// Complete fills continent and currency from the country tables when a provider left them out.
func (g Guess) Complete() Guess {
	if g.Country == "" {
		g.Country = UnknownCountry
	}
	if g.Continent == "" {
		g.Continent = ContinentOf(g.Country)
	}
	if g.Currency == "" {
		g.Currency = CurrencyOf(g.Country)
	}
	if g.City == "" {
		g.City = "Unknown"
	}
	if g.Region == "" {
		g.Region = "Unknown"
	}
	g.Confidence = ClampConfidence(g.Confidence)
	return g
}

// Fallback is the last resort when every detector failed and nothing is cached.
func Fallback(signals Signals, now time.Time) Guess {
	country := DefaultCountry
	if signals.UTCOffsetMinutes != nil {
		if c, ok := CountryForOffset(FormatUTCOffset(*signals.UTCOffsetMinutes)); ok {
			country = c
		}
	}

	return Guess{
		Country:    country,
		Region:     "Fallback detection",
		City:       "Unknown",
		Continent:  ContinentOf(country),
		Timezone:   signals.TimeZone,
		Currency:   CurrencyOf(country),
		Language:   DefaultLanguage,
		Confidence: ConfidenceFallback,
		Source:     SourceFallback,
		DetectedAt: now,
	}
}
