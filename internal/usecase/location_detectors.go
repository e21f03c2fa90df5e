package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/granada-os/personalization/internal/domain/location"
)

// TimezoneDetector maps the client's UTC offset to the first country of that offset band.
// An offset outside the table still yields a guess, with Country "Unknown".
type TimezoneDetector struct {
	now func() time.Time
}

func NewTimezoneDetector() *TimezoneDetector {
	return &TimezoneDetector{now: time.Now}
}

func (d *TimezoneDetector) Name() string { return string(location.SourceTimezone) }

func (d *TimezoneDetector) Detect(_ context.Context, signals location.Signals) (location.Guess, error) {
	now := d.now()
	offset, err := resolveOffsetMinutes(signals, now)
	if err != nil {
		return location.Guess{}, err
	}

	label := location.FormatUTCOffset(offset)
	country, ok := location.CountryForOffset(label)
	if !ok {
		country = location.UnknownCountry
	}

	return location.Guess{
		Country:    country,
		Region:     "Detected via timezone",
		City:       "Unknown",
		Continent:  location.ContinentOf(country),
		Timezone:   signals.TimeZone,
		Currency:   location.CurrencyOf(country),
		Language:   location.BaseLanguage(signals.Language),
		Confidence: location.ConfidenceTimezone,
		Source:     location.SourceTimezone,
		DetectedAt: now,
	}, nil
}

func resolveOffsetMinutes(signals location.Signals, now time.Time) (int, error) {
	if signals.UTCOffsetMinutes != nil {
		return *signals.UTCOffsetMinutes, nil
	}
	tz := strings.TrimSpace(signals.TimeZone)
	if tz == "" {
		return 0, fmt.Errorf("%w: no timezone or offset", ErrNoSignal)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return 0, fmt.Errorf("%w: load timezone %q: %v", ErrInvalidInput, tz, err)
	}
	_, seconds := now.In(loc).Zone()
	return seconds / 60, nil
}

// LanguageDetector maps the preferred language tag to a country, or "Unknown".
type LanguageDetector struct {
	now func() time.Time
}

func NewLanguageDetector() *LanguageDetector {
	return &LanguageDetector{now: time.Now}
}

func (d *LanguageDetector) Name() string { return string(location.SourceLanguage) }

func (d *LanguageDetector) Detect(_ context.Context, signals location.Signals) (location.Guess, error) {
	tag := strings.TrimSpace(signals.Language)
	if tag == "" {
		return location.Guess{}, fmt.Errorf("%w: no language", ErrNoSignal)
	}
	country, ok := location.CountryForLanguage(tag)
	if !ok {
		country = location.UnknownCountry
	}

	return location.Guess{
		Country:    country,
		Region:     "Detected via language",
		City:       "Unknown",
		Continent:  location.ContinentOf(country),
		Timezone:   signals.TimeZone,
		Currency:   location.CurrencyOf(country),
		Language:   location.BaseLanguage(tag),
		Confidence: location.ConfidenceLanguage,
		Source:     location.SourceLanguage,
		DetectedAt: d.now(),
	}, nil
}

// LatencyProber measures round trips from the server side when the client sent none.
type LatencyProber interface {
	Probe(ctx context.Context, targets []location.ProbeTarget) []location.LatencySample
}

// LatencyDetector picks the probe target with the fastest round trip.
// When no sample is usable it settles on the first target in the table.
type LatencyDetector struct {
	prober LatencyProber
	now    func() time.Time
}

// NewLatencyDetector accepts a nil prober; then only client samples are used.
func NewLatencyDetector(prober LatencyProber) *LatencyDetector {
	return &LatencyDetector{prober: prober, now: time.Now}
}

func (d *LatencyDetector) Name() string { return string(location.SourceLatency) }

func (d *LatencyDetector) Detect(ctx context.Context, signals location.Signals) (location.Guess, error) {
	samples := signals.LatencySamples
	if len(samples) == 0 {
		if d.prober == nil {
			return location.Guess{}, fmt.Errorf("%w: no latency samples", ErrNoSignal)
		}
		samples = d.prober.Probe(ctx, location.ProbeTargets())
	}

	var (
		fastest = location.ProbeTargets()[0]
		best    = math.Inf(1)
	)
	for _, s := range samples {
		target, ok := location.ProbeTargetByName(s.Target)
		if !ok || math.IsNaN(s.Millis) || math.IsInf(s.Millis, 0) || s.Millis < 0 {
			continue
		}
		if s.Millis < best {
			best = s.Millis
			fastest = target
		}
	}
	country := fastest.Countries[0]
	return location.Guess{
		Country:    country,
		Region:     fastest.Region,
		City:       "Unknown",
		Continent:  location.ContinentOf(country),
		Timezone:   signals.TimeZone,
		Currency:   location.CurrencyOf(country),
		Language:   location.BaseLanguage(signals.Language),
		Confidence: location.ConfidenceLatency,
		Source:     location.SourceLatency,
		DetectedAt: d.now(),
	}, nil
}
