package latencyprobe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/granada-os/personalization/internal/domain/location"
	"github.com/granada-os/personalization/internal/platform/logging"
)

const (
	defaultTimeout = 3 * time.Second
	defaultWorkers = 3
)

type Config struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Workers    int
	Logger     *logging.Logger
}

// Prober times HEAD requests to the probe targets from the server.
type Prober struct {
	client  *http.Client
	timeout time.Duration
	workers int
	logger  *logging.Logger
	now     func() time.Time
}

func New(cfg Config) *Prober {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	return &Prober{client: client, timeout: timeout, workers: workers, logger: logger, now: time.Now}
}

// Probe returns one sample per reachable target. Failed targets are left out.
func (p *Prober) Probe(ctx context.Context, targets []location.ProbeTarget) []location.LatencySample {
	if len(targets) == 0 {
		return nil
	}

	pool, err := ants.NewPool(min(p.workers, len(targets)))
	if err != nil {
		p.logger.WarnContext(ctx, "create latency probe pool failed", "error", err)
		return nil
	}
	defer pool.Release()

	var (
		mu      sync.Mutex
		samples = make([]location.LatencySample, 0, len(targets))
		workers sync.WaitGroup
	)
	for _, target := range targets {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			millis, err := p.measure(ctx, target)
			if err != nil {
				p.logger.DebugContext(ctx, "latency probe failed", "target", target.Name, "error", err)
				return
			}
			mu.Lock()
			samples = append(samples, location.LatencySample{Target: target.Name, Millis: millis})
			mu.Unlock()
		}); err != nil {
			workers.Done()
			p.logger.WarnContext(ctx, "submit latency probe failed", "target", target.Name, "error", err)
		}
	}
	workers.Wait()

	slices.SortFunc(samples, func(a, b location.LatencySample) int {
		switch {
		case a.Millis < b.Millis:
			return -1
		case a.Millis > b.Millis:
			return 1
		default:
			return 0
		}
	})
	return samples
}

func (p *Prober) measure(ctx context.Context, target location.ProbeTarget) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("build probe request: %w", err)
	}

	start := p.now()
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", target.Name, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return 0, fmt.Errorf("probe %s: status=%d", target.Name, resp.StatusCode)
	}

	return float64(p.now().Sub(start).Microseconds()) / 1000, nil
}
