package geoip

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/granada-os/personalization/internal/domain/location"
	"github.com/granada-os/personalization/internal/platform/logging"
	"github.com/granada-os/personalization/internal/platform/resilience"
	"github.com/granada-os/personalization/internal/usecase"
)

const (
	ProviderIPAPI         = "ipapi"
	ProviderIPInfo        = "ipinfo"
	ProviderIPGeolocation = "ipgeolocation"

	defaultTimeout = 4 * time.Second
	maxBodyBytes   = 1 << 20
)

var errGeoIPTransient = crerr.New("geoip transient failure")

// Endpoint is one provider in lookup order. BaseURL overrides the public host.
type Endpoint struct {
	Name    string
	BaseURL string
}

// DefaultEndpoints is the provider order: ipapi.co, ipinfo.io, ipgeolocation.io.
func DefaultEndpoints() []Endpoint {
	return []Endpoint{
		{Name: ProviderIPAPI, BaseURL: "https://ipapi.co"},
		{Name: ProviderIPInfo, BaseURL: "https://ipinfo.io"},
		{Name: ProviderIPGeolocation, BaseURL: "https://api.ipgeolocation.io"},
	}
}

type ClientConfig struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Endpoints  []Endpoint
	// IPGeolocationAPIKey defaults to the public "free" key.
	IPGeolocationAPIKey string
	// AllowSelfLookup lets an empty client IP resolve the caller's own address.
	AllowSelfLookup bool
	Logger          *logging.Logger
	CircuitBreaker  resilience.CircuitBreakerConfig
}

type provider struct {
	endpoint Endpoint
	breaker  *resilience.CircuitBreaker
}

// Client resolves client IPs through public geolocation providers, first success wins.
type Client struct {
	httpClient      *http.Client
	providers       []provider
	apiKey          string
	allowSelfLookup bool
	circuitEnabled  bool
	logger          *logging.Logger
	flight          resilience.SingleFlight[location.Guess]
	now             func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	endpoints := cfg.Endpoints
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints()
	}
	apiKey := strings.TrimSpace(cfg.IPGeolocationAPIKey)
	if apiKey == "" {
		apiKey = "free"
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)
	onChange := resilience.LogStateChanges(logger, "geoip")
	providers := make([]provider, 0, len(endpoints))
	for _, ep := range endpoints {
		ep.BaseURL = strings.TrimRight(strings.TrimSpace(ep.BaseURL), "/")
		providers = append(providers, provider{
			endpoint: ep,
			breaker:  resilience.NewNamedCircuitBreaker(ep.Name, breakerCfg, onChange),
		})
	}

	return &Client{
		httpClient:      httpClient,
		providers:       providers,
		apiKey:          apiKey,
		allowSelfLookup: cfg.AllowSelfLookup,
		circuitEnabled:  breakerCfg.Enabled,
		logger:          logger,
		now:             time.Now,
	}
}

func (c *Client) Name() string { return string(location.SourceIPAPI) }

// Detect tries each provider in order. There are no retries; a failed provider is skipped.
func (c *Client) Detect(ctx context.Context, signals location.Signals) (location.Guess, error) {
	ip, err := c.lookupIP(signals.ClientIP)
	if err != nil {
		return location.Guess{}, err
	}

	var errs []error
	for _, p := range c.providers {
		guess, err := c.lookup(ctx, p, ip)
		if err == nil {
			if guess.Language == "" || signals.Language != "" {
				guess.Language = location.BaseLanguage(signals.Language)
			}
			if guess.Timezone == "" {
				guess.Timezone = signals.TimeZone
			}
			return guess.Complete(), nil
		}
		c.logger.WarnContext(ctx, "geoip provider failed", "provider", p.endpoint.Name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.endpoint.Name, err))
		if ctx.Err() != nil {
			break
		}
	}

	return location.Guess{}, crerr.Wrap(stderrors.Join(errs...), "all geoip providers failed")
}

func (c *Client) lookupIP(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if c.allowSelfLookup {
			return "", nil
		}
		return "", fmt.Errorf("%w: client ip unknown", usecase.ErrNoSignal)
	}
	addr := net.ParseIP(raw)
	if addr == nil {
		return "", fmt.Errorf("%w: invalid client ip %q", usecase.ErrInvalidInput, raw)
	}
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() || addr.IsLinkLocalUnicast() {
		if c.allowSelfLookup {
			return "", nil
		}
		return "", fmt.Errorf("%w: client ip %s is not routable", usecase.ErrNoSignal, raw)
	}
	return addr.String(), nil
}

func (c *Client) lookup(ctx context.Context, p provider, ip string) (location.Guess, error) {
	if c.circuitEnabled {
		if err := p.breaker.Allow(); err != nil {
			return location.Guess{}, fmt.Errorf("%w: geoip provider %s is temporarily unavailable", usecase.ErrDependencyUnavailable, p.endpoint.Name)
		}
	}

	key := p.endpoint.Name + "|" + ip
	guess, err, _ := c.flight.Do(key, func() (location.Guess, error) {
		raw, reqErr := c.executeRequest(ctx, c.buildURL(p.endpoint, ip))
		var g location.Guess
		if reqErr == nil {
			g, reqErr = normalize(raw, c.now())
		}
		if c.circuitEnabled {
			if reqErr != nil && isCircuitFailure(reqErr) {
				p.breaker.RecordFailure()
			} else {
				p.breaker.RecordSuccess()
			}
		}
		return g, reqErr
	})
	return guess, err
}

func (c *Client) buildURL(ep Endpoint, ip string) string {
	switch ep.Name {
	case ProviderIPInfo:
		if ip == "" {
			return ep.BaseURL + "/json"
		}
		return ep.BaseURL + "/" + url.PathEscape(ip) + "/json"
	case ProviderIPGeolocation:
		values := url.Values{}
		values.Set("apiKey", c.apiKey)
		if ip != "" {
			values.Set("ip", ip)
		}
		return ep.BaseURL + "/ipgeo?" + values.Encode()
	default:
		if ip == "" {
			return ep.BaseURL + "/json/"
		}
		return ep.BaseURL + "/" + url.PathEscape(ip) + "/json/"
	}
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, crerr.Wrap(err, "build geoip request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %s", errGeoIPTransient, redactAPIKey(err.Error()))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", errGeoIPTransient, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: provider status=%d", errGeoIPTransient, resp.StatusCode)
	}
	return nil, crerr.Newf("provider status=%d body=%s", resp.StatusCode, abbreviate(raw))
}
