package contentai

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/granada-os/personalization/internal/domain/location"
	"github.com/granada-os/personalization/internal/domain/onboarding"
	"github.com/granada-os/personalization/internal/platform/logging"
	"github.com/granada-os/personalization/internal/platform/resilience"
	"github.com/granada-os/personalization/internal/usecase"
)

const (
	DefaultGeneratePath = "/api/ai/generate-localized-content"
	defaultTimeout      = 8 * time.Second
	maxBodyBytes        = 2 << 20
)

var errContentTransient = crerr.New("content generator transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	GeneratePath   string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client asks a remote generator for localized success stories and opportunities.
type Client struct {
	httpClient     *http.Client
	generateURL    string
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight[location.Content]
}

func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, crerr.New("content generator base url is required")
	}
	path := strings.TrimSpace(cfg.GeneratePath)
	if path == "" {
		path = DefaultGeneratePath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)
	return &Client{
		httpClient:     httpClient,
		generateURL:    baseURL + path,
		logger:         logger,
		breaker:        resilience.NewNamedCircuitBreaker("contentai", breakerCfg, resilience.LogStateChanges(logger, "content_generator")),
		circuitEnabled: breakerCfg.Enabled,
	}, nil
}

func (c *Client) Generate(ctx context.Context, guess location.Guess, userType onboarding.UserType) (location.Content, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			return location.Content{}, fmt.Errorf("%w: content generator is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	key := string(userType) + "|" + guess.Country + "|" + guess.Region
	content, err, _ := c.flight.Do(key, func() (location.Content, error) {
		out, reqErr := c.generate(ctx, guess, userType)
		if c.circuitEnabled {
			if reqErr != nil && isCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return out, reqErr
	})
	return content, err
}

func (c *Client) generate(ctx context.Context, guess location.Guess, userType onboarding.UserType) (location.Content, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	payload := generateRequest{
		Location: guess,
		UserType: string(userType),
		Prompt:   buildPrompt(guess, userType),
	}
	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(payload); err != nil {
		return location.Content{}, crerr.Wrap(err, "encode generate request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generateURL, strings.NewReader(buf.String()))
	if err != nil {
		return location.Content{}, crerr.Wrap(err, "create generate request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return location.Content{}, fmt.Errorf("%w: send generate request: %v", errContentTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return location.Content{}, fmt.Errorf("%w: read generate response: %v", errContentTransient, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return location.Content{}, fmt.Errorf("%w: generate status=%d", errContentTransient, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return location.Content{}, crerr.Newf("generate status=%d", resp.StatusCode)
	}

	var content location.Content
	if err := sonic.Unmarshal(raw, &content); err != nil {
		return location.Content{}, crerr.Wrap(err, "decode generated content")
	}
	for i := range content.SuccessStories {
		if content.SuccessStories[i].Location == "" {
			content.SuccessStories[i].Location = guess.Country
		}
	}
	if content.CulturalInsights.Currency == "" {
		content.CulturalInsights.Currency = guess.Currency
	}
	return content, nil
}

type generateRequest struct {
	Location location.Guess `json:"location"`
	UserType string         `json:"userType"`
	Prompt   string         `json:"prompt"`
}

func buildPrompt(guess location.Guess, userType onboarding.UserType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate realistic, localized success stories and opportunities for %s users in %s, %s. Include:\n", userType, guess.Country, guess.Continent)
	fmt.Fprintf(&b, "1. 6 diverse success stories with real names, achievements, and funding amounts relevant to %s\n", guess.Country)
	fmt.Fprintf(&b, "2. Local funding opportunities available in %s\n", guess.Region)
	fmt.Fprintf(&b, "3. Cultural insights and priorities for %s\n", guess.Country)
	fmt.Fprintf(&b, "4. Use local currency %s for amounts\n", guess.Currency)
	fmt.Fprintf(&b, "5. Consider local challenges and opportunities in %s\n", guess.Continent)
	b.WriteString("6. Make content authentic and region-specific")
	return b.String()
}

func isCircuitFailure(err error) bool {
	return stderrors.Is(err, errContentTransient)
}
