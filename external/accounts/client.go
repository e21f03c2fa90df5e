package accounts

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

	"github.com/granada-os/personalization/internal/platform/logging"
	"github.com/granada-os/personalization/internal/platform/resilience"
	"github.com/granada-os/personalization/internal/usecase"
)

const DefaultRegisterPath = "/api/users/comprehensive-register"

var errAccountsTransient = crerr.New("accounts transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	RegisterPath   string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client creates users on the profile backend once onboarding is submitted.
type Client struct {
	httpClient     *http.Client
	registerURL    string
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
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

	path := cfg.RegisterPath
	if strings.TrimSpace(path) == "" {
		path = DefaultRegisterPath
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)
	return &Client{
		httpClient:     httpClient,
		registerURL:    buildURL(cfg.BaseURL, path),
		logger:         logger,
		breaker:        resilience.NewNamedCircuitBreaker("accounts", breakerCfg, resilience.LogStateChanges(logger, "accounts")),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) Register(ctx context.Context, reg usecase.Registration) (usecase.RegisteredAccount, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			return usecase.RegisteredAccount{}, fmt.Errorf("%w: accounts backend is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	account, err := c.register(ctx, reg)
	if c.circuitEnabled {
		if err != nil && isCircuitFailure(err) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	if err != nil && isCircuitFailure(err) {
		return usecase.RegisteredAccount{}, fmt.Errorf("%w: %v", usecase.ErrDependencyUnavailable, err)
	}
	return account, err
}

func (c *Client) register(ctx context.Context, reg usecase.Registration) (usecase.RegisteredAccount, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(newRegisterRequest(reg)); err != nil {
		return usecase.RegisteredAccount{}, crerr.Wrap(err, "encode register request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.registerURL, strings.NewReader(buf.String()))
	if err != nil {
		return usecase.RegisteredAccount{}, crerr.Wrap(err, "create register request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return usecase.RegisteredAccount{}, fmt.Errorf("%w: send register request: %v", errAccountsTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return usecase.RegisteredAccount{}, fmt.Errorf("%w: read register response: %v", errAccountsTransient, err)
	}

	switch {
	case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusConflict:
		return usecase.RegisteredAccount{}, fmt.Errorf("%w: %s", usecase.ErrConflict, messageOf(body))
	case resp.StatusCode == http.StatusBadRequest:
		msg := messageOf(body)
		if strings.Contains(strings.ToLower(msg), "already exists") {
			return usecase.RegisteredAccount{}, fmt.Errorf("%w: %s", usecase.ErrConflict, msg)
		}
		return usecase.RegisteredAccount{}, fmt.Errorf("%w: %s", usecase.ErrInvalidInput, msg)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		c.logger.WarnContext(ctx, "accounts register failed", "status_code", resp.StatusCode)
		return usecase.RegisteredAccount{}, fmt.Errorf("%w: register status=%d", errAccountsTransient, resp.StatusCode)
	default:
		return usecase.RegisteredAccount{}, crerr.Newf("register status=%d message=%s", resp.StatusCode, messageOf(body))
	}

	var decoded registerResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return usecase.RegisteredAccount{}, crerr.Wrap(err, "decode register response")
	}
	userID := strings.TrimSpace(decoded.User.ID.String())
	if userID == "" {
		return usecase.RegisteredAccount{}, crerr.New("invalid register response: user id is empty")
	}

	email := decoded.User.Email
	if email == "" {
		email = reg.Profile.Email
	}
	return usecase.RegisteredAccount{UserID: userID, Email: email, RedirectTo: decoded.RedirectTo}, nil
}

func isCircuitFailure(err error) bool {
	return stderrors.Is(err, errAccountsTransient)
}

func messageOf(body []byte) string {
	var decoded struct {
		Message string `json:"message"`
	}
	if err := sonic.Unmarshal(body, &decoded); err == nil && decoded.Message != "" {
		return decoded.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func buildURL(baseURL, path string) string {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	path = strings.TrimSpace(path)
	if path == "" {
		return baseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return baseURL + path
}
