package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	sonic "github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granada-os/personalization/internal/domain/location"
	"github.com/granada-os/personalization/internal/infrastructure/progresscookie"
	"github.com/granada-os/personalization/internal/infrastructure/repository/memory"
	"github.com/granada-os/personalization/internal/platform/id"
	"github.com/granada-os/personalization/internal/platform/logging"
	"github.com/granada-os/personalization/internal/usecase"
)

type fakeRegistrar struct{}

func (fakeRegistrar) Register(_ context.Context, reg usecase.Registration) (usecase.RegisteredAccount, error) {
	return usecase.RegisteredAccount{UserID: "user-1", Email: reg.Profile.Email}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return newTestRouterWithDetectors(t, usecase.NewTimezoneDetector(), usecase.NewLanguageDetector())
}

func newTestRouterWithDetectors(t *testing.T, detectors ...location.Detector) http.Handler {
	t.Helper()

	logger := logging.NewNop()
	progressRepo := memory.NewProgressRepository()
	locationService := usecase.NewLocationService(
		detectors,
		memory.NewSnapshotRepository(),
		logger,
		usecase.LocationServiceConfig{},
	)
	codec := progresscookie.NewCodec(progresscookie.Config{})

	handler := NewHandler(
		locationService,
		usecase.NewContentService(nil, logger),
		usecase.NewStepService(locationService),
		usecase.NewFlowService(memory.NewSessionRepository(0), progressRepo, fakeRegistrar{}, &id.Sequence{IDs: []string{"sess-1", "sess-2"}}, logger),
		usecase.NewProgressService(progressRepo, codec, 0, logger),
		codec,
		logger,
	)
	return NewRouter(handler, logger, true, []string{"*"})
}

type envelope struct {
	APIVersion string         `json:"apiVersion"`
	Data       map[string]any `json:"data"`
	Error      map[string]any `json:"error"`
}

func doRequest(t *testing.T, router http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func TestRouter_Healthz(t *testing.T) {
	t.Parallel()

	rec, env := doRequest(t, newTestRouter(t), http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", env.Data["status"])
}

func TestRouter_OpenAPI(t *testing.T) {
	t.Parallel()

	rec, _ := doRequest(t, newTestRouter(t), http.MethodGet, "/openapi.yaml", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/v1/location/detect")

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	rec, _ = doRequest(t, newTestRouter(t), http.MethodGet, "/openapi.yaml", "", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestRouter_DetectLocation(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec, env := doRequest(t, router, http.MethodPost, "/v1/location/detect",
		`{"timezone":"Africa/Nairobi","utcOffsetMinutes":180}`, map[string]string{"X-Session-ID": "detect-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Kenya", env.Data["country"])
	assert.Equal(t, "timezone", env.Data["source"])

	rec, env = doRequest(t, router, http.MethodPost, "/v1/location/detect", "",
		map[string]string{"X-Session-ID": "detect-2", "CF-IPCountry": "NG"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Nigeria", env.Data["country"])
	assert.Equal(t, "fallback", env.Data["source"])

	rec, env = doRequest(t, router, http.MethodPost, "/v1/location/detect", `{"unexpected":true}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", env.Error["status"])
}

func TestRouter_LocalizedContent(t *testing.T) {
	t.Parallel()

	rec, env := doRequest(t, newTestRouter(t), http.MethodPost, "/v1/location/content",
		`{"userType":"student","location":{"country":"Kenya","continent":"Africa","currency":"KES","confidence":0.8,"source":"ip_api"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stories, ok := env.Data["successStories"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, stories)
}

func TestRouter_Steps(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec, env := doRequest(t, router, http.MethodPost, "/v1/onboarding/steps/select",
		`{"currentStep":"LAST_NAME","profile":{"firstName":"Amani"},"location":{"country":"France","continent":"Europe"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "LAST_NAME", env.Data["stepId"])
	assert.Equal(t, "EMAIL", env.Data["nextStepId"])
	assert.Equal(t, "Nice to meet you, Amani! And your surname?", env.Data["title"])

	rec, _ = doRequest(t, router, http.MethodPost, "/v1/onboarding/steps/select", `{"currentStep":"NOPE"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = doRequest(t, router, http.MethodPost, "/v1/onboarding/steps/validate", `{"stepId":"EMAIL","input":"a@b"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, env.Data["valid"])

	rec, env = doRequest(t, router, http.MethodPost, "/v1/onboarding/steps/validate", `{"stepId":"FIRST_NAME","input":"ab"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, env.Data["valid"])
}

type recordingDetector struct {
	mu       sync.Mutex
	clientIP string
	guess    location.Guess
}

func (d *recordingDetector) Name() string { return "recording" }

func (d *recordingDetector) Detect(_ context.Context, signals location.Signals) (location.Guess, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clientIP = signals.ClientIP
	if signals.ClientIP == "" {
		return location.Guess{}, usecase.ErrNoSignal
	}
	return d.guess, nil
}

func TestRouter_SelectStep_DetectsWithEdgeHints(t *testing.T) {
	t.Parallel()

	t.Run("client ip reaches the detectors", func(t *testing.T) {
		t.Parallel()

		detector := &recordingDetector{guess: location.Guess{
			Country:    "Ghana",
			Continent:  "Africa",
			Source:     location.SourceIPAPI,
			Confidence: location.ConfidenceIPAPI,
		}}
		router := newTestRouterWithDetectors(t, detector)

		rec, env := doRequest(t, router, http.MethodPost, "/v1/onboarding/steps/select",
			`{"currentStep":"COUNTRY"}`, map[string]string{"Fly-Client-IP": "154.160.1.7"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		detector.mu.Lock()
		assert.Equal(t, "154.160.1.7", detector.clientIP)
		detector.mu.Unlock()
		assert.Equal(t, "We detected you're in Ghana. Confirm or change below:", env.Data["subtitle"])
	})

	t.Run("edge country replaces the fallback guess", func(t *testing.T) {
		t.Parallel()

		router := newTestRouterWithDetectors(t)
		rec, env := doRequest(t, router, http.MethodPost, "/v1/onboarding/steps/select",
			`{"currentStep":"COUNTRY"}`, map[string]string{"CF-IPCountry": "FR", "X-Session-ID": "edge-1"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "We detected you're in France. Confirm or change below:", env.Data["subtitle"])
	})
}

func TestRouter_SessionFlow(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec, env := doRequest(t, router, http.MethodPost, "/v1/onboarding/sessions", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "sess-1", env.Data["sessionId"])

	answers := []string{
		`{"stepId":"firstName","value":"Amani"}`,
		`{"value":"Wanjiru"}`,
		`{"value":"amani@example.com"}`,
		`{"value":"supersecret"}`,
		`{"value":"Kenya"}`,
		`{"value":"student"}`,
	}
	for _, body := range answers {
		rec, _ = doRequest(t, router, http.MethodPost, "/v1/onboarding/sessions/sess-1/answers", body, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec, env = doRequest(t, router, http.MethodGet, "/v1/onboarding/sessions/sess-1/insights", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, env.Data, "score")

	rec, env = doRequest(t, router, http.MethodPost, "/v1/onboarding/sessions/sess-1/submit", `{"language":"sw"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "user-1", env.Data["userId"])

	rec, _ = doRequest(t, router, http.MethodGet, "/v1/onboarding/sessions/sess-1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Progress(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec, env := doRequest(t, router, http.MethodPut, "/v1/onboarding/progress",
		`{"currentStep":"EMAIL","userProfile":{"firstName":"Amani"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, env.Data["hasProgress"])

	sessionID := rec.Header().Get(sessionHeaderName)
	require.NotEmpty(t, sessionID)
	var sawProgressCookie bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == progresscookie.DefaultName {
			sawProgressCookie = true
			assert.Equal(t, "/", c.Path)
			assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		}
	}
	assert.True(t, sawProgressCookie)

	rec, env = doRequest(t, router, http.MethodGet, "/v1/onboarding/progress", "", map[string]string{sessionHeaderName: sessionID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, env.Data["hasProgress"])
	assert.Contains(t, env.Data["resumeMessage"], "Welcome back, Amani!")

	rec, _ = doRequest(t, router, http.MethodDelete, "/v1/onboarding/progress", "", map[string]string{sessionHeaderName: sessionID})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = doRequest(t, router, http.MethodGet, "/v1/onboarding/progress", "", map[string]string{sessionHeaderName: sessionID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, env.Data["hasProgress"])
}

func TestRouter_ScoreEngagement(t *testing.T) {
	t.Parallel()

	rec, env := doRequest(t, newTestRouter(t), http.MethodPost, "/v1/engagement/score",
		`{"stepsCompleted":4,"backtrackCount":1,"elapsedSeconds":240}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 90, env.Data["score"])
	assert.Equal(t, true, env.Data["shouldShowPaymentQuestion"])

	rec, _ = doRequest(t, newTestRouter(t), http.MethodPost, "/v1/engagement/score", `{"backtrackCount":-1}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFirstAcceptLanguage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "sw-KE", firstAcceptLanguage("sw-KE,sw;q=0.9,en;q=0.8"))
	assert.Equal(t, "fr", firstAcceptLanguage("fr;q=0.9"))
	assert.Empty(t, firstAcceptLanguage("*"))
	assert.Empty(t, firstAcceptLanguage(""))
}
