package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerLocationRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/location/detect", handler.DetectLocation)
	mux.HandleFunc("POST /v1/location/content", handler.LocalizedContent)
}

func registerOnboardingRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/onboarding/steps/select", handler.SelectStep)
	mux.HandleFunc("POST /v1/onboarding/steps/validate", handler.ValidateStep)

	mux.HandleFunc("POST /v1/onboarding/sessions", handler.StartSession)
	mux.HandleFunc("GET /v1/onboarding/sessions/{sessionID}", handler.GetSession)
	mux.HandleFunc("POST /v1/onboarding/sessions/{sessionID}/answers", handler.AnswerStep)
	mux.HandleFunc("POST /v1/onboarding/sessions/{sessionID}/back", handler.StepBack)
	mux.HandleFunc("GET /v1/onboarding/sessions/{sessionID}/insights", handler.SessionInsights)
	mux.HandleFunc("POST /v1/onboarding/sessions/{sessionID}/submit", handler.SubmitSession)

	mux.HandleFunc("GET /v1/onboarding/progress", handler.GetProgress)
	mux.HandleFunc("PUT /v1/onboarding/progress", handler.SaveProgress)
	mux.HandleFunc("DELETE /v1/onboarding/progress", handler.ClearProgress)
}

func registerEngagementRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/engagement/score", handler.ScoreEngagement)
}
