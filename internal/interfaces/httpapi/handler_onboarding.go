package httpapi

import (
	"net/http"
	"strings"

	"github.com/granada-os/personalization/internal/usecase"
)

func (h *Handler) SelectStep(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SelectStep")
	defer span.End()

	var req selectStepRequest
	if err := h.decodeJSON(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	guess := req.Location
	if guess == nil {
		detected := h.detect(ctx, r, req.signalsRequest)
		guess = &detected
	}
	step, err := h.stepService.Select(ctx, usecase.SelectStepInput{
		CurrentStep: req.CurrentStep,
		Profile:     req.Profile.toProfile(),
		Location:    guess,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "select onboarding step failed", "current_step", req.CurrentStep, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, stepToDTO(step))
}

func (h *Handler) ValidateStep(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ValidateStep")
	defer span.End()

	var req validateStepRequest
	if err := h.decodeJSON(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	step, ok, err := h.stepService.Validate(ctx, req.StepID, req.Input)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, validateStepDTO{
		StepID:     step.ID,
		Valid:      ok,
		Validation: step.Rule.Name,
	})
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StartSession")
	defer span.End()

	view, err := h.flowService.Start(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "start onboarding session failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, flowViewToDTO(view))
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSession")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	view, err := h.flowService.Get(ctx, sessionID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, flowViewToDTO(view))
}

func (h *Handler) AnswerStep(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AnswerStep")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	var req answerRequest
	if err := h.decodeJSON(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	view, err := h.flowService.Answer(ctx, usecase.AnswerInput{
		SessionID: sessionID,
		StepID:    req.StepID,
		Value:     req.Value,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "answer onboarding step failed", "session_id", sessionID, "step_id", req.StepID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, flowViewToDTO(view))
}

func (h *Handler) StepBack(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StepBack")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	view, err := h.flowService.Back(ctx, sessionID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, flowViewToDTO(view))
}

func (h *Handler) SessionInsights(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SessionInsights")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	insights, err := h.flowService.Insights(ctx, sessionID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, insights)
}

func (h *Handler) SubmitSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitSession")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	var req submitRequest
	if err := h.decodeJSON(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.Language == "" {
		req.Language = firstAcceptLanguage(r.Header.Get("Accept-Language"))
	}

	account, err := h.flowService.Submit(ctx, usecase.SubmitInput{SessionID: sessionID, Language: req.Language})
	if err != nil {
		h.logger.WarnContext(ctx, "submit onboarding session failed", "session_id", sessionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	http.SetCookie(w, h.progressCookie.Expired())
	writeSuccess(ctx, w, http.StatusCreated, registeredAccountDTO{
		UserID:     account.UserID,
		Email:      account.Email,
		RedirectTo: account.RedirectTo,
	})
}
