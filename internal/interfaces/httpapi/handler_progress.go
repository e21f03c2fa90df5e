package httpapi

import (
	"errors"
	"net/http"

	"github.com/granada-os/personalization/internal/domain/onboarding"
)

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetProgress")
	defer span.End()

	sessionID := resolveSessionID(r)
	cookieValue := h.progressCookie.Read(r)
	progress, ok := h.progressService.Load(ctx, sessionID, cookieValue)
	if !ok {
		if cookieValue != "" {
			http.SetCookie(w, h.progressCookie.Expired())
		}
		writeSuccess(ctx, w, http.StatusOK, progressDTO{})
		return
	}

	writeSuccess(ctx, w, http.StatusOK, progressDTO{
		HasProgress:   progress.HasProfile(),
		Progress:      &progress,
		ResumeMessage: onboarding.ResumeMessage(&progress, h.now()),
	})
}

func (h *Handler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SaveProgress")
	defer span.End()

	var req progressRequest
	if err := h.decodeJSON(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	sessionID := h.ensureSessionID(w, r)
	progress, err := h.progressService.Save(ctx, sessionID, h.progressCookie.Read(r), onboarding.ProgressPatch{
		CurrentStep:  req.CurrentStep,
		UserProfile:  req.UserProfile,
		UserLocation: req.UserLocation,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "save onboarding progress failed", "session_id", sessionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	cookie, err := h.progressCookie.Encode(progress)
	switch {
	case errors.Is(err, onboarding.ErrProgressTooLarge):
		h.logger.WarnContext(ctx, "onboarding progress too large for cookie, kept server side only", "session_id", sessionID, "error", err)
		http.SetCookie(w, h.progressCookie.Expired())
	case err != nil:
		h.logger.ErrorContext(ctx, "encode onboarding progress cookie failed", "session_id", sessionID, "error", err)
	default:
		http.SetCookie(w, cookie)
	}

	writeSuccess(ctx, w, http.StatusOK, progressDTO{
		HasProgress: progress.HasProfile(),
		Progress:    &progress,
	})
}

func (h *Handler) ClearProgress(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClearProgress")
	defer span.End()

	sessionID := resolveSessionID(r)
	if err := h.progressService.Clear(ctx, sessionID); err != nil {
		h.logger.WarnContext(ctx, "clear onboarding progress failed", "session_id", sessionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	http.SetCookie(w, h.progressCookie.Expired())
	writeSuccess(ctx, w, http.StatusOK, progressDTO{})
}
