package httpapi

import (
	"context"
	"net/http"

	"github.com/granada-os/personalization/internal/domain/location"
	"github.com/granada-os/personalization/internal/domain/onboarding"
)

func (h *Handler) DetectLocation(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DetectLocation")
	defer span.End()

	var req detectLocationRequest
	if err := h.decodeJSON(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	guess := h.detect(ctx, r, req.signalsRequest)
	writeSuccess(ctx, w, http.StatusOK, guess)
}

func (h *Handler) LocalizedContent(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LocalizedContent")
	defer span.End()

	var req localizedContentRequest
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

	content := h.contentService.Localized(ctx, *guess, onboarding.UserType(req.UserType))
	writeSuccess(ctx, w, http.StatusOK, content)
}

func (h *Handler) detect(ctx context.Context, r *http.Request, req signalsRequest) location.Guess {
	hints := readEdgeHints(r)
	guess := h.locationService.Detect(ctx, req.toSignals(r, hints))
	return hints.applyTo(guess)
}
