package httpapi

import (
	"net/http"
	"time"

	"github.com/granada-os/personalization/internal/domain/engagement"
)

// ScoreEngagement rates a session from client-side counters alone.
func (h *Handler) ScoreEngagement(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ScoreEngagement")
	defer span.End()

	var req scoreRequest
	if err := h.decodeJSON(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	now := h.now()
	metrics := engagement.Metrics{
		StartedAt:      now.Add(-time.Duration(req.ElapsedSeconds) * time.Second),
		StepsCompleted: req.StepsCompleted,
		BacktrackCount: req.BacktrackCount,
	}

	writeSuccess(ctx, w, http.StatusOK, scoreDTO{
		Insights:       engagement.InsightsFor(metrics, now),
		StepsPerMinute: engagement.StepsPerMinute(metrics, now),
	})
}
