package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/granada-os/personalization/internal/infrastructure/progresscookie"
	"github.com/granada-os/personalization/internal/platform/logging"
	"github.com/granada-os/personalization/internal/usecase"
)

const maxRequestBodyBytes = 1 << 20

var strictJSON = sonic.Config{DisallowUnknownFields: true}.Froze()

type Handler struct {
	locationService *usecase.LocationService
	contentService  *usecase.ContentService
	stepService     *usecase.StepService
	flowService     *usecase.FlowService
	progressService *usecase.ProgressService
	progressCookie  *progresscookie.Codec
	logger          *logging.Logger
	validator       *validator.Validate
	now             func() time.Time
}

func NewHandler(
	locationService *usecase.LocationService,
	contentService *usecase.ContentService,
	stepService *usecase.StepService,
	flowService *usecase.FlowService,
	progressService *usecase.ProgressService,
	progressCookie *progresscookie.Codec,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if progressCookie == nil {
		progressCookie = progresscookie.NewCodec(progresscookie.Config{})
	}

	return &Handler{
		locationService: locationService,
		contentService:  contentService,
		stepService:     stepService,
		flowService:     flowService,
		progressService: progressService,
		progressCookie:  progressCookie,
		logger:          logger,
		validator:       validator.New(),
		now:             time.Now,
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON accepts an empty body as the zero value of payload.
func (h *Handler) decodeJSON(ctx context.Context, r *http.Request, payload any) error {
	_, span := startSpan(ctx, "httpapi.Handler.decodeJSON")
	defer span.End()

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", usecase.ErrInvalidInput, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := strictJSON.Unmarshal(raw, payload); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
