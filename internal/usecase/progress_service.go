package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/granada-os/personalization/internal/domain/onboarding"
	"github.com/granada-os/personalization/internal/platform/logging"
)

// ProgressDecoder turns a raw cookie value back into progress, rejecting stale entries.
type ProgressDecoder interface {
	Decode(value string, now time.Time) (onboarding.Progress, error)
}

type ProgressService struct {
	repo    onboarding.ProgressRepository
	decoder ProgressDecoder
	maxAge  time.Duration
	logger  *logging.Logger
	now     func() time.Time
}

func NewProgressService(repo onboarding.ProgressRepository, decoder ProgressDecoder, maxAge time.Duration, logger *logging.Logger) *ProgressService {
	if maxAge <= 0 {
		maxAge = onboarding.ProgressMaxAge
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ProgressService{repo: repo, decoder: decoder, maxAge: maxAge, logger: logger, now: time.Now}
}

// Save merges patch into whatever is stored for the session and persists the result.
func (s *ProgressService) Save(ctx context.Context, sessionID, cookieValue string, patch onboarding.ProgressPatch) (onboarding.Progress, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProgressService.Save")
	defer span.End()

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return onboarding.Progress{}, fmt.Errorf("%w: session_id is required", ErrInvalidInput)
	}
	if patch.UserProfile != nil && patch.UserProfile.UserType != "" {
		if _, err := onboarding.ParseUserType(string(patch.UserProfile.UserType)); err != nil {
			return onboarding.Progress{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	existing, _ := s.Load(ctx, sessionID, cookieValue)
	merged := onboarding.MergeProgress(existing, patch, s.now())
	if err := s.repo.UpsertProgress(ctx, sessionID, merged); err != nil {
		return onboarding.Progress{}, failSpan(span, fmt.Errorf("upsert onboarding progress: %w", err))
	}
	return merged, nil
}

// Load prefers the cookie, then the stored mirror. Anything at least maxAge old is ignored.
func (s *ProgressService) Load(ctx context.Context, sessionID, cookieValue string) (onboarding.Progress, bool) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProgressService.Load")
	defer span.End()

	now := s.now()
	if cookieValue != "" && s.decoder != nil {
		p, err := s.decoder.Decode(cookieValue, now)
		if err == nil {
			return p, true
		}
		s.logger.DebugContext(ctx, "ignoring onboarding progress cookie", "error", err)
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return onboarding.Progress{}, false
	}
	p, ok, err := s.repo.GetProgress(ctx, sessionID)
	if err != nil {
		s.logger.WarnContext(ctx, "load onboarding progress failed", "session_id", sessionID, "error", err)
		return onboarding.Progress{}, false
	}
	if !ok || p.Expired(now, s.maxAge) {
		return onboarding.Progress{}, false
	}
	return p, true
}

func (s *ProgressService) Clear(ctx context.Context, sessionID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProgressService.Clear")
	defer span.End()

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}
	if err := s.repo.DeleteProgress(ctx, sessionID); err != nil {
		return fmt.Errorf("delete onboarding progress: %w", err)
	}
	return nil
}

func (s *ProgressService) HasProgress(ctx context.Context, sessionID, cookieValue string) bool {
	p, ok := s.Load(ctx, sessionID, cookieValue)
	return ok && p.HasProfile()
}

// ResumeMessage is empty when there is nothing to resume.
func (s *ProgressService) ResumeMessage(ctx context.Context, sessionID, cookieValue string) string {
	p, ok := s.Load(ctx, sessionID, cookieValue)
	if !ok {
		return ""
	}
	return onboarding.ResumeMessage(&p, s.now())
}
