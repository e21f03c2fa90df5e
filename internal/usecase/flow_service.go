package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/granada-os/personalization/internal/domain/engagement"
	"github.com/granada-os/personalization/internal/domain/onboarding"
	"github.com/granada-os/personalization/internal/platform/id"
	"github.com/granada-os/personalization/internal/platform/logging"
	"github.com/granada-os/personalization/internal/platform/resilience"
)

// Registration is what the account backend needs to create a user.
type Registration struct {
	Profile  onboarding.Profile
	Country  string
	Language string
}

type RegisteredAccount struct {
	UserID     string
	Email      string
	RedirectTo string
}

type AccountRegistrar interface {
	Register(ctx context.Context, reg Registration) (RegisteredAccount, error)
}

// FlowView is a session plus everything derived from it for display.
type FlowView struct {
	Session             onboarding.Session
	Step                *onboarding.FlowStep
	Completion          int
	ShowSocialLogins    bool
	PersonalizedMessage string
	Insights            engagement.Insights
}

// FlowService runs the onboarding flow. Calls that change a session hold a per-session lock
// across load and save.
type FlowService struct {
	locks     resilience.KeyedMutex
	sessions  onboarding.SessionRepository
	progress  onboarding.ProgressRepository
	registrar AccountRegistrar
	ids       id.Generator
	logger    *logging.Logger
	now       func() time.Time
}

func NewFlowService(
	sessions onboarding.SessionRepository,
	progress onboarding.ProgressRepository,
	registrar AccountRegistrar,
	ids id.Generator,
	logger *logging.Logger,
) *FlowService {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FlowService{
		sessions:  sessions,
		progress:  progress,
		registrar: registrar,
		ids:       ids,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *FlowService) Start(ctx context.Context) (FlowView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FlowService.Start")
	defer span.End()

	session := onboarding.NewSession(s.ids.NewID(), s.now().UTC())
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return FlowView{}, fmt.Errorf("save onboarding session: %w", err)
	}
	return s.view(session), nil
}

func (s *FlowService) Get(ctx context.Context, sessionID string) (FlowView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FlowService.Get")
	defer span.End()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return FlowView{}, err
	}
	return s.view(session), nil
}

type AnswerInput struct {
	SessionID string
	StepID    string
	Value     string
}

// Answer records the value for the current step and advances.
func (s *FlowService) Answer(ctx context.Context, input AnswerInput) (FlowView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FlowService.Answer")
	defer span.End()
	defer s.locks.Lock(strings.TrimSpace(input.SessionID))()

	session, err := s.load(ctx, input.SessionID)
	if err != nil {
		return FlowView{}, err
	}

	current, ok := session.Current()
	if !ok {
		return FlowView{}, fmt.Errorf("%w: %v", ErrConflict, onboarding.ErrSessionComplete)
	}
	stepID := strings.TrimSpace(input.StepID)
	if stepID == "" {
		stepID = current.ID
	}
	if stepID != current.ID {
		return FlowView{}, fmt.Errorf("%w: expected answer for %s, got %s", ErrInvalidInput, current.ID, stepID)
	}

	now := s.now().UTC()
	if err := session.Answer(stepID, input.Value, now); err != nil {
		return FlowView{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	session.Advance(now)

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return FlowView{}, fmt.Errorf("save onboarding session: %w", err)
	}
	s.snapshotProgress(ctx, session)
	return s.view(session), nil
}

func (s *FlowService) Back(ctx context.Context, sessionID string) (FlowView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FlowService.Back")
	defer span.End()
	defer s.locks.Lock(strings.TrimSpace(sessionID))()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return FlowView{}, err
	}
	if !session.Back(s.now().UTC()) {
		return s.view(session), nil
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return FlowView{}, fmt.Errorf("save onboarding session: %w", err)
	}
	return s.view(session), nil
}

func (s *FlowService) Insights(ctx context.Context, sessionID string) (engagement.Insights, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FlowService.Insights")
	defer span.End()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return engagement.Insights{}, err
	}
	return session.Insights(s.now()), nil
}

type SubmitInput struct {
	SessionID string
	Language  string
}

// Submit registers the account once every critical field is valid, then drops the session.
func (s *FlowService) Submit(ctx context.Context, input SubmitInput) (RegisteredAccount, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FlowService.Submit")
	defer span.End()
	defer s.locks.Lock(strings.TrimSpace(input.SessionID))()

	session, err := s.load(ctx, input.SessionID)
	if err != nil {
		return RegisteredAccount{}, err
	}
	if missing := session.MissingCritical(); len(missing) > 0 {
		return RegisteredAccount{}, fmt.Errorf("%w: missing or invalid fields: %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	if s.registrar == nil {
		return RegisteredAccount{}, fmt.Errorf("%w: account registration is not configured", ErrDependencyUnavailable)
	}

	account, err := s.registrar.Register(ctx, Registration{
		Profile:  session.Profile,
		Country:  session.Profile.Country,
		Language: input.Language,
	})
	if err != nil {
		return RegisteredAccount{}, failSpan(span, fmt.Errorf("register account: %w", err))
	}

	if err := s.sessions.DeleteSession(ctx, session.ID); err != nil {
		s.logger.WarnContext(ctx, "delete onboarding session failed", "session_id", session.ID, "error", err)
	}
	if s.progress != nil {
		if err := s.progress.DeleteProgress(ctx, session.ID); err != nil {
			s.logger.WarnContext(ctx, "delete onboarding progress failed", "session_id", session.ID, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "onboarding completed", "session_id", session.ID, "user_type", session.Profile.UserType)
	return account, nil
}

func (s *FlowService) load(ctx context.Context, sessionID string) (onboarding.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return onboarding.Session{}, fmt.Errorf("%w: session_id is required", ErrInvalidInput)
	}
	session, ok, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return onboarding.Session{}, fmt.Errorf("get onboarding session: %w", err)
	}
	if !ok {
		return onboarding.Session{}, fmt.Errorf("%w: onboarding session %s", ErrNotFound, sessionID)
	}
	return session, nil
}

// snapshotProgress keeps the resumable snapshot in step with the session. Failures only log.
func (s *FlowService) snapshotProgress(ctx context.Context, session onboarding.Session) {
	if s.progress == nil {
		return
	}

	current := "complete"
	if step, ok := session.Current(); ok {
		current = step.ID
	}
	progress := onboarding.Progress{
		CurrentStep: current,
		UserProfile: onboarding.ProfileSnapshot(session.Profile),
		Timestamp:   s.now().UnixMilli(),
	}
	if existing, ok, err := s.progress.GetProgress(ctx, session.ID); err == nil && ok {
		progress.UserLocation = existing.UserLocation
	}
	if err := s.progress.UpsertProgress(ctx, session.ID, progress); err != nil {
		s.logger.WarnContext(ctx, "snapshot onboarding progress failed", "session_id", session.ID, "error", err)
	}
}

func (s *FlowService) view(session onboarding.Session) FlowView {
	now := s.now()
	v := FlowView{
		Session:             session,
		Completion:          session.CompletionPercentage(),
		ShowSocialLogins:    session.ShouldShowSocialLogins(now),
		PersonalizedMessage: session.PersonalizedMessage(),
		Insights:            session.Insights(now),
	}
	if step, ok := session.Current(); ok {
		v.Step = &step
	}
	return v
}
