package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/granada-os/personalization/internal/domain/location"
	"github.com/granada-os/personalization/internal/domain/onboarding"
)

type SelectStepInput struct {
	CurrentStep string
	Profile     onboarding.Profile
	// Location skips detection when the caller already has a guess.
	Location *location.Guess
	Signals  location.Signals
}

type locationDetector interface {
	Detect(ctx context.Context, signals location.Signals) location.Guess
}

type StepService struct {
	locator locationDetector
	now     func() time.Time
}

func NewStepService(locator locationDetector) *StepService {
	return &StepService{locator: locator, now: time.Now}
}

func (s *StepService) Select(ctx context.Context, input SelectStepInput) (onboarding.Step, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StepService.Select")
	defer span.End()

	current, err := onboarding.ParseStepID(input.CurrentStep)
	if err != nil {
		return onboarding.Step{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	guess := input.Location
	if guess == nil && s.locator != nil {
		detected := s.locator.Detect(ctx, input.Signals)
		guess = &detected
	}

	return onboarding.SelectStep(input.Profile, guess, current, s.now()), nil
}

// Validate checks input against the rule of the step stepID asks for.
func (s *StepService) Validate(ctx context.Context, stepID, input string) (onboarding.Step, bool, error) {
	_, span := startUsecaseSpan(ctx, "usecase.StepService.Validate")
	defer span.End()

	current, err := onboarding.ParseStepID(stepID)
	if err != nil {
		return onboarding.Step{}, false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	step := onboarding.SelectStep(onboarding.Profile{}, nil, current, s.now())
	return step, step.Rule.Validate(input), nil
}
