package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granada-os/personalization/internal/domain/location"
	"github.com/granada-os/personalization/internal/domain/onboarding"
)

type countingLocator struct {
	guess location.Guess
	calls int
}

func (l *countingLocator) Detect(_ context.Context, _ location.Signals) location.Guess {
	l.calls++
	return l.guess
}

func TestStepService_Select(t *testing.T) {
	t.Parallel()

	t.Run("detects when no location passed", func(t *testing.T) {
		t.Parallel()

		locator := &countingLocator{guess: location.Guess{Country: "Kenya", Continent: "Africa"}}
		service := NewStepService(locator)

		step, err := service.Select(t.Context(), SelectStepInput{CurrentStep: "FIRST_NAME"})
		require.NoError(t, err)
		assert.Equal(t, "Karibu! Welcome to your funding journey", step.Title)
		assert.Equal(t, onboarding.StepLastName, step.NextID)
		assert.Equal(t, 1, locator.calls)
	})

	t.Run("uses caller location", func(t *testing.T) {
		t.Parallel()

		locator := &countingLocator{}
		service := NewStepService(locator)

		step, err := service.Select(t.Context(), SelectStepInput{
			CurrentStep: "COUNTRY",
			Location:    &location.Guess{Country: "Ghana", Continent: "Africa"},
		})
		require.NoError(t, err)
		assert.Equal(t, "We detected you're in Ghana. Confirm or change below:", step.Subtitle)
		assert.Equal(t, "Ghana", step.Placeholder)
		assert.Equal(t, 0, locator.calls)
	})

	t.Run("email greeting follows the guessed timezone", func(t *testing.T) {
		t.Parallel()

		service := NewStepService(nil)
		service.now = func() time.Time { return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC) }

		step, err := service.Select(t.Context(), SelectStepInput{
			CurrentStep: "EMAIL",
			Profile:     onboarding.Profile{FirstName: "Amani", LastName: "Wanjiru"},
			Location:    &location.Guess{Country: "Kenya", Timezone: "Africa/Nairobi"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Good afternoon, Amani Wanjiru!", step.Title)
	})

	t.Run("unknown step id", func(t *testing.T) {
		t.Parallel()

		_, err := NewStepService(nil).Select(t.Context(), SelectStepInput{CurrentStep: "NOPE"})
		require.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestStepService_Validate(t *testing.T) {
	t.Parallel()

	service := NewStepService(nil)
	tests := []struct {
		step  string
		input string
		want  bool
	}{
		{step: "EMAIL", input: "a@b", want: false},
		{step: "EMAIL", input: "a@b.co", want: true},
		{step: "FIRST_NAME", input: "a", want: false},
		{step: "FIRST_NAME", input: "ab", want: true},
		{step: "PASSWORD", input: "1234567", want: false},
		{step: "PASSWORD", input: "12345678", want: true},
		{step: "WELCOME", input: "", want: true},
	}

	for _, tc := range tests {
		step, ok, err := service.Validate(t.Context(), tc.step, tc.input)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ok, "%s(%q) with rule %s", tc.step, tc.input, step.Rule.Name)
	}

	_, _, err := service.Validate(t.Context(), "bogus", "x")
	require.ErrorIs(t, err, ErrInvalidInput)
}
