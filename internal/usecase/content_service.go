package usecase

import (
	"context"

	"github.com/granada-os/personalization/internal/domain/location"
	"github.com/granada-os/personalization/internal/domain/onboarding"
	"github.com/granada-os/personalization/internal/platform/logging"
)

// ContentGenerator produces localized copy remotely, e.g. with a language model.
type ContentGenerator interface {
	Generate(ctx context.Context, guess location.Guess, userType onboarding.UserType) (location.Content, error)
}

type ContentService struct {
	generator ContentGenerator
	logger    *logging.Logger
}

// NewContentService accepts a nil generator; every call then uses the embedded copy.
func NewContentService(generator ContentGenerator, logger *logging.Logger) *ContentService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ContentService{generator: generator, logger: logger}
}

func (s *ContentService) Localized(ctx context.Context, guess location.Guess, userType onboarding.UserType) location.Content {
	ctx, span := startUsecaseSpan(ctx, "usecase.ContentService.Localized")
	defer span.End()

	if userType == "" {
		userType = onboarding.UserTypeStudent
	}
	guess = guess.Complete()

	if s.generator != nil {
		content, err := s.generator.Generate(ctx, guess, userType)
		if err == nil && len(content.SuccessStories) > 0 {
			return content
		}
		if err == nil {
			s.logger.WarnContext(ctx, "content generator returned no stories, using fallback", "country", guess.Country)
		} else {
			s.logger.WarnContext(ctx, "content generation failed, using fallback", "country", guess.Country, "error", err)
		}
	}

	return location.FallbackContent(guess, string(userType))
}
