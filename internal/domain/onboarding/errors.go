package onboarding

import "errors"

var (
	ErrProgressTooLarge = errors.New("onboarding progress exceeds cookie size limit")
	ErrProgressExpired  = errors.New("onboarding progress expired")
	ErrSessionComplete  = errors.New("onboarding session has no remaining steps")
)
