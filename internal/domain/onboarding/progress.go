package onboarding

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

// ProgressMaxAge bounds how long an unfinished registration can be resumed.
const ProgressMaxAge = 30 * 24 * time.Hour

// ProgressProfile is the persisted part of Profile. The password never leaves the session.
type ProgressProfile struct {
	FirstName        string   `json:"firstName,omitempty"`
	LastName         string   `json:"lastName,omitempty"`
	Email            string   `json:"email,omitempty"`
	Country          string   `json:"country,omitempty"`
	UserType         UserType `json:"userType,omitempty"`
	EducationLevel   string   `json:"educationLevel,omitempty"`
	FieldOfStudy     string   `json:"fieldOfStudy,omitempty"`
	OrganizationType string   `json:"organizationType,omitempty"`
	OrganizationName string   `json:"organizationName,omitempty"`
	BusinessType     string   `json:"businessType,omitempty"`
	BusinessName     string   `json:"businessName,omitempty"`
	BusinessStage    string   `json:"businessStage,omitempty"`
	TeamSize         string   `json:"teamSize,omitempty"`
}

type ProgressLocation struct {
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Continent   string `json:"continent"`
	Timezone    string `json:"timezone"`
}

// Progress is the resumable snapshot of an unfinished registration.
type Progress struct {
	CurrentStep  string            `json:"currentStep"`
	UserProfile  ProgressProfile   `json:"userProfile"`
	UserLocation *ProgressLocation `json:"userLocation"`
	Timestamp    int64             `json:"timestamp"`
}

// ProgressPatch is a partial update. Nil fields keep the stored value.
type ProgressPatch struct {
	CurrentStep  *string
	UserProfile  *ProgressProfile
	UserLocation *ProgressLocation
}

type ProgressRepository interface {
	GetProgress(ctx context.Context, sessionID string) (Progress, bool, error)
	UpsertProgress(ctx context.Context, sessionID string, progress Progress) error
	DeleteProgress(ctx context.Context, sessionID string) error
}

func (p Progress) SavedAt() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// Expired reports whether the snapshot is at least maxAge old.
func (p Progress) Expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(p.SavedAt()) >= maxAge
}

// HasProfile reports whether any profile field was captured.
func (p Progress) HasProfile() bool {
	return !reflect.DeepEqual(p.UserProfile, ProgressProfile{})
}

// ProfileSnapshot copies the persistable fields out of a live profile.
func ProfileSnapshot(p Profile) ProgressProfile {
	return ProgressProfile{
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Email:            p.Email,
		Country:          p.Country,
		UserType:         p.UserType,
		EducationLevel:   p.EducationLevel,
		FieldOfStudy:     p.FieldOfStudy,
		OrganizationType: p.OrganizationType,
		OrganizationName: p.OrganizationName,
		BusinessType:     p.BusinessType,
		BusinessName:     p.BusinessName,
		BusinessStage:    p.BusinessStage,
		TeamSize:         p.TeamSize,
	}
}

// MergeProgress applies patch over existing and stamps the result with now.
// Profile fields merge individually; empty patch fields leave stored values alone.
func MergeProgress(existing Progress, patch ProgressPatch, now time.Time) Progress {
	out := existing
	if patch.CurrentStep != nil {
		out.CurrentStep = *patch.CurrentStep
	}
	if patch.UserProfile != nil {
		out.UserProfile = mergeProfile(out.UserProfile, *patch.UserProfile)
	}
	if patch.UserLocation != nil {
		loc := *patch.UserLocation
		out.UserLocation = &loc
	}
	out.Timestamp = now.UnixMilli()
	return out
}

func mergeProfile(base, patch ProgressProfile) ProgressProfile {
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&base.FirstName, patch.FirstName)
	pick(&base.LastName, patch.LastName)
	pick(&base.Email, patch.Email)
	pick(&base.Country, patch.Country)
	if patch.UserType != "" {
		base.UserType = patch.UserType
	}
	pick(&base.EducationLevel, patch.EducationLevel)
	pick(&base.FieldOfStudy, patch.FieldOfStudy)
	pick(&base.OrganizationType, patch.OrganizationType)
	pick(&base.OrganizationName, patch.OrganizationName)
	pick(&base.BusinessType, patch.BusinessType)
	pick(&base.BusinessName, patch.BusinessName)
	pick(&base.BusinessStage, patch.BusinessStage)
	pick(&base.TeamSize, patch.TeamSize)
	return base
}

// ResumeMessage greets a returning user. It is empty when p is nil.
func ResumeMessage(p *Progress, now time.Time) string {
	if p == nil {
		return ""
	}

	ago := elapsedPhrase(now.Sub(p.SavedAt()))
	if p.UserProfile.FirstName != "" {
		return fmt.Sprintf("Welcome back, %s! You started your registration %s. Would you like to continue where you left off?", p.UserProfile.FirstName, ago)
	}
	return fmt.Sprintf("You have an incomplete registration from %s. Would you like to continue?", ago)
}

func elapsedPhrase(d time.Duration) string {
	hours := int(d / time.Hour)
	switch {
	case hours < 1:
		return "a few minutes ago"
	case hours < 24:
		return plural(hours, "hour") + " ago"
	default:
		return plural(hours/24, "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
