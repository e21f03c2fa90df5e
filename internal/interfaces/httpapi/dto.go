package httpapi

import (
	"net/http"
	"strings"

	"github.com/granada-os/personalization/internal/domain/engagement"
	"github.com/granada-os/personalization/internal/domain/location"
	"github.com/granada-os/personalization/internal/domain/onboarding"
	"github.com/granada-os/personalization/internal/usecase"
)

type latencySampleRequest struct {
	Target string  `json:"target" validate:"required"`
	Millis float64 `json:"millis"`
}

// signalsRequest is embedded by every request that may trigger location detection.
type signalsRequest struct {
	Timezone         string                 `json:"timezone" validate:"omitempty,max=64"`
	Language         string                 `json:"language" validate:"omitempty,max=35"`
	UTCOffsetMinutes *int                   `json:"utcOffsetMinutes" validate:"omitempty,min=-720,max=840"`
	LatencySamples   []latencySampleRequest `json:"latencySamples" validate:"omitempty,max=16,dive"`
}

func (s signalsRequest) toSignals(r *http.Request, hints edgeHints) location.Signals {
	lang := strings.TrimSpace(s.Language)
	if lang == "" {
		lang = firstAcceptLanguage(r.Header.Get("Accept-Language"))
	}
	samples := make([]location.LatencySample, 0, len(s.LatencySamples))
	for _, sample := range s.LatencySamples {
		samples = append(samples, location.LatencySample{Target: sample.Target, Millis: sample.Millis})
	}
	return location.Signals{
		SessionID:        resolveSessionID(r),
		ClientIP:         hints.ClientIP,
		TimeZone:         strings.TrimSpace(s.Timezone),
		Language:         lang,
		UTCOffsetMinutes: s.UTCOffsetMinutes,
		LatencySamples:   samples,
	}
}

func firstAcceptLanguage(header string) string {
	first, _, _ := strings.Cut(header, ",")
	tag, _, _ := strings.Cut(first, ";")
	tag = strings.TrimSpace(tag)
	if tag == "*" {
		return ""
	}
	return tag
}

type detectLocationRequest struct {
	signalsRequest
}

type localizedContentRequest struct {
	signalsRequest
	UserType string          `json:"userType" validate:"omitempty,oneof=student organization business"`
	Location *location.Guess `json:"location"`
}

type profileRequest struct {
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	Country          string `json:"country"`
	UserType         string `json:"userType" validate:"omitempty,oneof=student organization business"`
	EducationLevel   string `json:"educationLevel"`
	FieldOfStudy     string `json:"fieldOfStudy"`
	OrganizationType string `json:"organizationType"`
	OrganizationName string `json:"organizationName"`
	BusinessType     string `json:"businessType"`
	BusinessName     string `json:"businessName"`
	BusinessStage    string `json:"businessStage"`
}

func (p profileRequest) toProfile() onboarding.Profile {
	return onboarding.Profile{
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Email:            p.Email,
		Country:          p.Country,
		UserType:         onboarding.UserType(p.UserType),
		EducationLevel:   p.EducationLevel,
		FieldOfStudy:     p.FieldOfStudy,
		OrganizationType: p.OrganizationType,
		OrganizationName: p.OrganizationName,
		BusinessType:     p.BusinessType,
		BusinessName:     p.BusinessName,
		BusinessStage:    p.BusinessStage,
	}
}

type selectStepRequest struct {
	signalsRequest
	CurrentStep string          `json:"currentStep" validate:"required"`
	Profile     profileRequest  `json:"profile"`
	Location    *location.Guess `json:"location"`
}

type stepDTO struct {
	onboarding.Step
	Validation string `json:"validation"`
}

func stepToDTO(step onboarding.Step) stepDTO {
	return stepDTO{Step: step, Validation: step.Rule.Name}
}

type validateStepRequest struct {
	StepID string `json:"stepId" validate:"required"`
	Input  string `json:"input"`
}

type validateStepDTO struct {
	StepID     onboarding.StepID `json:"stepId"`
	Valid      bool              `json:"valid"`
	Validation string            `json:"validation"`
}

type answerRequest struct {
	StepID string `json:"stepId" validate:"omitempty,max=64"`
	Value  string `json:"value" validate:"max=512"`
}

type submitRequest struct {
	Language string `json:"language" validate:"omitempty,max=35"`
}

type flowViewDTO struct {
	SessionID           string               `json:"sessionId"`
	Step                *onboarding.FlowStep `json:"step"`
	StepIndex           int                  `json:"stepIndex"`
	TotalSteps          int                  `json:"totalSteps"`
	Completed           bool                 `json:"completed"`
	Completion          int                  `json:"completionPercentage"`
	ShowSocialLogins    bool                 `json:"showSocialLogins"`
	PersonalizedMessage string               `json:"personalizedMessage"`
	Profile             onboarding.Profile   `json:"profile"`
	Insights            engagement.Insights  `json:"insights"`
}

func flowViewToDTO(v usecase.FlowView) flowViewDTO {
	return flowViewDTO{
		SessionID:           v.Session.ID,
		Step:                v.Step,
		StepIndex:           v.Session.StepIndex,
		TotalSteps:          len(onboarding.VisibleSteps(v.Session.Profile)),
		Completed:           v.Step == nil,
		Completion:          v.Completion,
		ShowSocialLogins:    v.ShowSocialLogins,
		PersonalizedMessage: v.PersonalizedMessage,
		Profile:             v.Session.Profile,
		Insights:            v.Insights,
	}
}

type registeredAccountDTO struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

type scoreRequest struct {
	StepsCompleted int `json:"stepsCompleted" validate:"min=0"`
	BacktrackCount int `json:"backtrackCount" validate:"min=0"`
	ElapsedSeconds int `json:"elapsedSeconds" validate:"min=0"`
}

type scoreDTO struct {
	engagement.Insights
	StepsPerMinute float64 `json:"stepsPerMinute"`
}

type progressRequest struct {
	CurrentStep  *string                      `json:"currentStep" validate:"omitempty,max=64"`
	UserProfile  *onboarding.ProgressProfile  `json:"userProfile"`
	UserLocation *onboarding.ProgressLocation `json:"userLocation"`
}

type progressDTO struct {
	HasProgress   bool                 `json:"hasProgress"`
	Progress      *onboarding.Progress `json:"progress,omitempty"`
	ResumeMessage string               `json:"resumeMessage,omitempty"`
}
