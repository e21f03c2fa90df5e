package onboarding

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/granada-os/personalization/internal/domain/engagement"
)

type FieldType string

const (
	FieldTypeText              FieldType = "text"
	FieldTypeEmail             FieldType = "email"
	FieldTypePassword          FieldType = "password"
	FieldTypeSelect            FieldType = "select"
	FieldTypeMultiSelect       FieldType = "multiselect"
	FieldTypePaymentPreference FieldType = "payment_preference"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// FlowStep is one question of the guided registration form.
type FlowStep struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Subtitle          string    `json:"subtitle"`
	Placeholder       string    `json:"placeholder"`
	Type              FieldType `json:"type"`
	Required          bool      `json:"required"`
	Priority          Priority  `json:"priority"`
	Options           []string  `json:"options,omitempty"`
	ContextualMessage string    `json:"contextualMessage,omitempty"`
	Rule              Rule      `json:"-"`

	showWhen func(Profile) bool
}

func (s FlowStep) Visible(p Profile) bool {
	return s.showWhen == nil || s.showWhen(p)
}

// Accepts checks required-ness, the rule and, for select steps, the option list.
// Password values are checked as typed; a blank one still counts as missing.
func (s FlowStep) Accepts(value string) error {
	if s.Type != FieldTypePassword {
		value = strings.TrimSpace(value)
	}
	if strings.TrimSpace(value) == "" {
		if s.Required {
			return fmt.Errorf("%s is required", s.ID)
		}
		return nil
	}
	if s.Type == FieldTypeSelect && len(s.Options) > 0 && !slices.Contains(s.Options, value) {
		return fmt.Errorf("%s must be one of %s", s.ID, strings.Join(s.Options, ", "))
	}
	if s.Type == FieldTypeMultiSelect {
		for _, v := range splitList(value) {
			if !slices.Contains(s.Options, v) {
				return fmt.Errorf("%s has unknown option %q", s.ID, v)
			}
		}
	}
	if !s.Rule.Validate(value) {
		return fmt.Errorf("%s does not satisfy %s", s.ID, s.Rule.Name)
	}
	return nil
}

func forUserType(t UserType) func(Profile) bool {
	return func(p Profile) bool { return p.UserType == t }
}

var flowCatalog = []FlowStep{
	{
		ID: FieldFirstName, Title: "Welcome to Granada OS! 👋", Subtitle: "Let's start with your first name",
		Placeholder: "Enter your first name", Type: FieldTypeText, Required: true, Priority: PriorityCritical, Rule: RuleName,
	},
	{
		ID: FieldLastName, Title: "Nice to meet you! ✨", Subtitle: "What's your last name?",
		Placeholder: "Enter your last name", Type: FieldTypeText, Required: true, Priority: PriorityCritical, Rule: RuleName,
	},
	{
		ID: FieldEmail, Title: "Your Digital Gateway 📧", Subtitle: "We'll use this to send you funding opportunities",
		Placeholder: "Enter your email address", Type: FieldTypeEmail, Required: true, Priority: PriorityCritical, Rule: RuleEmail,
	},
	{
		ID: FieldPassword, Title: "Secure Your Account 🔐", Subtitle: "Create a strong password to protect your funding journey",
		Placeholder: "Create a secure password", Type: FieldTypePassword, Required: true, Priority: PriorityCritical, Rule: RulePassword,
	},
	{
		ID: FieldCountry, Title: "Where Are You Based? 🌍", Subtitle: "This helps us find region-specific funding opportunities",
		Placeholder: "Select your country", Type: FieldTypeSelect, Required: true, Priority: PriorityCritical, Rule: RuleName,
		Options: []string{"Kenya", "Uganda", "Tanzania", "Nigeria", "Ghana", "South Africa", "United States", "United Kingdom", "Germany", "France", "Canada", "Australia"},
	},
	{
		ID: FieldUserType, Title: "Choose Your Path 🚀", Subtitle: "This determines what opportunities we show you",
		Placeholder: "Select your category", Type: FieldTypeSelect, Required: true, Priority: PriorityCritical, Rule: RuleUserType,
		Options: []string{string(UserTypeStudent), string(UserTypeOrganization), string(UserTypeBusiness)},
	},
	{
		ID: FieldEducationLevel, Title: "Your Academic Journey 🎓", Subtitle: "This helps us find scholarships at your level",
		Placeholder: "Select your education level", Type: FieldTypeSelect, Priority: PriorityHigh, Rule: RuleAny,
		Options:  []string{"High School", "Undergraduate", "Graduate", "PhD", "Postdoc"},
		showWhen: forUserType(UserTypeStudent),
	},
	{
		ID: FieldFieldOfStudy, Title: "Your Field of Study 📚", Subtitle: "We'll match you with field-specific funding",
		Placeholder: "e.g., Computer Science, Medicine, Engineering", Type: FieldTypeText, Priority: PriorityHigh, Rule: RuleAny,
		showWhen: forUserType(UserTypeStudent),
	},
	{
		ID: FieldOrganizationType, Title: "Organization Type 🏛️", Subtitle: "Different types qualify for different grants",
		Placeholder: "Select organization type", Type: FieldTypeSelect, Priority: PriorityHigh, Rule: RuleAny,
		Options:  []string{"NGO", "Non-Profit", "Community Group", "Research Institution", "Foundation"},
		showWhen: forUserType(UserTypeOrganization),
	},
	{
		ID: FieldOrganizationName, Title: "Organization Name 🏢", Subtitle: "We'll verify your organization for better opportunities",
		Placeholder: "Enter your organization name", Type: FieldTypeText, Priority: PriorityHigh, Rule: RuleAny,
		showWhen: forUserType(UserTypeOrganization),
	},
	{
		ID: FieldBusinessStage, Title: "Business Stage 🚀", Subtitle: "Different stages have different funding options",
		Placeholder: "Select your business stage", Type: FieldTypeSelect, Priority: PriorityHigh, Rule: RuleAny,
		Options:  []string{"Idea Stage", "Pre-Revenue", "Early Revenue", "Growth Stage", "Established"},
		showWhen: forUserType(UserTypeBusiness),
	},
	{
		ID: FieldIndustry, Title: "Your Industry 🏭", Subtitle: "Industry-specific grants are often the most lucrative",
		Placeholder: "e.g., Technology, Healthcare, Agriculture", Type: FieldTypeText, Priority: PriorityHigh, Rule: RuleAny,
		showWhen: forUserType(UserTypeBusiness),
	},
	{
		ID: FieldPaymentPreference, Title: "How Would You Prefer to Pay? 💳",
		Subtitle:    "We offer multiple secure payment options to make funding accessible. This helps us provide the best payment experience for your region.",
		Placeholder: "Select preferred payment method", Type: FieldTypePaymentPreference, Priority: PriorityMedium, Rule: RuleAny,
		Options:           []string{"Mobile Money (M-Pesa, Airtel)", "Bank Transfer", "Credit/Debit Card", "PayPal", "Cryptocurrency"},
		ContextualMessage: "Knowing your payment preference helps us streamline your experience when you're ready to invest in premium features.",
	},
	{
		ID: FieldMonthlyBudget, Title: "Investment Capacity 💰",
		Subtitle:    "This helps us recommend the right service tier for you. All amounts are confidential and help us personalize your experience.",
		Placeholder: "Select your monthly budget range", Type: FieldTypeSelect, Priority: PriorityMedium, Rule: RuleAny,
		Options:           []string{"$10-50", "$50-100", "$100-300", "$300-500", "$500+", "Prefer not to say"},
		ContextualMessage: "Understanding your budget helps us show you the most cost-effective funding opportunities and service packages.",
	},
	{
		ID: FieldFundingGoals, Title: "Your Funding Goals 🎯",
		Subtitle:    "What are you hoping to achieve? This helps our AI prioritize opportunities for you.",
		Placeholder: "Select all that apply", Type: FieldTypeMultiSelect, Priority: PriorityHigh, Rule: RuleAny,
		Options: []string{
			"Education/Tuition funding",
			"Research project funding",
			"Business startup capital",
			"Non-profit program funding",
			"Equipment/Infrastructure",
			"Emergency financial support",
			"Capacity building",
			"International expansion",
		},
	},
	{
		ID: FieldUrgencyLevel, Title: "Timeline for Funding ⏰",
		Subtitle:    "When do you need funding? This affects which opportunities we prioritize for you.",
		Placeholder: "Select your timeline", Type: FieldTypeSelect, Priority: PriorityMedium, Rule: RuleAny,
		Options: []string{"Immediately (within 1 month)", "Within 3 months", "Within 6 months", "Within 1 year", "Flexible timeline"},
	},
	{
		ID: FieldPreviousExperience, Title: "Funding Experience 📈",
		Subtitle:    "Have you applied for grants or funding before? This helps us calibrate our recommendations.",
		Placeholder: "Select your experience level", Type: FieldTypeSelect, Priority: PriorityLow, Rule: RuleAny,
		Options: []string{"Never applied before", "Applied but unsuccessful", "Some success with small grants", "Successfully secured major funding", "Experienced fundraiser"},
	},
}

// FlowCatalog returns every flow step regardless of visibility.
func FlowCatalog() []FlowStep {
	return slices.Clone(flowCatalog)
}

// VisibleSteps filters the catalog to the steps that apply to the profile.
func VisibleSteps(p Profile) []FlowStep {
	out := make([]FlowStep, 0, len(flowCatalog))
	for _, s := range flowCatalog {
		if s.Visible(p) {
			out = append(out, s)
		}
	}
	return out
}

// Session is the server-side state of one guided registration.
type Session struct {
	ID        string             `json:"id"`
	Profile   Profile            `json:"profile"`
	StepIndex int                `json:"stepIndex"`
	Metrics   engagement.Metrics `json:"metrics"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type SessionRepository interface {
	GetSession(ctx context.Context, id string) (Session, bool, error)
	SaveSession(ctx context.Context, session Session) error
	DeleteSession(ctx context.Context, id string) error
}

func NewSession(id string, now time.Time) Session {
	return Session{
		ID:        id,
		Metrics:   engagement.Metrics{StartedAt: now},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Current returns the step at StepIndex, or false once the flow is complete.
func (s Session) Current() (FlowStep, bool) {
	steps := VisibleSteps(s.Profile)
	if s.StepIndex < 0 || s.StepIndex >= len(steps) {
		return FlowStep{}, false
	}
	return steps[s.StepIndex], true
}

func (s Session) Complete() bool {
	_, ok := s.Current()
	return !ok
}

// Answer records value for stepID and counts it as a completed step.
func (s *Session) Answer(stepID, value string, now time.Time) error {
	idx := slices.IndexFunc(flowCatalog, func(f FlowStep) bool { return f.ID == stepID })
	if idx < 0 {
		return fmt.Errorf("unknown flow step %q", stepID)
	}
	step := flowCatalog[idx]
	if !step.Visible(s.Profile) {
		return fmt.Errorf("flow step %q does not apply to this profile", stepID)
	}
	if err := step.Accepts(value); err != nil {
		return err
	}
	if err := s.Profile.Set(stepID, value); err != nil {
		return err
	}
	s.Metrics.StepsCompleted++
	s.UpdatedAt = now
	return nil
}

// Advance moves forward and reports whether another step remains.
func (s *Session) Advance(now time.Time) bool {
	s.StepIndex++
	s.UpdatedAt = now
	return !s.Complete()
}

// Back moves one step back; only a real move counts as a backtrack.
func (s *Session) Back(now time.Time) bool {
	if s.StepIndex <= 0 {
		return false
	}
	s.StepIndex--
	s.Metrics.BacktrackCount++
	s.UpdatedAt = now
	return true
}

// CompletionPercentage is answered steps over visible steps, rounded.
func (s Session) CompletionPercentage() int {
	total := len(VisibleSteps(s.Profile))
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(s.Metrics.StepsCompleted) / float64(total) * 100))
}

func (s Session) ShouldShowSocialLogins(now time.Time) bool {
	return s.Metrics.StepsCompleted >= 3 && engagement.Score(s.Metrics, now) > 50
}

func (s Session) Insights(now time.Time) engagement.Insights {
	return engagement.InsightsFor(s.Metrics, now)
}

func (s Session) PersonalizedMessage() string {
	p := s.Profile
	or := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}

	switch p.UserType {
	case UserTypeStudent:
		return fmt.Sprintf("Perfect! As a %s in %s, we'll find scholarships and grants specifically for you in %s.",
			or(p.EducationLevel, "student"), or(p.FieldOfStudy, "your field"), p.Country)
	case UserTypeOrganization:
		return fmt.Sprintf("Excellent! We'll help %s find grants that match your mission and size.",
			or(p.OrganizationName, "your organization"))
	case UserTypeBusiness:
		return fmt.Sprintf("Great! We'll connect your %s in %s with the right investors and grants.",
			or(p.BusinessStage, "business"), or(p.Industry, "your industry"))
	default:
		return fmt.Sprintf("Welcome %s! We're building your personalized funding dashboard.", p.FirstName)
	}
}

// MissingCritical lists required fields still empty before final submit.
func (s Session) MissingCritical() []string {
	var missing []string
	for _, step := range flowCatalog {
		if !step.Required {
			continue
		}
		v, ok := s.Profile.Get(step.ID)
		if !ok || !step.Rule.Validate(v) {
			missing = append(missing, step.ID)
		}
	}
	return missing
}
