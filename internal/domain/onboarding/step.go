package onboarding

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/granada-os/personalization/internal/domain/location"
)

type StepID string

const (
	StepFirstName  StepID = "FIRST_NAME"
	StepLastName   StepID = "LAST_NAME"
	StepEmail      StepID = "EMAIL"
	StepPassword   StepID = "PASSWORD"
	StepCountry    StepID = "COUNTRY"
	StepUserType   StepID = "USER_TYPE"
	StepAIInsights StepID = "AI_INSIGHTS"
	StepDetailForm StepID = "DETAIL_FORM"
	StepWelcome    StepID = "WELCOME"
)

// StepSequence is the fixed order every user walks through. Personalization only changes copy.
var StepSequence = []StepID{
	StepFirstName, StepLastName, StepEmail, StepPassword, StepCountry,
	StepUserType, StepAIInsights, StepDetailForm, StepWelcome,
}

func ParseStepID(v string) (StepID, error) {
	id := StepID(strings.ToUpper(strings.TrimSpace(v)))
	if !slices.Contains(StepSequence, id) {
		return "", fmt.Errorf("unknown step %q", v)
	}
	return id, nil
}

var (
	emailPattern       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	africanNamePattern = regexp.MustCompile(`(?i)^(Kwame|Kofi|Ama|Akosua|Chinwe|Emeka|Fatima|Hassan|Amina|Yusuf)`)
)

// Rule is a named input predicate attached to a step.
type Rule struct {
	Name  string
	check func(string) bool
}

func (r Rule) Validate(input string) bool {
	if r.check == nil {
		return true
	}
	return r.check(input)
}

func MinLength(n int) Rule {
	return Rule{
		Name: fmt.Sprintf("min_length:%d", n),
		check: func(input string) bool {
			return utf8.RuneCountInString(strings.TrimSpace(input)) >= n
		},
	}
}

var (
	RuleName     = MinLength(2)
	RulePassword = Rule{
		Name: "min_length:8",
		check: func(input string) bool {
			return utf8.RuneCountInString(input) >= 8
		},
	}
	RuleEmail = Rule{
		Name:  "email",
		check: emailPattern.MatchString,
	}
	RuleUserType = Rule{
		Name: "user_type",
		check: func(input string) bool {
			_, err := ParseUserType(input)
			return err == nil
		},
	}
	RuleAny = Rule{Name: "any"}
)

// Step is the personalized copy and input rule for the next form prompt.
type Step struct {
	ID              StepID         `json:"stepId"`
	NextID          StepID         `json:"nextStepId"`
	Title           string         `json:"title"`
	Subtitle        string         `json:"subtitle"`
	Placeholder     string         `json:"placeholder"`
	Rule            Rule           `json:"-"`
	Personalization map[string]any `json:"personalization,omitempty"`
}

// FundingLandscape summarizes grant activity for a country.
type FundingLandscape struct {
	Summary       string   `json:"summary"`
	PrimaryTypes  []string `json:"fundingTypes"`
	SuccessRate   string   `json:"successRate"`
	AverageAmount string   `json:"averageAmount"`
}

var fundingLandscapes = map[string]FundingLandscape{
	"Kenya": {
		Summary:       "850+ active grants focusing on agriculture, health, and education",
		PrimaryTypes:  []string{"Development Grants", "Agriculture Funding", "Health Initiatives"},
		SuccessRate:   "68%",
		AverageAmount: "$45,000",
	},
	"Nigeria": {
		Summary:       "1,200+ opportunities in technology, agriculture, and social impact",
		PrimaryTypes:  []string{"Tech Innovation", "Agricultural Development", "Social Enterprise"},
		SuccessRate:   "71%",
		AverageAmount: "$62,000",
	},
	"Uganda": {
		Summary:       "600+ grants for education, health, and community development",
		PrimaryTypes:  []string{"Education Grants", "Health Programs", "Community Development"},
		SuccessRate:   "65%",
		AverageAmount: "$38,000",
	},
	"United States": {
		Summary:       "5,000+ federal and private foundation opportunities",
		PrimaryTypes:  []string{"Research Grants", "Innovation Funding", "Social Programs"},
		SuccessRate:   "45%",
		AverageAmount: "$125,000",
	},
	"United Kingdom": {
		Summary:       "2,800+ European and UK-specific funding streams",
		PrimaryTypes:  []string{"Research Council Grants", "Innovation Funding", "Social Impact"},
		SuccessRate:   "52%",
		AverageAmount: "£78,000",
	},
}

var defaultFundingLandscape = FundingLandscape{
	Summary:       "500+ international opportunities across all sectors",
	PrimaryTypes:  []string{"International Grants", "Global Initiatives", "Cross-border Funding"},
	SuccessRate:   "58%",
	AverageAmount: "$55,000",
}

func FundingLandscapeFor(country string) FundingLandscape {
	if f, ok := fundingLandscapes[country]; ok {
		return f
	}
	return defaultFundingLandscape
}

// UserTypeInsight is the pitch shown after the user picks a type.
type UserTypeInsight struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle"`
	Features []string `json:"features"`
	UseCases []string `json:"useCases"`
}

func UserTypeInsightFor(t UserType, country string) UserTypeInsight {
	switch t {
	case UserTypeOrganization:
		return UserTypeInsight{
			Title:    fmt.Sprintf("Excellent! %s actively supports NGO development", country),
			Subtitle: "We've identified 150+ grants perfect for organizations like yours",
			Features: []string{"Grant Database Access", "Proposal Writing AI", "Donor Relationship Management"},
			UseCases: []string{"Secure operational funding", "Project-specific grants", "Capacity building support"},
		}
	case UserTypeBusiness:
		return UserTypeInsight{
			Title:    fmt.Sprintf("Great choice! %s has strong business funding ecosystem", country),
			Subtitle: "AI analysis shows 300+ funding options for businesses in your region",
			Features: []string{"Investor Matching", "Grant Opportunity Scanner", "Pitch Deck Optimizer"},
			UseCases: []string{"Seed funding rounds", "Government business grants", "Innovation competitions"},
		}
	default:
		return UserTypeInsight{
			Title:    fmt.Sprintf("Perfect! %s has excellent student opportunities", country),
			Subtitle: "Our AI found 200+ scholarships and research grants matching your profile",
			Features: []string{"Scholarship Matching", "Research Grant Finder", "Academic Mentor Connect"},
			UseCases: []string{"Find full scholarships", "Research funding for thesis", "Conference travel grants"},
		}
	}
}

type SecurityLevel string

const (
	SecurityHigh     SecurityLevel = "high"
	SecurityMedium   SecurityLevel = "medium"
	SecurityStandard SecurityLevel = "standard"
)

func SecurityLevelFor(country string) SecurityLevel {
	switch country {
	case "Nigeria", "Kenya", "South Africa":
		return SecurityHigh
	case "Ghana", "Uganda", "Tanzania":
		return SecurityMedium
	default:
		return SecurityStandard
	}
}

var securityMessages = map[SecurityLevel]string{
	SecurityHigh:     "Strong security is crucial in your region",
	SecurityMedium:   "Let's secure your account properly",
	SecurityStandard: "Choose a secure password",
}

// SelectStep returns the copy and rule for the step after current. guess may be nil.
func SelectStep(profile Profile, guess *location.Guess, current StepID, now time.Time) Step {
	var continent, country string
	if guess != nil {
		continent, country = guess.Continent, guess.Country
	}

	switch current {
	case StepFirstName:
		return Step{
			ID:          current,
			NextID:      StepLastName,
			Title:       continentGreeting(continent),
			Subtitle:    "Let's start with your first name to personalize your experience",
			Placeholder: "Enter your first name",
			Rule:        RuleName,
		}

	case StepLastName:
		first := profile.FirstName
		var title string
		switch {
		case continent == "Africa" && africanNamePattern.MatchString(first):
			title = fmt.Sprintf("Beautiful name, %s! What's your family name?", first)
		case continent == "Europe":
			title = fmt.Sprintf("Nice to meet you, %s! And your surname?", first)
		case continent == "Asia":
			title = fmt.Sprintf("Hello %s! Please share your family name", first)
		default:
			title = fmt.Sprintf("Great to meet you, %s! What's your last name?", first)
		}
		return Step{
			ID:          current,
			NextID:      StepEmail,
			Title:       title,
			Subtitle:    "We'll use this to create your personalized profile",
			Placeholder: "Enter your last name",
			Rule:        RuleName,
		}

	case StepEmail:
		region := country
		if region == "" {
			region = "your region"
		}
		return Step{
			ID:          current,
			NextID:      StepPassword,
			Title:       fmt.Sprintf("Good %s, %s!", partOfDay(localHour(guess, now)), profile.FullName()),
			Subtitle:    fmt.Sprintf("We need your email to send personalized funding alerts for %s", region),
			Placeholder: "Enter your email address",
			Rule:        RuleEmail,
		}

	case StepPassword:
		return Step{
			ID:          current,
			NextID:      StepCountry,
			Title:       "Secure Your Account",
			Subtitle:    securityMessages[SecurityLevelFor(country)] + " - We take your data protection seriously",
			Placeholder: "Create a strong password (8+ characters)",
			Rule:        RulePassword,
		}

	case StepCountry:
		step := Step{
			ID:          current,
			NextID:      StepUserType,
			Title:       "Your Location Matters",
			Subtitle:    "Which country are you based in? This helps us find local opportunities:",
			Placeholder: "Start typing your country...",
			Rule:        RuleName,
		}
		if country != "" {
			step.Subtitle = fmt.Sprintf("We detected you're in %s. Confirm or change below:", country)
			step.Placeholder = country
		}
		return step

	case StepUserType:
		landscape := FundingLandscapeFor(country)
		target := profile.Country
		if target == "" {
			target = country
		}
		return Step{
			ID:       current,
			NextID:   StepAIInsights,
			Title:    fmt.Sprintf("Perfect! Here's what's available in %s", target),
			Subtitle: "Based on our analysis: " + landscape.Summary,
			Rule:     RuleUserType,
			Personalization: map[string]any{
				"fundingTypes":  landscape.PrimaryTypes,
				"successRate":   landscape.SuccessRate,
				"averageAmount": landscape.AverageAmount,
			},
		}

	case StepAIInsights:
		insight := UserTypeInsightFor(profile.UserType, country)
		return Step{
			ID:       current,
			NextID:   StepDetailForm,
			Title:    insight.Title,
			Subtitle: insight.Subtitle,
			Rule:     RuleAny,
			Personalization: map[string]any{
				"title":    insight.Title,
				"subtitle": insight.Subtitle,
				"features": insight.Features,
				"useCases": insight.UseCases,
			},
		}

	default:
		return Step{
			ID:       current,
			NextID:   StepWelcome,
			Title:    "Welcome",
			Subtitle: "Let's get started",
			Rule:     RuleAny,
		}
	}
}

func continentGreeting(continent string) string {
	switch continent {
	case "Africa":
		return "Karibu! Welcome to your funding journey"
	case "Europe":
		return "Welcome to your European funding adventure"
	case "Asia":
		return "Welcome to your path to global opportunities"
	case "Americas", "North America", "South America":
		return "Welcome to your funding success story"
	default:
		return "Welcome to your personalized funding journey"
	}
}

// localHour reads the wall clock in the guessed timezone, else in now's own zone.
func localHour(guess *location.Guess, now time.Time) int {
	if guess != nil && guess.Timezone != "" {
		if loc, err := time.LoadLocation(guess.Timezone); err == nil {
			return now.In(loc).Hour()
		}
	}
	return now.Hour()
}

func partOfDay(hour int) string {
	switch {
	case hour < 12:
		return "morning"
	case hour < 17:
		return "afternoon"
	default:
		return "evening"
	}
}
