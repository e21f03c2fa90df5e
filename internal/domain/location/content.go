package location

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type SuccessStory struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Achievement string `json:"achievement" yaml:"achievement"`
	Amount      string `json:"amount" yaml:"amount"`
	Quote       string `json:"quote" yaml:"quote"`
	Image       string `json:"image" yaml:"image"`
	Color       string `json:"color" yaml:"color"`
	Location    string `json:"location" yaml:"-"`
}

type Opportunity struct {
	Title        string `json:"title" yaml:"title"`
	Organization string `json:"organization" yaml:"organization"`
	Amount       string `json:"amount" yaml:"amount"`
	Deadline     string `json:"deadline" yaml:"deadline"`
	Description  string `json:"description" yaml:"description"`
}

type CulturalInsights struct {
	Greeting   string   `json:"greeting"`
	Currency   string   `json:"currency"`
	TimeFormat string   `json:"timeFormat"`
	Priorities []string `json:"priorities"`
	Challenges []string `json:"challenges"`
}

// Content is the localized copy shown next to the onboarding form.
type Content struct {
	SuccessStories     []SuccessStory   `json:"successStories"`
	LocalOpportunities []Opportunity    `json:"localOpportunities"`
	CulturalInsights   CulturalInsights `json:"culturalInsights"`
}

const (
	TimeFormat12Hour = "12-hour"
	TimeFormat24Hour = "24-hour"
)

//go:embed content.yaml
var contentYAML []byte

type contentRegion struct {
	Countries []string       `yaml:"countries"`
	Stories   []SuccessStory `yaml:"stories"`
}

type contentCatalog struct {
	Regions             map[string]contentRegion `yaml:"regions"`
	DefaultRegion       string                   `yaml:"default_region"`
	Opportunity         Opportunity              `yaml:"opportunity"`
	Greetings           map[string]string        `yaml:"greetings"`
	DefaultGreeting     string                   `yaml:"default_greeting"`
	TwelveHourCountries []string                 `yaml:"twelve_hour_countries"`
	Priorities          map[string][]string      `yaml:"priorities"`
	DefaultPriorities   []string                 `yaml:"default_priorities"`
	Challenges          map[string][]string      `yaml:"challenges"`
	DefaultChallenges   []string                 `yaml:"default_challenges"`
}

var (
	catalogOnce sync.Once
	catalog     contentCatalog
	catalogErr  error
)

func loadCatalog() (contentCatalog, error) {
	catalogOnce.Do(func() {
		if err := yaml.Unmarshal(contentYAML, &catalog); err != nil {
			catalogErr = fmt.Errorf("decode content catalog: %w", err)
			return
		}
		if _, ok := catalog.Regions[catalog.DefaultRegion]; !ok {
			catalogErr = fmt.Errorf("content catalog default region %q is not defined", catalog.DefaultRegion)
		}
	})
	return catalog, catalogErr
}

// MustLoadContentCatalog panics when the embedded catalog is malformed. Call it at startup.
func MustLoadContentCatalog() {
	if _, err := loadCatalog(); err != nil {
		panic(err)
	}
}

// RegionFor names the story set used for a country: africa, asia, europe or the default.
func RegionFor(country string) string {
	cat, err := loadCatalog()
	if err != nil {
		return "africa"
	}
	for _, name := range []string{"africa", "asia", "europe"} {
		if slices.Contains(cat.Regions[name].Countries, country) {
			return name
		}
	}
	return cat.DefaultRegion
}

func Greeting(country string) string {
	cat, _ := loadCatalog()
	if g, ok := cat.Greetings[country]; ok {
		return g
	}
	if cat.DefaultGreeting == "" {
		return "Hello"
	}
	return cat.DefaultGreeting
}

func TimeFormat(country string) string {
	cat, _ := loadCatalog()
	if slices.Contains(cat.TwelveHourCountries, country) {
		return TimeFormat12Hour
	}
	return TimeFormat24Hour
}

func Priorities(country string) []string {
	cat, _ := loadCatalog()
	if p, ok := cat.Priorities[country]; ok {
		return slices.Clone(p)
	}
	return slices.Clone(cat.DefaultPriorities)
}

func Challenges(country string) []string {
	cat, _ := loadCatalog()
	if c, ok := cat.Challenges[country]; ok {
		return slices.Clone(c)
	}
	return slices.Clone(cat.DefaultChallenges)
}

// FallbackContent renders the embedded regional copy for a guess and user type.
func FallbackContent(guess Guess, userType string) Content {
	cat, _ := loadCatalog()
	guess = guess.Complete()

	r := strings.NewReplacer(
		"{currency}", guess.Currency,
		"{country}", guess.Country,
		"{userType}", userType,
	)

	region := cat.Regions[RegionFor(guess.Country)]
	stories := make([]SuccessStory, 0, len(region.Stories))
	for _, s := range region.Stories {
		s.Achievement = r.Replace(s.Achievement)
		s.Amount = r.Replace(s.Amount)
		s.Location = guess.Country
		stories = append(stories, s)
	}

	opp := cat.Opportunity
	opp.Title = r.Replace(opp.Title)
	opp.Amount = r.Replace(opp.Amount)
	opp.Description = r.Replace(opp.Description)

	return Content{
		SuccessStories:     stories,
		LocalOpportunities: []Opportunity{opp},
		CulturalInsights: CulturalInsights{
			Greeting:   Greeting(guess.Country),
			Currency:   guess.Currency,
			TimeFormat: TimeFormat(guess.Country),
			Priorities: Priorities(guess.Country),
			Challenges: Challenges(guess.Country),
		},
	}
}
