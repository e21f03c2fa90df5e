package accounts

import (
	"encoding/json"
	"strings"

	sonic "github.com/bytedance/sonic"

	"github.com/granada-os/personalization/internal/usecase"
)

type registerRequest struct {
	FirstName          string   `json:"firstName"`
	LastName           string   `json:"lastName"`
	Email              string   `json:"email"`
	Password           string   `json:"password"`
	Country            string   `json:"country"`
	UserType           string   `json:"userType"`
	PreferredLanguage  string   `json:"preferredLanguage,omitempty"`
	EducationLevel     string   `json:"educationLevel,omitempty"`
	FieldOfStudy       string   `json:"fieldOfStudy,omitempty"`
	OrganizationType   string   `json:"organizationType,omitempty"`
	OrganizationName   string   `json:"organizationName,omitempty"`
	BusinessType       string   `json:"businessType,omitempty"`
	BusinessName       string   `json:"businessName,omitempty"`
	BusinessStage      string   `json:"businessStage,omitempty"`
	Industry           string   `json:"industry,omitempty"`
	TeamSize           string   `json:"teamSize,omitempty"`
	PaymentPreference  string   `json:"paymentPreference,omitempty"`
	MonthlyBudget      string   `json:"monthlyBudget,omitempty"`
	FundingGoals       []string `json:"fundingGoals,omitempty"`
	UrgencyLevel       string   `json:"urgencyLevel,omitempty"`
	PreviousExperience string   `json:"previousExperience,omitempty"`
}

func newRegisterRequest(reg usecase.Registration) registerRequest {
	p := reg.Profile
	country := strings.TrimSpace(reg.Country)
	if country == "" {
		country = p.Country
	}
	return registerRequest{
		FirstName:          p.FirstName,
		LastName:           p.LastName,
		Email:              p.Email,
		Password:           p.Password,
		Country:            country,
		UserType:           string(p.UserType),
		PreferredLanguage:  reg.Language,
		EducationLevel:     p.EducationLevel,
		FieldOfStudy:       p.FieldOfStudy,
		OrganizationType:   p.OrganizationType,
		OrganizationName:   p.OrganizationName,
		BusinessType:       p.BusinessType,
		BusinessName:       p.BusinessName,
		BusinessStage:      p.BusinessStage,
		Industry:           p.Industry,
		TeamSize:           p.TeamSize,
		PaymentPreference:  p.PaymentPreference,
		MonthlyBudget:      p.MonthlyBudget,
		FundingGoals:       p.FundingGoals,
		UrgencyLevel:       p.UrgencyLevel,
		PreviousExperience: p.PreviousExperience,
	}
}

// registerResponse tolerates numeric and string user ids.
type registerResponse struct {
	Message    string `json:"message"`
	RedirectTo string `json:"redirectTo"`
	User       struct {
		ID    flexibleID `json:"id"`
		Email string     `json:"email"`
	} `json:"user"`
}

type flexibleID string

func (f *flexibleID) UnmarshalJSON(raw []byte) error {
	var s string
	if err := sonic.Unmarshal(raw, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := sonic.Unmarshal(raw, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

func (f flexibleID) String() string { return string(f) }
