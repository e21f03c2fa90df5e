package onboarding

import (
	"fmt"
	"slices"
	"strings"
)

type UserType string

const (
	UserTypeStudent      UserType = "student"
	UserTypeOrganization UserType = "organization"
	UserTypeBusiness     UserType = "business"
)

var AllUserTypes = []UserType{UserTypeStudent, UserTypeOrganization, UserTypeBusiness}

func ParseUserType(v string) (UserType, error) {
	t := UserType(strings.ToLower(strings.TrimSpace(v)))
	if !slices.Contains(AllUserTypes, t) {
		return "", fmt.Errorf("unknown user type %q", v)
	}
	return t, nil
}

// Profile is the partially filled registration form.
type Profile struct {
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Email     string   `json:"email,omitempty"`
	Password  string   `json:"-"`
	Country   string   `json:"country,omitempty"`
	UserType  UserType `json:"userType,omitempty"`

	EducationLevel   string `json:"educationLevel,omitempty"`
	FieldOfStudy     string `json:"fieldOfStudy,omitempty"`
	OrganizationType string `json:"organizationType,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
	BusinessType     string `json:"businessType,omitempty"`
	BusinessName     string `json:"businessName,omitempty"`
	BusinessStage    string `json:"businessStage,omitempty"`
	Industry         string `json:"industry,omitempty"`
	TeamSize         string `json:"teamSize,omitempty"`

	PaymentPreference  string   `json:"paymentPreference,omitempty"`
	MonthlyBudget      string   `json:"monthlyBudget,omitempty"`
	FundingGoals       []string `json:"fundingGoals,omitempty"`
	UrgencyLevel       string   `json:"urgencyLevel,omitempty"`
	PreviousExperience string   `json:"previousExperience,omitempty"`
}

// Field names accepted by Set and Get. They match the flow step ids.
const (
	FieldFirstName          = "firstName"
	FieldLastName           = "lastName"
	FieldEmail              = "email"
	FieldPassword           = "password"
	FieldCountry            = "country"
	FieldUserType           = "userType"
	FieldEducationLevel     = "educationLevel"
	FieldFieldOfStudy       = "fieldOfStudy"
	FieldOrganizationType   = "organizationType"
	FieldOrganizationName   = "organizationName"
	FieldBusinessType       = "businessType"
	FieldBusinessName       = "businessName"
	FieldBusinessStage      = "businessStage"
	FieldIndustry           = "industry"
	FieldTeamSize           = "teamSize"
	FieldPaymentPreference  = "paymentPreference"
	FieldMonthlyBudget      = "monthlyBudget"
	FieldFundingGoals       = "fundingGoals"
	FieldUrgencyLevel       = "urgencyLevel"
	FieldPreviousExperience = "previousExperience"
)

func (p *Profile) fields() map[string]*string {
	return map[string]*string{
		FieldFirstName:          &p.FirstName,
		FieldLastName:           &p.LastName,
		FieldEmail:              &p.Email,
		FieldPassword:           &p.Password,
		FieldCountry:            &p.Country,
		FieldEducationLevel:     &p.EducationLevel,
		FieldFieldOfStudy:       &p.FieldOfStudy,
		FieldOrganizationType:   &p.OrganizationType,
		FieldOrganizationName:   &p.OrganizationName,
		FieldBusinessType:       &p.BusinessType,
		FieldBusinessName:       &p.BusinessName,
		FieldBusinessStage:      &p.BusinessStage,
		FieldIndustry:           &p.Industry,
		FieldTeamSize:           &p.TeamSize,
		FieldPaymentPreference:  &p.PaymentPreference,
		FieldMonthlyBudget:      &p.MonthlyBudget,
		FieldUrgencyLevel:       &p.UrgencyLevel,
		FieldPreviousExperience: &p.PreviousExperience,
	}
}

// Set assigns a form value by field name. Funding goals take a comma separated list.
// Values are trimmed, except the password, which is kept exactly as typed.
func (p *Profile) Set(field, value string) error {
	switch field {
	case FieldUserType:
		t, err := ParseUserType(value)
		if err != nil {
			return err
		}
		p.UserType = t
		return nil
	case FieldFundingGoals:
		p.FundingGoals = splitList(value)
		return nil
	}

	target, ok := p.fields()[field]
	if !ok {
		return fmt.Errorf("unknown profile field %q", field)
	}
	if field != FieldPassword {
		value = strings.TrimSpace(value)
	}
	*target = value
	return nil
}

func (p Profile) Get(field string) (string, bool) {
	switch field {
	case FieldUserType:
		return string(p.UserType), p.UserType != ""
	case FieldFundingGoals:
		return strings.Join(p.FundingGoals, ","), len(p.FundingGoals) > 0
	}

	target, ok := p.fields()[field]
	if !ok {
		return "", false
	}
	return *target, *target != ""
}

func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" && !slices.Contains(out, part) {
			out = append(out, part)
		}
	}
	return out
}
