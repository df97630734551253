package submission

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// Choices offered by the public forms.
var (
	Courses        = []string{"BCA", "BBA", "B TECH", "BBALLB", "MBA", "BAJMC"}
	DevTeamCourses = []string{"BCA", "BBA", "B TECH", "BBALLB", "MBA", "BAJMC", "Other"}
	Years          = []string{"1st Year", "2nd Year", "3rd Year", "4th Year", "5th Year"}
	DevTeamRoles   = []string{
		"Frontend Developer",
		"Backend Developer",
		"UI/UX Designer",
		"Graphics/Branding",
		"AI/ML",
		"Automation",
	}
	WeeklyTimes = []string{"5-10 hours", "10-15 hours", "15-20 hours", "20+ hours", "Flexible"}
)

// ApplicationInput is the general application form.
type ApplicationInput struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Course    string `json:"course" validate:"required"`
	Year      string `json:"year" validate:"required"`
	Contact   string `json:"contact" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
	ResumeURL string `json:"resumeUrl" validate:"omitempty,url"`
}

// DevTeamInput is the dev team recruitment form.
type DevTeamInput struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Course          string `json:"course" validate:"required"`
	CurrentYear     string `json:"currentYear" validate:"required"`
	PhoneNo         string `json:"phoneNo" validate:"required"`
	WhyJoin         string `json:"whyJoin" validate:"required"`
	TechSkills      string `json:"techSkills"`
	ProjectInterest string `json:"projectInterest"`
	WeeklyTime      string `json:"weeklyTime"`
	ProjectLink     string `json:"projectLink" validate:"omitempty,url"`
	AppliedFor      string `json:"appliedFor" validate:"required"`
}

// ValidationError lists the invalid fields of a form, keyed by their JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := lo.Keys(e.Fields)
	slices.Sort(keys)
	parts := lo.Map(keys, func(k string, _ int) string { return k + " " + e.Fields[k] })
	return "invalid submission: " + strings.Join(parts, ", ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

func check(form any, choices map[string]choice) error {
	fields := make(map[string]string)

	if err := validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields[fe.Field()] = message(fe.Tag())
		}
	}

	for name, c := range choices {
		if _, failed := fields[name]; failed || (c.value == "" && c.optional) {
			continue
		}
		if !lo.Contains(c.allowed, c.value) {
			fields[name] = fmt.Sprintf("must be one of: %s", strings.Join(c.allowed, ", "))
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

type choice struct {
	value    string
	allowed  []string
	optional bool
}

func message(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}

// validate checks a trimmed copy of the form. The form itself is stored as submitted.
func (in ApplicationInput) validate() error {
	trim(&in.Name, &in.Email, &in.Course, &in.Year, &in.Contact, &in.Reason, &in.ResumeURL)
	return check(&in, map[string]choice{
		"course": {value: in.Course, allowed: Courses},
		"year":   {value: in.Year, allowed: Years},
	})
}

func (in DevTeamInput) validate() error {
	trim(&in.Name, &in.Email, &in.Course, &in.CurrentYear, &in.PhoneNo, &in.WhyJoin,
		&in.TechSkills, &in.ProjectInterest, &in.WeeklyTime, &in.ProjectLink, &in.AppliedFor)
	return check(&in, map[string]choice{
		"course":      {value: in.Course, allowed: DevTeamCourses},
		"currentYear": {value: in.CurrentYear, allowed: Years},
		"appliedFor":  {value: in.AppliedFor, allowed: DevTeamRoles},
		"weeklyTime":  {value: in.WeeklyTime, allowed: WeeklyTimes, optional: true},
	})
}

func trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
