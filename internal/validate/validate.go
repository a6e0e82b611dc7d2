// Package validate checks and normalizes user input before any side effect.
// Every function reports the first violated rule as an apperr VALIDATION_ERROR.
package validate

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/intermernet/matchday/internal/apperr"
)

// eventTimeLayouts are tried in order. Values without a zone are taken as UTC.
var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

var checker = newChecker()

func newChecker() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("eventtime", func(fl validator.FieldLevel) bool {
		_, err := ParseEventTime(fl.Field().String())
		return err == nil
	})
	return v
}

// CredentialsInput is a sign-up or sign-in request.
type CredentialsInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

// VenueInput is one venue of an event payload.
type VenueInput struct {
	Name    string `json:"name" validate:"min=2"`
	Address string `json:"address" validate:"min=3"`
}

// EventInput is a create or update payload. Field order is the order in which
// violations are reported.
type EventInput struct {
	Name        string       `json:"name" validate:"min=2"`
	SportType   string       `json:"sportType" validate:"min=2"`
	EventAt     string       `json:"eventAt" validate:"required,eventtime"`
	Description string       `json:"description"`
	ImageURL    string       `json:"imageUrl" validate:"omitempty,url"`
	ImagePath   string       `json:"imagePath"`
	Venues      []VenueInput `json:"venues" validate:"min=1,dive"`
}

// Credentials is a validated credentials pair.
type Credentials struct {
	Email    string
	Password string
}

// Venue is a validated venue.
type Venue struct {
	Name    string
	Address string
}

// Event is a validated event payload with its time normalized to UTC.
type Event struct {
	Name        string
	SportType   string
	EventAt     time.Time
	Description string
	ImageURL    string
	ImagePath   string
	Venues      []Venue
}

// ValidateCredentials trims the email and checks both fields.
func ValidateCredentials(in CredentialsInput) (Credentials, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := checker.Struct(in); err != nil {
		return Credentials{}, firstViolation(err)
	}
	return Credentials{Email: strings.ToLower(in.Email), Password: in.Password}, nil
}

// ValidateVenue trims and checks a single venue.
func ValidateVenue(in VenueInput) (Venue, error) {
	in = trimVenue(in)
	if err := checker.Struct(in); err != nil {
		return Venue{}, firstViolation(err)
	}
	return Venue(in), nil
}

// ValidateEvent trims and checks an event payload and its venues. An image
// path without an image URL is dropped.
func ValidateEvent(in EventInput) (Event, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.SportType = strings.TrimSpace(in.SportType)
	in.EventAt = strings.TrimSpace(in.EventAt)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.ImagePath = strings.TrimSpace(in.ImagePath)
	venues := make([]VenueInput, len(in.Venues))
	for i, v := range in.Venues {
		venues[i] = trimVenue(v)
	}
	in.Venues = venues

	if err := checker.Struct(in); err != nil {
		return Event{}, firstViolation(err)
	}

	at, _ := ParseEventTime(in.EventAt)
	out := Event{
		Name:        in.Name,
		SportType:   in.SportType,
		EventAt:     at,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		ImagePath:   in.ImagePath,
		Venues:      make([]Venue, len(in.Venues)),
	}
	if out.ImageURL == "" {
		out.ImagePath = ""
	}
	for i, v := range in.Venues {
		out.Venues[i] = Venue(v)
	}
	return out, nil
}

// ParseEventTime accepts RFC 3339 and the HTML datetime-local forms and
// returns the instant in UTC, truncated to seconds.
func ParseEventTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Truncate(time.Second), nil
		}
	}
	return time.Time{}, errors.New("unrecognised date and time")
}

func trimVenue(in VenueInput) VenueInput {
	return VenueInput{
		Name:    strings.TrimSpace(in.Name),
		Address: strings.TrimSpace(in.Address),
	}
}

// firstViolation converts the first validator failure into a user message.
// The validator walks fields in declaration order and dives into venues
// after checking the slice itself.
func firstViolation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("Invalid input")
	}
	fe := verrs[0]
	inVenue := strings.Contains(fe.StructNamespace(), "].")

	switch fe.StructField() {
	case "Email":
		return apperr.Validation("Enter a valid email")
	case "Password":
		return apperr.Validation("Password must be at least 6 characters")
	case "Name":
		if inVenue {
			return apperr.Validation("Venue name is required")
		}
		return apperr.Validation("Event name is required")
	case "Address":
		return apperr.Validation("Venue address is required")
	case "SportType":
		return apperr.Validation("Sport type is required")
	case "EventAt":
		if fe.Tag() == "eventtime" {
			return apperr.Validation("Enter a valid date and time")
		}
		return apperr.Validation("Date and time are required")
	case "ImageURL":
		return apperr.Validation("Enter a valid image URL")
	case "Venues":
		return apperr.Validation("At least one venue is required")
	}
	return apperr.Validation("Invalid input")
}
