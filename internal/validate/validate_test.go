package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/intermernet/matchday/internal/apperr"
)

func validEvent() EventInput {
	return EventInput{
		Name:      "  Sunday League ",
		SportType: "Soccer",
		EventAt:   "2026-03-01T10:30",
		Venues: []VenueInput{
			{Name: "Central Park", Address: "5th Ave"},
		},
	}
}

func messageOf(t *testing.T, err error) string {
	t.Helper()
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("error = %v (%T), want *apperr.Error", err, err)
	}
	if appErr.Code != apperr.CodeValidation {
		t.Fatalf("code = %q, want %q", appErr.Code, apperr.CodeValidation)
	}
	return appErr.Message
}

func TestValidateEventNormalizes(t *testing.T) {
	t.Parallel()

	in := validEvent()
	in.ImagePath = "u1/events/1-a.png"
	got, err := ValidateEvent(in)
	if err != nil {
		t.Fatalf("ValidateEvent() error = %v", err)
	}
	if got.Name != "Sunday League" {
		t.Fatalf("Name = %q, want trimmed", got.Name)
	}
	want := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	if !got.EventAt.Equal(want) {
		t.Fatalf("EventAt = %v, want %v", got.EventAt, want)
	}
	if got.ImagePath != "" {
		t.Fatalf("ImagePath = %q, want dropped without image URL", got.ImagePath)
	}
	if len(got.Venues) != 1 || got.Venues[0].Name != "Central Park" {
		t.Fatalf("Venues = %+v", got.Venues)
	}
}

func TestValidateEventFirstViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*EventInput)
		want   string
	}{
		{
			name:   "name before everything",
			mutate: func(in *EventInput) { in.Name = "a"; in.SportType = ""; in.Venues = nil },
			want:   "Event name is required",
		},
		{
			name:   "sport type before date",
			mutate: func(in *EventInput) { in.SportType = " x "; in.EventAt = "" },
			want:   "Sport type is required",
		},
		{
			name:   "missing date",
			mutate: func(in *EventInput) { in.EventAt = "  " },
			want:   "Date and time are required",
		},
		{
			name:   "unparseable date",
			mutate: func(in *EventInput) { in.EventAt = "next tuesday" },
			want:   "Enter a valid date and time",
		},
		{
			name:   "bad image url",
			mutate: func(in *EventInput) { in.ImageURL = "not a url" },
			want:   "Enter a valid image URL",
		},
		{
			name:   "no venues",
			mutate: func(in *EventInput) { in.Venues = []VenueInput{} },
			want:   "At least one venue is required",
		},
		{
			name:   "short venue name",
			mutate: func(in *EventInput) { in.Venues = append(in.Venues, VenueInput{Name: "X", Address: "Main St"}) },
			want:   "Venue name is required",
		},
		{
			name:   "short venue address",
			mutate: func(in *EventInput) { in.Venues[0].Address = "ab" },
			want:   "Venue address is required",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			in := validEvent()
			tc.mutate(&in)
			_, err := ValidateEvent(in)
			if got := messageOf(t, err); got != tc.want {
				t.Fatalf("message = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestValidateEventAcceptsEmptyAndExternalImage(t *testing.T) {
	t.Parallel()

	in := validEvent()
	in.ImageURL = "https://images.pexels.com/photos/1/a.jpeg"
	got, err := ValidateEvent(in)
	if err != nil {
		t.Fatalf("ValidateEvent() error = %v", err)
	}
	if got.ImageURL != in.ImageURL || got.ImagePath != "" {
		t.Fatalf("image = (%q, %q)", got.ImageURL, got.ImagePath)
	}
}

func TestValidateCredentials(t *testing.T) {
	t.Parallel()

	got, err := ValidateCredentials(CredentialsInput{Email: " Fan@Example.com ", Password: "secret"})
	if err != nil {
		t.Fatalf("ValidateCredentials() error = %v", err)
	}
	if got.Email != "fan@example.com" {
		t.Fatalf("Email = %q", got.Email)
	}

	_, err = ValidateCredentials(CredentialsInput{Email: "nope", Password: "secret"})
	if got := messageOf(t, err); got != "Enter a valid email" {
		t.Fatalf("message = %q", got)
	}
	_, err = ValidateCredentials(CredentialsInput{Email: "a@b.co", Password: "12345"})
	if got := messageOf(t, err); got != "Password must be at least 6 characters" {
		t.Fatalf("message = %q", got)
	}
}

func TestValidateVenue(t *testing.T) {
	t.Parallel()

	if _, err := ValidateVenue(VenueInput{Name: "Arena", Address: "1 Rd"}); err != nil {
		t.Fatalf("ValidateVenue() error = %v", err)
	}
	_, err := ValidateVenue(VenueInput{Name: " A ", Address: "1 Rd"})
	if got := messageOf(t, err); got != "Venue name is required" {
		t.Fatalf("message = %q", got)
	}
}

func TestParseEventTime(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2026-03-01T08:00:00Z",
		"2026-03-01T10:00:00+02:00",
		"2026-03-01T08:00:00.000Z",
		"2026-03-01T08:00",
		"2026-03-01 08:00",
	} {
		got, err := ParseEventTime(in)
		if err != nil {
			t.Fatalf("ParseEventTime(%q) error = %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseEventTime(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseEventTime("01/03/2026"); err == nil {
		t.Fatal("ParseEventTime() error = nil, want error")
	}
}
