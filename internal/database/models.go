package database

import (
	"database/sql"
	"time"
)

// User represents a record in the 'users' table. PasswordHash is NULL for
// accounts created through Google sign-in.
type User struct {
	ID              string
	Email           string
	PasswordHash    sql.NullString
	EmailVerifiedAt sql.NullTime
	CreatedAt       time.Time
}

// Verified reports whether the user confirmed their email address.
func (u *User) Verified() bool {
	return u.EmailVerifiedAt.Valid
}

// Event represents a record in the 'events' table.
type Event struct {
	ID          string
	OwnerID     string
	Name        string
	SportType   string
	EventAt     time.Time
	Description sql.NullString
	ImageURL    sql.NullString
	ImagePath   sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Venue represents a record in the 'venues' table.
type Venue struct {
	ID        string
	OwnerID   string
	Name      string
	Address   string
	CreatedAt time.Time
}

// EventVenue is a row of the 'event_venues' junction table.
type EventVenue struct {
	EventID string
	VenueID string
}
