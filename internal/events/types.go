// Package events implements the owner-scoped event workflows: listing and
// filtering events with their venues, sport suggestions, and the
// create/update/delete sequences that keep venues, links, and images
// consistent with the event row.
package events

import (
	"context"
	"time"

	"github.com/intermernet/matchday/internal/database"
)

// DefaultSportTypes seeds the sport suggestions of every user.
var DefaultSportTypes = []string{"Soccer", "Basketball", "Tennis", "Cricket", "Baseball", "Volleyball"}

// Venue is a place an event is held.
type Venue struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Image references an event picture. Path is set only for objects uploaded
// to our own storage; externally sourced images carry just a URL.
type Image struct {
	URL  string `json:"url"`
	Path string `json:"path,omitempty"`
}

// Event is an event joined with its venues.
type Event struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	SportType   string    `json:"sportType"`
	EventAt     time.Time `json:"eventAt"`
	Description string    `json:"description,omitempty"`
	Image       *Image    `json:"image"`
	Venues      []Venue   `json:"venues"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Filters narrow a listing. Sport is matched exactly by the store; the rest
// are applied in memory.
type Filters struct {
	Search   string
	Sport    string
	Date     string
	Location string
}

// UploadedImage is the result of an image upload.
type UploadedImage struct {
	URL  string `json:"imageUrl"`
	Path string `json:"imagePath"`
}

// PhotoFinder suggests an image for an event. ok is false on any failure.
type PhotoFinder interface {
	Search(ctx context.Context, query string) (url string, ok bool)
}

// Notifier tells a user's clients that views went stale.
type Notifier interface {
	Invalidate(userID string, paths ...string)
}

func fromRow(row database.Event, venues []Venue) Event {
	e := Event{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Name:        row.Name,
		SportType:   row.SportType,
		EventAt:     row.EventAt,
		Description: row.Description.String,
		Venues:      venues,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if e.Venues == nil {
		e.Venues = []Venue{}
	}
	if row.ImageURL.Valid && row.ImageURL.String != "" {
		e.Image = &Image{URL: row.ImageURL.String, Path: row.ImagePath.String}
	}
	return e
}

func venueFromRow(row database.Venue) Venue {
	return Venue{ID: row.ID, Name: row.Name, Address: row.Address}
}

func eventPaths(id string) []string {
	return []string{"/dashboard", "/events/" + id, "/events/" + id + "/edit"}
}
