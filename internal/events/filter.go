package events

import (
	"strings"

	"github.com/intermernet/matchday/internal/database"
)

// Normalize trims every filter value.
func (f Filters) Normalize() Filters {
	return Filters{
		Search:   strings.TrimSpace(f.Search),
		Sport:    strings.TrimSpace(f.Sport),
		Date:     strings.TrimSpace(f.Date),
		Location: strings.TrimSpace(f.Location),
	}
}

// applyFilters keeps events matching search, date, and location. Search and
// location are case-insensitive substring tests; date is a string prefix of
// the stored event time. Order is preserved.
func applyFilters(events []Event, f Filters) []Event {
	search := strings.ToLower(f.Search)
	location := strings.ToLower(f.Location)

	out := make([]Event, 0, len(events))
	for _, e := range events {
		if search != "" && !strings.Contains(strings.ToLower(e.Name), search) {
			continue
		}
		if f.Date != "" && !strings.HasPrefix(e.EventAt.UTC().Format(database.TimeLayout), f.Date) {
			continue
		}
		if location != "" && !matchesLocation(e.Venues, location) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func matchesLocation(venues []Venue, needle string) bool {
	for _, v := range venues {
		if strings.Contains(strings.ToLower(v.Name), needle) || strings.Contains(strings.ToLower(v.Address), needle) {
			return true
		}
	}
	return false
}
