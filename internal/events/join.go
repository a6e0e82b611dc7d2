package events

import "github.com/intermernet/matchday/internal/database"

// GroupBy buckets items by key, keeping input order inside each bucket.
func GroupBy[T any, K comparable](items []T, key func(T) K) map[K][]T {
	groups := make(map[K][]T)
	for _, item := range items {
		k := key(item)
		groups[k] = append(groups[k], item)
	}
	return groups
}

// IndexBy maps each item by key. Later items win on duplicate keys.
func IndexBy[T any, K comparable](items []T, key func(T) K) map[K]T {
	index := make(map[K]T, len(items))
	for _, item := range items {
		index[key(item)] = item
	}
	return index
}

// distinctVenueIDs returns the venue ids referenced by links, first-seen order.
func distinctVenueIDs(links []database.EventVenue) []string {
	seen := make(map[string]struct{}, len(links))
	ids := make([]string, 0, len(links))
	for _, l := range links {
		if _, ok := seen[l.VenueID]; ok {
			continue
		}
		seen[l.VenueID] = struct{}{}
		ids = append(ids, l.VenueID)
	}
	return ids
}

// joinVenues attaches venues to events through the link rows. Events without
// links get an empty venue list and links to unknown venues are skipped.
func joinVenues(rows []database.Event, links []database.EventVenue, venues []database.Venue) []Event {
	linksByEvent := GroupBy(links, func(l database.EventVenue) string { return l.EventID })
	venueByID := IndexBy(venues, func(v database.Venue) string { return v.ID })

	out := make([]Event, 0, len(rows))
	for _, row := range rows {
		attached := make([]Venue, 0, len(linksByEvent[row.ID]))
		for _, l := range linksByEvent[row.ID] {
			if v, ok := venueByID[l.VenueID]; ok {
				attached = append(attached, venueFromRow(v))
			}
		}
		out = append(out, fromRow(row, attached))
	}
	return out
}
