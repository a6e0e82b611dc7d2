package events

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/intermernet/matchday/internal/apperr"
	"github.com/intermernet/matchday/internal/auth"
	"github.com/intermernet/matchday/internal/database"
	"github.com/intermernet/matchday/internal/storage"
)

// Service runs the event workflows for the principal found in the context.
type Service struct {
	store    Store
	images   storage.ImageStore
	photos   PhotoFinder
	notifier Notifier
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewService wires the workflows to their collaborators.
func NewService(store Store, images storage.ImageStore, photos PhotoFinder, notifier Notifier, log logrus.FieldLogger) *Service {
	return &Service{
		store:    store,
		images:   images,
		photos:   photos,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// requirePrincipal fails with UNAUTHORIZED when the context carries no
// principal. A rejected session token yields the session-expired message.
func requirePrincipal(ctx context.Context) (auth.Principal, error) {
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		return p, nil
	}
	if err := auth.SessionErrorFromContext(ctx); err != nil {
		return auth.Principal{}, apperr.Wrap(apperr.CodeUnauthorized, apperr.Friendly(err, "Please login again"), err)
	}
	return auth.Principal{}, apperr.Unauthorized("Please login again")
}

// ListEvents returns the principal's events, ascending by event time, with
// their venues attached and filters applied. Without a principal the result
// is empty.
func (s *Service) ListEvents(ctx context.Context, f Filters) ([]Event, error) {
	p, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return []Event{}, nil
	}
	f = f.Normalize()

	rows, err := s.store.ListEvents(ctx, p.UserID, f.Sport)
	if err != nil {
		return nil, apperr.Normalize(err, apperr.CodeUnknown, "We could not load your events.")
	}
	if len(rows) == 0 {
		return []Event{}, nil
	}

	joined, err := s.attachVenues(ctx, p.UserID, rows)
	if err != nil {
		return nil, err
	}
	return applyFilters(joined, f), nil
}

func (s *Service) attachVenues(ctx context.Context, ownerID string, rows []database.Event) ([]Event, error) {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	links, err := s.store.ListLinks(ctx, ownerID, ids)
	if err != nil {
		return nil, apperr.Normalize(err, apperr.CodeUnknown, "We could not load your events.")
	}

	var venues []database.Venue
	if venueIDs := distinctVenueIDs(links); len(venueIDs) > 0 {
		venues, err = s.store.ListVenues(ctx, ownerID, venueIDs)
		if err != nil {
			return nil, apperr.Normalize(err, apperr.CodeUnknown, "We could not load your events.")
		}
	}
	return joinVenues(rows, links, venues), nil
}

// GetEventByID returns one of the principal's events with its venues.
// Missing, foreign, and unauthenticated lookups are NOT_FOUND.
func (s *Service) GetEventByID(ctx context.Context, id string) (Event, error) {
	p, ok := auth.PrincipalFromContext(ctx)
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return Event{}, apperr.NotFound("Event not found")
	}

	row, err := s.store.GetEvent(ctx, p.UserID, id)
	if errors.Is(err, database.ErrNotFound) {
		return Event{}, apperr.NotFound("Event not found")
	}
	if err != nil {
		return Event{}, apperr.Normalize(err, apperr.CodeUnknown, "We could not load this event.")
	}
	joined, err := s.attachVenues(ctx, p.UserID, []database.Event{row})
	if err != nil {
		return Event{}, err
	}
	return joined[0], nil
}

// ListSportTypes returns the distinct sport types in use, sorted by code
// point.
func (s *Service) ListSportTypes(ctx context.Context) ([]string, error) {
	p, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return []string{}, nil
	}
	types, err := s.store.ListEventSportTypes(ctx, p.UserID)
	if err != nil {
		return nil, apperr.Normalize(err, apperr.CodeUnknown, "We could not load sport types.")
	}
	out := dedupeExact(types)
	sort.Strings(out)
	return out, nil
}

// Dashboard is the listing screen: one page of filtered events plus the sport
// types for the filter control.
type Dashboard struct {
	Page
	View       string   `json:"view"`
	SportTypes []string `json:"sportTypes"`
	Filters    Filters  `json:"-"`
}

// DashboardQuery is the raw query of the listing screen.
type DashboardQuery struct {
	Filters Filters
	Page    string
	View    string
}

// Dashboard lists and paginates events. The event listing and the sport
// types are fetched concurrently.
func (s *Service) Dashboard(ctx context.Context, q DashboardQuery) (Dashboard, error) {
	var (
		all   []Event
		types []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = s.ListEvents(gctx, q.Filters)
		return err
	})
	g.Go(func() error {
		var err error
		types, err = s.ListSportTypes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		Page:       Paginate(all, ParsePage(q.Page)),
		View:       ParseView(q.View),
		SportTypes: types,
		Filters:    q.Filters.Normalize(),
	}, nil
}

func dedupeExact(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
