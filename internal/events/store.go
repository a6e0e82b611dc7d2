package events

import (
	"context"
	"database/sql"

	"github.com/intermernet/matchday/internal/database"
)

// Store is the relational boundary of the workflows. Every method is scoped
// to ownerID; link rows are reached only through the owner's events.
type Store interface {
	ListEvents(ctx context.Context, ownerID, sport string) ([]database.Event, error)
	GetEvent(ctx context.Context, ownerID, id string) (database.Event, error)
	ListLinks(ctx context.Context, ownerID string, eventIDs []string) ([]database.EventVenue, error)
	LinkedVenueIDs(ctx context.Context, ownerID, eventID string) ([]string, error)
	ListVenues(ctx context.Context, ownerID string, ids []string) ([]database.Venue, error)
	ListEventSportTypes(ctx context.Context, ownerID string) ([]string, error)
	ListSports(ctx context.Context, ownerID string) ([]string, error)

	InsertSport(ctx context.Context, ownerID, name string) error
	InsertEvent(ctx context.Context, e *database.Event) error
	UpdateEvent(ctx context.Context, e *database.Event) error
	DeleteEvent(ctx context.Context, ownerID, id string) error
	InsertVenue(ctx context.Context, v *database.Venue) error
	DeleteVenues(ctx context.Context, ownerID string, ids []string) error
	InsertLink(ctx context.Context, ownerID, eventID, venueID string) error
	DeleteLinks(ctx context.Context, ownerID, eventID string) error

	// WithinTx runs fn against a Store whose writes commit together. A store
	// without transactions runs fn directly, so earlier steps stay applied
	// when a later one fails.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// sqlStore adapts the SQLite database service to Store.
type sqlStore struct {
	svc *database.Service
	db  database.DBorTx
	tx  bool
}

// NewSQLStore returns a Store backed by svc.
func NewSQLStore(svc *database.Service) Store {
	return &sqlStore{svc: svc, db: svc.DB()}
}

// write runs fn on the current transaction, or in a new one.
func (s *sqlStore) write(ctx context.Context, fn func(db database.DBorTx) error) error {
	if s.tx {
		return fn(s.db)
	}
	return s.svc.Write(ctx, func(tx *sql.Tx) error { return fn(tx) })
}

func (s *sqlStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.tx {
		return fn(s)
	}
	return s.svc.Write(ctx, func(tx *sql.Tx) error {
		return fn(&sqlStore{svc: s.svc, db: tx, tx: true})
	})
}

func (s *sqlStore) ListEvents(ctx context.Context, ownerID, sport string) ([]database.Event, error) {
	return s.svc.ListEvents(ctx, s.db, ownerID, sport)
}

func (s *sqlStore) GetEvent(ctx context.Context, ownerID, id string) (database.Event, error) {
	return s.svc.GetEvent(ctx, s.db, ownerID, id)
}

func (s *sqlStore) ListLinks(ctx context.Context, ownerID string, eventIDs []string) ([]database.EventVenue, error) {
	return s.svc.ListLinks(ctx, s.db, ownerID, eventIDs)
}

func (s *sqlStore) LinkedVenueIDs(ctx context.Context, ownerID, eventID string) ([]string, error) {
	return s.svc.LinkedVenueIDs(ctx, s.db, ownerID, eventID)
}

func (s *sqlStore) ListVenues(ctx context.Context, ownerID string, ids []string) ([]database.Venue, error) {
	return s.svc.ListVenues(ctx, s.db, ownerID, ids)
}

func (s *sqlStore) ListEventSportTypes(ctx context.Context, ownerID string) ([]string, error) {
	return s.svc.ListEventSportTypes(ctx, s.db, ownerID)
}

func (s *sqlStore) ListSports(ctx context.Context, ownerID string) ([]string, error) {
	return s.svc.ListSports(ctx, s.db, ownerID)
}

func (s *sqlStore) InsertSport(ctx context.Context, ownerID, name string) error {
	return s.write(ctx, func(db database.DBorTx) error { return s.svc.InsertSport(ctx, db, ownerID, name) })
}

func (s *sqlStore) InsertEvent(ctx context.Context, e *database.Event) error {
	return s.write(ctx, func(db database.DBorTx) error { return s.svc.InsertEvent(ctx, db, e) })
}

func (s *sqlStore) UpdateEvent(ctx context.Context, e *database.Event) error {
	return s.write(ctx, func(db database.DBorTx) error { return s.svc.UpdateEvent(ctx, db, e) })
}

func (s *sqlStore) DeleteEvent(ctx context.Context, ownerID, id string) error {
	return s.write(ctx, func(db database.DBorTx) error { return s.svc.DeleteEvent(ctx, db, ownerID, id) })
}

func (s *sqlStore) InsertVenue(ctx context.Context, v *database.Venue) error {
	return s.write(ctx, func(db database.DBorTx) error { return s.svc.InsertVenue(ctx, db, v) })
}

func (s *sqlStore) DeleteVenues(ctx context.Context, ownerID string, ids []string) error {
	return s.write(ctx, func(db database.DBorTx) error { return s.svc.DeleteVenues(ctx, db, ownerID, ids) })
}

func (s *sqlStore) InsertLink(ctx context.Context, ownerID, eventID, venueID string) error {
	return s.write(ctx, func(db database.DBorTx) error { return s.svc.InsertLink(ctx, db, ownerID, eventID, venueID) })
}

func (s *sqlStore) DeleteLinks(ctx context.Context, ownerID, eventID string) error {
	return s.write(ctx, func(db database.DBorTx) error { return s.svc.DeleteLinks(ctx, db, ownerID, eventID) })
}
