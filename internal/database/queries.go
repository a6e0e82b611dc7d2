package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DBorTx lets queries run against the pool or inside a transaction.
type DBorTx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func placeholders(n int) string {
	return "?" + strings.Repeat(",?", n-1)
}

func toArgs(prefix []any, ids []string) []any {
	args := make([]any, 0, len(prefix)+len(ids))
	args = append(args, prefix...)
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// --- User Queries ---

// CreateUser inserts a user. An empty passwordHash is stored as NULL.
func (s *Service) CreateUser(ctx context.Context, db DBorTx, email, passwordHash string, verified bool) (*User, error) {
	now := time.Now().UTC().Truncate(time.Second)
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: nullString(passwordHash),
		CreatedAt:    now,
	}
	var verifiedAt any
	if verified {
		verifiedAt = formatTime(now)
		user.EmailVerifiedAt = sql.NullTime{Time: now, Valid: true}
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, email_verified_at, created_at) VALUES (?, ?, ?, ?, ?);`,
		user.ID, email, user.PasswordHash, verifiedAt, formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", ErrAlreadyExists, err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *Service) scanUser(row *sql.Row) (*User, error) {
	var (
		user       User
		verifiedAt sql.NullString
		createdAt  string
	)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &verifiedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		t, err := parseTime(verifiedAt.String)
		if err != nil {
			return nil, err
		}
		user.EmailVerifiedAt = sql.NullTime{Time: t, Valid: true}
	}
	return &user, nil
}

// GetUserByEmail returns ErrNotFound when no user has the address.
func (s *Service) GetUserByEmail(ctx context.Context, db DBorTx, email string) (*User, error) {
	return s.scanUser(db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, email_verified_at, created_at FROM users WHERE email = ?;`, email))
}

// GetUserByID returns ErrNotFound when the id is unknown.
func (s *Service) GetUserByID(ctx context.Context, db DBorTx, id string) (*User, error) {
	return s.scanUser(db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, email_verified_at, created_at FROM users WHERE id = ?;`, id))
}

// MarkEmailVerified stamps the user's verification time if not already set.
func (s *Service) MarkEmailVerified(ctx context.Context, db DBorTx, userID string, at time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET email_verified_at = COALESCE(email_verified_at, ?) WHERE id = ?;`,
		formatTime(at), userID)
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	return nil
}

// CreateEmailVerification stores a verification token for userID.
func (s *Service) CreateEmailVerification(ctx context.Context, db DBorTx, token, userID string, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO email_verifications (token, user_id, expires_at) VALUES (?, ?, ?);`,
		token, userID, formatTime(expiresAt))
	if err != nil {
		return fmt.Errorf("create email verification: %w", err)
	}
	return nil
}

// ConsumeEmailVerification deletes the token and returns its user id. Unknown
// and expired tokens return ErrNotFound.
func (s *Service) ConsumeEmailVerification(ctx context.Context, db DBorTx, token string, now time.Time) (string, error) {
	var userID, expiresAt string
	err := db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM email_verifications WHERE token = ?;`, token).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get email verification: %w", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM email_verifications WHERE token = ?;`, token); err != nil {
		return "", fmt.Errorf("delete email verification: %w", err)
	}
	if expiresAt < formatTime(now) {
		return "", ErrNotFound
	}
	return userID, nil
}

// --- Event Queries ---

const eventColumns = `id, owner_id, name, sport_type, event_at, description, image_url, image_path, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (Event, error) {
	var e Event
	var eventAt, createdAt, updatedAt string
	err := row.Scan(&e.ID, &e.OwnerID, &e.Name, &e.SportType, &eventAt,
		&e.Description, &e.ImageURL, &e.ImagePath, &createdAt, &updatedAt)
	if err != nil {
		return Event{}, err
	}
	if e.EventAt, err = parseTime(eventAt); err != nil {
		return Event{}, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return Event{}, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Event{}, err
	}
	return e, nil
}

// ListEvents returns the owner's events ordered by event time. A non-empty
// sport restricts the result to that sport type.
func (s *Service) ListEvents(ctx context.Context, db DBorTx, ownerID, sport string) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE owner_id = ?`
	args := []any{ownerID}
	if sport != "" {
		query += ` AND sport_type = ?`
		args = append(args, sport)
	}
	query += ` ORDER BY event_at ASC, created_at ASC;`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// GetEvent returns one of the owner's events or ErrNotFound.
func (s *Service) GetEvent(ctx context.Context, db DBorTx, ownerID, id string) (Event, error) {
	row := db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ? AND owner_id = ?;`, id, ownerID)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, ErrNotFound
	}
	if err != nil {
		return Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// InsertEvent stores e, assigning its id and timestamps.
func (s *Service) InsertEvent(ctx context.Context, db DBorTx, e *Event) error {
	now := time.Now().UTC().Truncate(time.Second)
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt, e.UpdatedAt = now, now

	_, err := db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		e.ID, e.OwnerID, e.Name, e.SportType, formatTime(e.EventAt),
		e.Description, e.ImageURL, e.ImagePath, formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// UpdateEvent overwrites the mutable fields of the owner's event.
func (s *Service) UpdateEvent(ctx context.Context, db DBorTx, e *Event) error {
	e.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := db.ExecContext(ctx,
		`UPDATE events SET name = ?, sport_type = ?, event_at = ?, description = ?, image_url = ?, image_path = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?;`,
		e.Name, e.SportType, formatTime(e.EventAt), e.Description, e.ImageURL, e.ImagePath,
		formatTime(e.UpdatedAt), e.ID, e.OwnerID)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEvent removes the owner's event row.
func (s *Service) DeleteEvent(ctx context.Context, db DBorTx, ownerID, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM events WHERE id = ? AND owner_id = ?;`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Venue & Link Queries ---

// ownedEvents restricts junction rows to events of one owner.
const ownedEvents = `event_id IN (SELECT id FROM events WHERE owner_id = ?)`

// ListLinks returns junction rows for the given events of the owner.
func (s *Service) ListLinks(ctx context.Context, db DBorTx, ownerID string, eventIDs []string) ([]EventVenue, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	query := `SELECT event_id, venue_id FROM event_venues WHERE ` + ownedEvents +
		` AND event_id IN (` + placeholders(len(eventIDs)) + `) ORDER BY rowid;`
	rows, err := db.QueryContext(ctx, query, toArgs([]any{ownerID}, eventIDs)...)
	if err != nil {
		return nil, fmt.Errorf("list event venues: %w", err)
	}
	defer rows.Close()

	var links []EventVenue
	for rows.Next() {
		var l EventVenue
		if err := rows.Scan(&l.EventID, &l.VenueID); err != nil {
			return nil, fmt.Errorf("scan event venue: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// ListVenues returns the owner's venues with the given ids.
func (s *Service) ListVenues(ctx context.Context, db DBorTx, ownerID string, ids []string) ([]Venue, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id, owner_id, name, address, created_at FROM venues WHERE owner_id = ? AND id IN (` +
		placeholders(len(ids)) + `);`
	rows, err := db.QueryContext(ctx, query, toArgs([]any{ownerID}, ids)...)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	defer rows.Close()

	var venues []Venue
	for rows.Next() {
		var (
			v         Venue
			createdAt string
		)
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.Name, &v.Address, &createdAt); err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		if v.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

// InsertVenue stores v, assigning its id.
func (s *Service) InsertVenue(ctx context.Context, db DBorTx, v *Venue) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CreatedAt = time.Now().UTC().Truncate(time.Second)
	_, err := db.ExecContext(ctx,
		`INSERT INTO venues (id, owner_id, name, address, created_at) VALUES (?, ?, ?, ?, ?);`,
		v.ID, v.OwnerID, v.Name, v.Address, formatTime(v.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert venue: %w", err)
	}
	return nil
}

// DeleteVenues removes the owner's venues with the given ids.
func (s *Service) DeleteVenues(ctx context.Context, db DBorTx, ownerID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM venues WHERE owner_id = ? AND id IN (` + placeholders(len(ids)) + `);`
	if _, err := db.ExecContext(ctx, query, toArgs([]any{ownerID}, ids)...); err != nil {
		return fmt.Errorf("delete venues: %w", err)
	}
	return nil
}

// InsertLink links one of the owner's events to a venue of the same owner.
func (s *Service) InsertLink(ctx context.Context, db DBorTx, ownerID, eventID, venueID string) error {
	res, err := db.ExecContext(ctx,
		`INSERT INTO event_venues (event_id, venue_id)
		 SELECT e.id, v.id FROM events e, venues v
		 WHERE e.id = ? AND e.owner_id = ? AND v.id = ? AND v.owner_id = ?;`,
		eventID, ownerID, venueID, ownerID)
	if err != nil {
		return fmt.Errorf("insert event venue: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLinks removes every junction row of the owner's event.
func (s *Service) DeleteLinks(ctx context.Context, db DBorTx, ownerID, eventID string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM event_venues WHERE event_id = ? AND `+ownedEvents+`;`, eventID, ownerID)
	if err != nil {
		return fmt.Errorf("delete event venues: %w", err)
	}
	return nil
}

// LinkedVenueIDs returns the venue ids linked to the owner's event.
func (s *Service) LinkedVenueIDs(ctx context.Context, db DBorTx, ownerID, eventID string) ([]string, error) {
	links, err := s.ListLinks(ctx, db, ownerID, []string{eventID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.VenueID)
	}
	return ids, nil
}

// --- Sport Queries ---

// ListSports returns the owner's stored sport names.
func (s *Service) ListSports(ctx context.Context, db DBorTx, ownerID string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM sports WHERE owner_id = ? ORDER BY name;`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sports: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan sport: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// InsertSport stores a sport name for the owner. A name that already exists
// for the owner returns ErrAlreadyExists.
func (s *Service) InsertSport(ctx context.Context, db DBorTx, ownerID, name string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO sports (owner_id, name, created_at) VALUES (?, ?, ?);`,
		ownerID, name, formatTime(time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
		}
		return fmt.Errorf("insert sport: %w", err)
	}
	return nil
}

// ListEventSportTypes returns the distinct sport types of the owner's events.
func (s *Service) ListEventSportTypes(ctx context.Context, db DBorTx, ownerID string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT sport_type FROM events WHERE owner_id = ?;`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list event sport types: %w", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan sport type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}
