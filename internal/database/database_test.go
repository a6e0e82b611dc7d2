package database

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func openTempService(t *testing.T) *Service {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)
	svc, err := NewService(filepath.Join(t.TempDir(), "main.db"), log)
	if err != nil {
		t.Fatalf("open service: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return svc
}

func insertEvent(t *testing.T, svc *Service, owner, name, sport string, at time.Time) Event {
	t.Helper()
	e := Event{OwnerID: owner, Name: name, SportType: sport, EventAt: at}
	if err := svc.InsertEvent(context.Background(), svc.DB(), &e); err != nil {
		t.Fatalf("insert event: %v", err)
	}
	return e
}

func TestNewServiceRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := NewService("", logrus.New()); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestInitIsIdempotent(t *testing.T) {
	t.Parallel()

	svc := openTempService(t)
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("second init: %v", err)
	}
}

func TestUsersRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := openTempService(t)

	user, err := svc.CreateUser(ctx, svc.DB(), "fan@example.com", "hash", false)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := svc.CreateUser(ctx, svc.DB(), "fan@example.com", "", true); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate create err = %v, want ErrAlreadyExists", err)
	}

	got, err := svc.GetUserByEmail(ctx, svc.DB(), "fan@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.ID != user.ID || got.PasswordHash.String != "hash" || got.Verified() {
		t.Fatalf("user = %+v", got)
	}
	if _, err := svc.GetUserByID(ctx, svc.DB(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get missing err = %v, want ErrNotFound", err)
	}

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := svc.CreateEmailVerification(ctx, svc.DB(), "tok", user.ID, now.Add(time.Hour)); err != nil {
		t.Fatalf("create verification: %v", err)
	}
	userID, err := svc.ConsumeEmailVerification(ctx, svc.DB(), "tok", now)
	if err != nil || userID != user.ID {
		t.Fatalf("consume = (%q, %v), want (%q, nil)", userID, err, user.ID)
	}
	if _, err := svc.ConsumeEmailVerification(ctx, svc.DB(), "tok", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second consume err = %v, want ErrNotFound", err)
	}
	if err := svc.MarkEmailVerified(ctx, svc.DB(), user.ID, now); err != nil {
		t.Fatalf("mark verified: %v", err)
	}
	got, _ = svc.GetUserByID(ctx, svc.DB(), user.ID)
	if !got.Verified() || !got.EmailVerifiedAt.Time.Equal(now) {
		t.Fatalf("verified at = %+v", got.EmailVerifiedAt)
	}
}

func TestExpiredVerificationIsNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := openTempService(t)
	user, _ := svc.CreateUser(ctx, svc.DB(), "late@example.com", "hash", false)
	now := time.Now().UTC()
	_ = svc.CreateEmailVerification(ctx, svc.DB(), "old", user.ID, now.Add(-time.Minute))

	if _, err := svc.ConsumeEmailVerification(ctx, svc.DB(), "old", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("consume expired err = %v, want ErrNotFound", err)
	}
}

func TestListEventsOrderingAndScope(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := openTempService(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	late := insertEvent(t, svc, "u1", "Late", "Tennis", base.Add(48*time.Hour))
	early := insertEvent(t, svc, "u1", "Early", "Soccer", base)
	insertEvent(t, svc, "u2", "Other", "Soccer", base)

	got, err := svc.ListEvents(ctx, svc.DB(), "u1", "")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(got) != 2 || got[0].ID != early.ID || got[1].ID != late.ID {
		t.Fatalf("events = %+v, want early then late", got)
	}

	soccer, err := svc.ListEvents(ctx, svc.DB(), "u1", "Soccer")
	if err != nil {
		t.Fatalf("list soccer: %v", err)
	}
	if len(soccer) != 1 || soccer[0].ID != early.ID {
		t.Fatalf("soccer events = %+v", soccer)
	}

	if _, err := svc.GetEvent(ctx, svc.DB(), "u2", early.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-owner get err = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteEvent(ctx, svc.DB(), "u2", early.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-owner delete err = %v, want ErrNotFound", err)
	}
}

func TestUpdateEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := openTempService(t)
	e := insertEvent(t, svc, "u1", "Cup", "Soccer", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))

	e.Name = "Cup Final"
	e.ImageURL = sql.NullString{String: "https://img/x.png", Valid: true}
	if err := svc.UpdateEvent(ctx, svc.DB(), &e); err != nil {
		t.Fatalf("update event: %v", err)
	}
	got, err := svc.GetEvent(ctx, svc.DB(), "u1", e.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got.Name != "Cup Final" || got.ImageURL.String != "https://img/x.png" || got.ImagePath.Valid {
		t.Fatalf("event = %+v", got)
	}

	e.OwnerID = "u2"
	if err := svc.UpdateEvent(ctx, svc.DB(), &e); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-owner update err = %v, want ErrNotFound", err)
	}
}

func TestVenuesAndLinks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := openTempService(t)
	e := insertEvent(t, svc, "u1", "Derby", "Soccer", time.Now())

	a := Venue{OwnerID: "u1", Name: "Arena", Address: "1 Main St"}
	b := Venue{OwnerID: "u1", Name: "Bowl", Address: "2 Side St"}
	foreign := Venue{OwnerID: "u2", Name: "Elsewhere", Address: "3 Far Rd"}
	for _, v := range []*Venue{&a, &b, &foreign} {
		if err := svc.InsertVenue(ctx, svc.DB(), v); err != nil {
			t.Fatalf("insert venue: %v", err)
		}
	}
	for _, v := range []Venue{a, b} {
		if err := svc.InsertLink(ctx, svc.DB(), "u1", e.ID, v.ID); err != nil {
			t.Fatalf("insert link: %v", err)
		}
	}
	if err := svc.InsertLink(ctx, svc.DB(), "u1", e.ID, foreign.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("link foreign venue err = %v, want ErrNotFound", err)
	}

	ids, err := svc.LinkedVenueIDs(ctx, svc.DB(), "u1", e.ID)
	if err != nil {
		t.Fatalf("linked venue ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != a.ID || ids[1] != b.ID {
		t.Fatalf("linked ids = %v, want [%s %s]", ids, a.ID, b.ID)
	}
	if other, _ := svc.LinkedVenueIDs(ctx, svc.DB(), "u2", e.ID); len(other) != 0 {
		t.Fatalf("cross-owner links = %v, want none", other)
	}

	venues, err := svc.ListVenues(ctx, svc.DB(), "u1", []string{a.ID, b.ID, foreign.ID})
	if err != nil {
		t.Fatalf("list venues: %v", err)
	}
	if len(venues) != 2 {
		t.Fatalf("venues = %+v, want 2 owned venues", venues)
	}

	if err := svc.DeleteVenues(ctx, svc.DB(), "u1", ids); err == nil {
		t.Fatal("deleting linked venues succeeded, want foreign key error")
	}
	if err := svc.DeleteLinks(ctx, svc.DB(), "u1", e.ID); err != nil {
		t.Fatalf("delete links: %v", err)
	}
	if err := svc.DeleteVenues(ctx, svc.DB(), "u1", ids); err != nil {
		t.Fatalf("delete venues: %v", err)
	}
	if err := svc.DeleteEvent(ctx, svc.DB(), "u1", e.ID); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	if venues, _ := svc.ListVenues(ctx, svc.DB(), "u1", ids); len(venues) != 0 {
		t.Fatalf("venues after delete = %+v", venues)
	}
}

func TestSports(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := openTempService(t)

	if err := svc.InsertSport(ctx, svc.DB(), "u1", "Padel"); err != nil {
		t.Fatalf("insert sport: %v", err)
	}
	if err := svc.InsertSport(ctx, svc.DB(), "u1", "padel"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate sport err = %v, want ErrAlreadyExists", err)
	}
	if err := svc.InsertSport(ctx, svc.DB(), "u2", "Padel"); err != nil {
		t.Fatalf("insert sport for other owner: %v", err)
	}
	names, err := svc.ListSports(ctx, svc.DB(), "u1")
	if err != nil {
		t.Fatalf("list sports: %v", err)
	}
	if len(names) != 1 || names[0] != "Padel" {
		t.Fatalf("sports = %v", names)
	}
}

func TestWriteRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := openTempService(t)
	boom := errors.New("boom")

	err := svc.Write(ctx, func(tx *sql.Tx) error {
		e := Event{OwnerID: "u1", Name: "Ghost", SportType: "Soccer", EventAt: time.Now()}
		if err := svc.InsertEvent(ctx, tx, &e); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("write err = %v, want boom", err)
	}
	events, _ := svc.ListEvents(ctx, svc.DB(), "u1", "")
	if len(events) != 0 {
		t.Fatalf("events after rollback = %+v", events)
	}
}
