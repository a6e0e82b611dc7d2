package events

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/intermernet/matchday/internal/auth"
	"github.com/intermernet/matchday/internal/database"
)

// memStore is an in-memory Store without transactions. Failures are injected
// per method name through fail.
type memStore struct {
	mu     sync.Mutex
	events map[string]database.Event
	venues map[string]database.Venue
	links  []database.EventVenue
	sports map[string][]string
	seq    int

	fail  map[string]error
	calls []string
}

func newMemStore() *memStore {
	return &memStore{
		events: make(map[string]database.Event),
		venues: make(map[string]database.Venue),
		sports: make(map[string][]string),
		fail:   make(map[string]error),
	}
}

func (m *memStore) enter(name string) error {
	m.calls = append(m.calls, name)
	return m.fail[name]
}

func (m *memStore) called(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *memStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *memStore) ListEvents(_ context.Context, ownerID, sport string) ([]database.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListEvents"); err != nil {
		return nil, err
	}
	var out []database.Event
	for _, e := range m.events {
		if e.OwnerID == ownerID && (sport == "" || e.SportType == sport) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EventAt.Equal(out[j].EventAt) {
			return out[i].EventAt.Before(out[j].EventAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memStore) GetEvent(_ context.Context, ownerID, id string) (database.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetEvent"); err != nil {
		return database.Event{}, err
	}
	e, ok := m.events[id]
	if !ok || e.OwnerID != ownerID {
		return database.Event{}, database.ErrNotFound
	}
	return e, nil
}

func (m *memStore) ListLinks(_ context.Context, ownerID string, eventIDs []string) ([]database.EventVenue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListLinks"); err != nil {
		return nil, err
	}
	return m.linksOf(ownerID, eventIDs), nil
}

func (m *memStore) linksOf(ownerID string, eventIDs []string) []database.EventVenue {
	want := make(map[string]bool, len(eventIDs))
	for _, id := range eventIDs {
		want[id] = true
	}
	var out []database.EventVenue
	for _, l := range m.links {
		if want[l.EventID] && m.events[l.EventID].OwnerID == ownerID {
			out = append(out, l)
		}
	}
	return out
}

func (m *memStore) LinkedVenueIDs(_ context.Context, ownerID, eventID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("LinkedVenueIDs"); err != nil {
		return nil, err
	}
	var ids []string
	for _, l := range m.linksOf(ownerID, []string{eventID}) {
		ids = append(ids, l.VenueID)
	}
	return ids, nil
}

func (m *memStore) ListVenues(_ context.Context, ownerID string, ids []string) ([]database.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListVenues"); err != nil {
		return nil, err
	}
	var out []database.Venue
	for _, id := range ids {
		if v, ok := m.venues[id]; ok && v.OwnerID == ownerID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memStore) ListEventSportTypes(_ context.Context, ownerID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListEventSportTypes"); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, e := range m.events {
		if e.OwnerID == ownerID && !seen[e.SportType] {
			seen[e.SportType] = true
			out = append(out, e.SportType)
		}
	}
	return out, nil
}

func (m *memStore) ListSports(_ context.Context, ownerID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListSports"); err != nil {
		return nil, err
	}
	return append([]string(nil), m.sports[ownerID]...), nil
}

func (m *memStore) InsertSport(_ context.Context, ownerID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("InsertSport"); err != nil {
		return err
	}
	for _, n := range m.sports[ownerID] {
		if strings.EqualFold(n, name) {
			return database.ErrAlreadyExists
		}
	}
	m.sports[ownerID] = append(m.sports[ownerID], name)
	return nil
}

func (m *memStore) InsertEvent(_ context.Context, e *database.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("InsertEvent"); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m.seq++
	now := time.Date(2025, 1, 1, 0, 0, m.seq, 0, time.UTC)
	e.CreatedAt, e.UpdatedAt = now, now
	m.events[e.ID] = *e
	return nil
}

func (m *memStore) UpdateEvent(_ context.Context, e *database.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateEvent"); err != nil {
		return err
	}
	prev, ok := m.events[e.ID]
	if !ok || prev.OwnerID != e.OwnerID {
		return database.ErrNotFound
	}
	e.CreatedAt = prev.CreatedAt
	e.UpdatedAt = prev.UpdatedAt.Add(time.Second)
	m.events[e.ID] = *e
	return nil
}

func (m *memStore) DeleteEvent(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteEvent"); err != nil {
		return err
	}
	e, ok := m.events[id]
	if !ok || e.OwnerID != ownerID {
		return database.ErrNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *memStore) InsertVenue(_ context.Context, v *database.Venue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("InsertVenue"); err != nil {
		return err
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	m.venues[v.ID] = *v
	return nil
}

func (m *memStore) DeleteVenues(_ context.Context, ownerID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteVenues"); err != nil {
		return err
	}
	for _, id := range ids {
		if v, ok := m.venues[id]; ok && v.OwnerID == ownerID {
			delete(m.venues, id)
		}
	}
	return nil
}

func (m *memStore) InsertLink(_ context.Context, ownerID, eventID, venueID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("InsertLink"); err != nil {
		return err
	}
	e, eok := m.events[eventID]
	v, vok := m.venues[venueID]
	if !eok || !vok || e.OwnerID != ownerID || v.OwnerID != ownerID {
		return database.ErrNotFound
	}
	m.links = append(m.links, database.EventVenue{EventID: eventID, VenueID: venueID})
	return nil
}

func (m *memStore) DeleteLinks(_ context.Context, ownerID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteLinks"); err != nil {
		return err
	}
	kept := m.links[:0]
	for _, l := range m.links {
		if l.EventID == eventID && m.events[eventID].OwnerID == ownerID {
			continue
		}
		kept = append(kept, l)
	}
	m.links = kept
	return nil
}

func (m *memStore) WithinTx(_ context.Context, fn func(Store) error) error {
	return fn(m)
}

type memImages struct {
	mu        sync.Mutex
	objects   map[string][]byte
	removed   []string
	uploadErr error
	removeErr error
}

func newMemImages() *memImages {
	return &memImages{objects: make(map[string][]byte)}
}

func (m *memImages) Upload(_ context.Context, path, _ string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.objects[path] = data
	return nil
}

func (m *memImages) PublicURL(path string) string {
	return "https://cdn.example.test/" + path
}

func (m *memImages) Remove(_ context.Context, paths ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, paths...)
	if m.removeErr != nil {
		return m.removeErr
	}
	for _, p := range paths {
		delete(m.objects, p)
	}
	return nil
}

func (m *memImages) uploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type stubPhotos struct {
	url     string
	queries []string
}

func (s *stubPhotos) Search(_ context.Context, query string) (string, bool) {
	s.queries = append(s.queries, query)
	return s.url, s.url != ""
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls map[string][][]string
}

func (r *recordingNotifier) Invalidate(userID string, paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string][][]string)
	}
	r.calls[userID] = append(r.calls[userID], paths)
}

func (r *recordingNotifier) count(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls[userID])
}

type fixture struct {
	svc      *Service
	store    *memStore
	images   *memImages
	photos   *stubPhotos
	notifier *recordingNotifier
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	f := fixture{
		store:    newMemStore(),
		images:   newMemImages(),
		photos:   &stubPhotos{},
		notifier: &recordingNotifier{},
	}
	f.svc = NewService(f.store, f.images, f.photos, f.notifier, log)
	f.svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return f
}

func userCtx(id string) context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{UserID: id, Email: id + "@example.com"})
}

var errBoom = errors.New("boom")
