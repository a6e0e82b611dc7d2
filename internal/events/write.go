package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/intermernet/matchday/internal/apperr"
	"github.com/intermernet/matchday/internal/database"
	"github.com/intermernet/matchday/internal/storage"
	"github.com/intermernet/matchday/internal/validate"
)

const (
	msgCreateFailed      = "We could not create this event."
	msgUpdateFailed      = "We could not update this event."
	msgDeleteFailed      = "We could not delete this event."
	msgVenueFailed       = "We could not save one of the venues."
	msgLinkFailed        = "We could not link a venue to this event."
	msgRefreshLinks      = "We could not refresh venue links for this event."
	msgRemoveLinksFailed = "We could not remove venue links for this event."
	msgUploadFailed      = "Image upload failed. Please try another image."
	msgMissingID         = "Missing event id"
	msgEventNotFound     = "Event not found"
)

// imageRef is the image an event will point at after a write.
type imageRef struct {
	url  string
	path string
}

// resolveImage keeps a supplied image or asks the photo finder for one. A
// supplied path outside the owner's folder is dropped so that cleanup can
// never reach another owner's objects.
func (s *Service) resolveImage(ctx context.Context, ownerID string, ev validate.Event) imageRef {
	if ev.ImageURL != "" {
		ref := imageRef{url: ev.ImageURL, path: ev.ImagePath}
		if ref.path != "" && !storage.OwnsPath(ownerID, ref.path) {
			s.log.WithFields(logrus.Fields{"owner_id": ownerID, "path": ref.path}).Warn("ignoring image path outside owner folder")
			ref.path = ""
		}
		return ref
	}
	if s.photos == nil {
		return imageRef{}
	}
	if url, ok := s.photos.Search(ctx, fmt.Sprintf("%s %s event", ev.Name, ev.SportType)); ok {
		return imageRef{url: url}
	}
	return imageRef{}
}

func eventRow(id, ownerID string, ev validate.Event, img imageRef) *database.Event {
	return &database.Event{
		ID:          id,
		OwnerID:     ownerID,
		Name:        ev.Name,
		SportType:   ev.SportType,
		EventAt:     ev.EventAt,
		Description: sql.NullString{String: ev.Description, Valid: ev.Description != ""},
		ImageURL:    sql.NullString{String: img.url, Valid: img.url != ""},
		ImagePath:   sql.NullString{String: img.path, Valid: img.path != ""},
	}
}

// insertVenues writes each venue followed by its link. The first failure
// stops the loop; rows written by earlier iterations are left in place.
func insertVenues(ctx context.Context, store Store, ownerID, eventID string, venues []validate.Venue) ([]Venue, error) {
	out := make([]Venue, 0, len(venues))
	for _, v := range venues {
		row := &database.Venue{OwnerID: ownerID, Name: v.Name, Address: v.Address}
		if err := store.InsertVenue(ctx, row); err != nil {
			return out, apperr.Normalize(err, apperr.CodeUnknown, msgVenueFailed)
		}
		if err := store.InsertLink(ctx, ownerID, eventID, row.ID); err != nil {
			return out, apperr.Normalize(err, apperr.CodeUnknown, msgLinkFailed)
		}
		out = append(out, venueFromRow(*row))
	}
	return out, nil
}

// Create persists a new event with its venues. The session is checked
// before the payload.
func (s *Service) Create(ctx context.Context, in validate.EventInput) (Event, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return Event{}, err
	}
	ev, err := validate.ValidateEvent(in)
	if err != nil {
		return Event{}, err
	}

	img := s.resolveImage(ctx, p.UserID, ev)
	s.upsertSport(ctx, p.UserID, ev.SportType)

	row := eventRow("", p.UserID, ev, img)
	var venues []Venue
	err = s.store.WithinTx(ctx, func(tx Store) error {
		if err := tx.InsertEvent(ctx, row); err != nil {
			return apperr.Normalize(err, apperr.CodeUnknown, msgCreateFailed)
		}
		var err error
		venues, err = insertVenues(ctx, tx, p.UserID, row.ID, ev.Venues)
		return err
	})
	if err != nil {
		s.log.WithError(err).WithField("owner_id", p.UserID).Error("create event failed")
		return Event{}, err
	}

	s.invalidate(p.UserID, eventPaths(row.ID)...)
	return fromRow(*row, venues), nil
}

// Update replaces the event's fields and its venues wholesale. The old
// stored image is removed when the event stops pointing at it.
func (s *Service) Update(ctx context.Context, id string, in validate.EventInput) (Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Event{}, apperr.Validation(msgMissingID)
	}
	p, err := requirePrincipal(ctx)
	if err != nil {
		return Event{}, err
	}
	ev, err := validate.ValidateEvent(in)
	if err != nil {
		return Event{}, err
	}
	log := s.log.WithFields(logrus.Fields{"owner_id": p.UserID, "event_id": id})

	prev, prevVenueIDs, err := s.readForCleanup(ctx, p.UserID, id, msgUpdateFailed)
	if err != nil {
		return Event{}, err
	}

	img := s.resolveImage(ctx, p.UserID, ev)
	s.upsertSport(ctx, p.UserID, ev.SportType)

	row := eventRow(id, p.UserID, ev, img)
	row.CreatedAt = prev.CreatedAt
	var venues []Venue
	err = s.store.WithinTx(ctx, func(tx Store) error {
		if err := tx.UpdateEvent(ctx, row); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return apperr.NotFound(msgEventNotFound)
			}
			return apperr.Normalize(err, apperr.CodeUnknown, msgUpdateFailed)
		}
		if err := tx.DeleteLinks(ctx, p.UserID, id); err != nil {
			return apperr.Normalize(err, apperr.CodeUnknown, msgRefreshLinks)
		}
		if err := tx.DeleteVenues(ctx, p.UserID, prevVenueIDs); err != nil {
			log.WithError(err).Warn("could not delete previous venues")
		}
		var err error
		venues, err = insertVenues(ctx, tx, p.UserID, id, ev.Venues)
		return err
	})
	if err != nil {
		log.WithError(err).Error("update event failed")
		return Event{}, err
	}

	if prev.ImagePath.Valid && prev.ImagePath.String != img.path {
		s.removeImage(ctx, log, p.UserID, prev.ImagePath.String)
	}
	s.invalidate(p.UserID, eventPaths(id)...)
	return fromRow(*row, venues), nil
}

// Delete removes the event, its links, its venues, and its stored image.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperr.Validation(msgMissingID)
	}
	p, err := requirePrincipal(ctx)
	if err != nil {
		return err
	}
	log := s.log.WithFields(logrus.Fields{"owner_id": p.UserID, "event_id": id})

	prev, venueIDs, err := s.readForCleanup(ctx, p.UserID, id, msgDeleteFailed)
	if err != nil {
		return err
	}

	err = s.store.WithinTx(ctx, func(tx Store) error {
		if err := tx.DeleteLinks(ctx, p.UserID, id); err != nil {
			return apperr.Normalize(err, apperr.CodeUnknown, msgRemoveLinksFailed)
		}
		if err := tx.DeleteEvent(ctx, p.UserID, id); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return apperr.NotFound(msgEventNotFound)
			}
			return apperr.Normalize(err, apperr.CodeUnknown, msgDeleteFailed)
		}
		if err := tx.DeleteVenues(ctx, p.UserID, venueIDs); err != nil {
			log.WithError(err).Warn("could not delete venues of deleted event")
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("delete event failed")
		return err
	}

	if prev.ImagePath.Valid {
		s.removeImage(ctx, log, p.UserID, prev.ImagePath.String)
	}
	s.invalidate(p.UserID, "/dashboard")
	return nil
}

// readForCleanup fetches the current event row and its linked venue ids
// concurrently before anything is mutated.
func (s *Service) readForCleanup(ctx context.Context, ownerID, id, fallback string) (database.Event, []string, error) {
	var (
		prev     database.Event
		venueIDs []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prev, err = s.store.GetEvent(gctx, ownerID, id)
		return err
	})
	g.Go(func() error {
		var err error
		venueIDs, err = s.store.LinkedVenueIDs(gctx, ownerID, id)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return database.Event{}, nil, apperr.NotFound(msgEventNotFound)
		}
		return database.Event{}, nil, apperr.Normalize(err, apperr.CodeUnknown, fallback)
	}
	return prev, venueIDs, nil
}

// removeImage deletes a stored image the owner holds. Paths outside the
// owner's events folder are never handed to the image store.
func (s *Service) removeImage(ctx context.Context, log logrus.FieldLogger, ownerID, path string) {
	if s.images == nil || path == "" {
		return
	}
	if !storage.OwnsPath(ownerID, path) {
		log.WithField("path", path).Warn("refusing to remove image outside owner folder")
		return
	}
	if err := s.images.Remove(ctx, path); err != nil {
		log.WithError(err).WithField("path", path).Warn("could not remove stored image")
	}
}

func (s *Service) invalidate(ownerID string, paths ...string) {
	if s.notifier != nil {
		s.notifier.Invalidate(ownerID, paths...)
	}
}

// UploadImage checks and stores an event image for the principal and returns
// its public URL and object path.
func (s *Service) UploadImage(ctx context.Context, filename, contentType string, size int64, r io.Reader) (UploadedImage, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return UploadedImage{}, err
	}
	if r == nil {
		size = 0
	}
	if err := storage.CheckImage(size, contentType); err != nil {
		return UploadedImage{}, err
	}

	data, err := io.ReadAll(io.LimitReader(r, storage.MaxImageSize+1))
	if err != nil {
		return UploadedImage{}, apperr.Normalize(err, apperr.CodeUnknown, msgUploadFailed)
	}
	if err := storage.CheckImage(int64(len(data)), contentType); err != nil {
		return UploadedImage{}, err
	}

	path := storage.ImagePath(p.UserID, s.now(), filename)
	if err := s.images.Upload(ctx, path, strings.ToLower(contentType), data); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"owner_id": p.UserID, "path": path}).Error("image upload failed")
		return UploadedImage{}, apperr.Normalize(err, apperr.CodeUnknown, msgUploadFailed)
	}
	return UploadedImage{URL: s.images.PublicURL(path), Path: path}, nil
}
