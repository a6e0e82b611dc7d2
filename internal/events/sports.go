package events

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/intermernet/matchday/internal/apperr"
	"github.com/intermernet/matchday/internal/auth"
	"github.com/intermernet/matchday/internal/database"
)

// ListSportOptions returns the suggestion list: the default sports, the
// principal's stored sports, and the sports used by their events. Names
// that differ only in case appear once, and the list is sorted with English
// collation. Without a principal only the defaults are returned.
func (s *Service) ListSportOptions(ctx context.Context) ([]string, error) {
	p, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return mergeSportOptions(DefaultSportTypes), nil
	}

	var stored, used []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stored, err = s.store.ListSports(gctx, p.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		used, err = s.store.ListEventSportTypes(gctx, p.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Normalize(err, apperr.CodeUnknown, "We could not load sport options.")
	}
	return mergeSportOptions(DefaultSportTypes, stored, used), nil
}

// mergeSportOptions unions the lists, keeping the first spelling of each
// case-folded name, and sorts the result.
func mergeSportOptions(lists ...[]string) []string {
	fold := cases.Fold()
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, name := range list {
			if name == "" {
				continue
			}
			key := fold.String(name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, name)
		}
	}
	collate.New(language.English).SortStrings(out)
	return out
}

// upsertSport records name in the owner's sport list unless a case-folded
// match exists. Failures, including a concurrent insert of the same name,
// are logged and ignored.
func (s *Service) upsertSport(ctx context.Context, ownerID, name string) {
	log := s.log.WithFields(logrus.Fields{"owner_id": ownerID, "sport": name})

	existing, err := s.store.ListSports(ctx, ownerID)
	if err != nil {
		log.WithError(err).Warn("could not read sport list")
		return
	}
	fold := cases.Fold()
	key := fold.String(name)
	for _, n := range existing {
		if fold.String(n) == key {
			return
		}
	}

	err = s.store.InsertSport(ctx, ownerID, name)
	switch {
	case errors.Is(err, database.ErrAlreadyExists):
		log.Debug("sport inserted concurrently")
	case err != nil:
		log.WithError(err).Warn("could not save sport")
	}
}
