package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/ladder/internal/adapters/http/live"
	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// Load reads a collection and remembers its version in sess.
func (s *Service) Load(ctx context.Context, sess *Session, col model.Collection) (repository.Document, error) {
	ctx, span := s.span(ctx, "Load")
	defer span.End()
	span.SetAttributes(attribute.String("collection", string(col)))

	doc, err := s.store.Get(ctx, col.Key())
	if err != nil {
		return repository.Document{}, fail(span, err)
	}
	sess.Remember(col, doc.UpdatedAt)
	return doc, nil
}

// Save writes a whole guarded collection with the version sess last loaded.
// Without a loaded version the save only creates the document, so an existing
// one is reported as a conflict. A conflict is returned as a result, not an
// error, and nothing is retried.
func (s *Service) Save(ctx context.Context, sess *Session, col model.Collection, data json.RawMessage) (repository.SaveResult, error) {
	ctx, span := s.span(ctx, "Save")
	defer span.End()
	span.SetAttributes(attribute.String("collection", string(col)))

	if !col.Guarded() {
		return repository.SaveResult{}, fail(span, fmt.Errorf("%w: %s", ErrNotGuarded, col))
	}
	if err := s.validate(col, data); err != nil {
		s.stats.invalid.Add(1)
		return repository.SaveResult{}, fail(span, err)
	}

	expected := sess.Version(col)
	var (
		res repository.SaveResult
		err error
	)
	if expected == "" {
		res, err = s.create(ctx, col, data)
	} else {
		res, err = s.store.Set(ctx, col.Key(), data, expected)
	}
	if err != nil {
		return repository.SaveResult{}, fail(span, err)
	}
	if res.Conflict {
		s.stats.conflicts.Add(1)
		metrics.RecordSaveConflict(string(col))
		span.SetAttributes(attribute.Bool("conflict", true))
		s.logger.Info(ctx, "save rejected by newer version",
			logger.String("collection", string(col)),
			logger.String("actor", sess.Actor),
			logger.String("expected", expected),
			logger.String("current", res.CurrentVersion),
		)
		return res, nil
	}

	s.stats.saves.Add(1)
	sess.Remember(col, res.Version)
	s.logActivity(ctx, sess, "save", col, fmt.Sprintf("saved %s", col))
	s.changed(col)
	return res, nil
}

// create writes data only when col has never been written.
func (s *Service) create(ctx context.Context, col model.Collection, data json.RawMessage) (repository.SaveResult, error) {
	var exists bool
	doc, err := s.store.Transact(ctx, col.Key(), func(current []byte) ([]byte, error) {
		exists = current != nil
		if exists {
			return nil, nil
		}
		return data, nil
	})
	if err != nil {
		return repository.SaveResult{}, err
	}
	if exists {
		return repository.SaveResult{
			Conflict:       true,
			CurrentVersion: doc.UpdatedAt,
			Message:        fmt.Sprintf("%s already exists (version %s); load it before saving", col, doc.UpdatedAt),
		}, nil
	}
	return repository.SaveResult{Success: true, Version: doc.UpdatedAt}, nil
}

// validate decodes typed collections and checks every entry.
func (s *Service) validate(col model.Collection, data json.RawMessage) error {
	if !json.Valid(data) {
		return fmt.Errorf("%w: not JSON", repository.ErrInvalidPayload)
	}
	switch col {
	case model.CollectionTeams:
		var blob model.TeamsBlob
		if err := decode(data, &blob); err != nil {
			return err
		}
		return blob.Validate(s.rosterLimit)
	case model.CollectionMatches:
		var matches []model.Match
		if err := decode(data, &matches); err != nil {
			return err
		}
		return validateMatches(matches)
	case model.CollectionBonuses:
		var bonuses []model.BonusEntry
		if err := decode(data, &bonuses); err != nil {
			return err
		}
		for _, b := range bonuses {
			if err := b.Validate(); err != nil {
				return err
			}
		}
	case model.CollectionPhotos:
		var photos []model.Photo
		if err := decode(data, &photos); err != nil {
			return err
		}
		for _, p := range photos {
			if err := p.Validate(); err != nil {
				return err
			}
		}
	case model.CollectionCaptains:
		var captains []model.Captain
		if err := decode(data, &captains); err != nil {
			return err
		}
		for _, c := range captains {
			if err := c.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateMatches(matches []model.Match) error {
	seen := make(map[model.ID]struct{}, len(matches))
	for _, m := range matches {
		if err := m.Validate(); err != nil {
			return err
		}
		if _, dup := seen[m.ID]; dup {
			return model.Invalid("match.id", "duplicate id %s", m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}

// changed tells live clients that standings may have moved.
func (s *Service) changed(col model.Collection) {
	if s.notify == nil {
		return
	}
	switch col {
	case model.CollectionTeams, model.CollectionMatches, model.CollectionBonuses, model.CollectionChallenges:
		s.notify.Broadcast(live.EventLeaderboardChanged, map[string]string{"collection": string(col)})
	}
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", repository.ErrInvalidPayload, err)
	}
	return nil
}

// read decodes a collection; a missing document decodes to the zero value.
func read[T any](ctx context.Context, store repository.Store, col model.Collection) (T, string, error) {
	var out T
	doc, err := store.Get(ctx, col.Key())
	if errors.Is(err, repository.ErrNotFound) {
		return out, "", nil
	}
	if err != nil {
		return out, "", err
	}
	if len(doc.Data) == 0 || string(doc.Data) == "null" {
		return out, doc.UpdatedAt, nil
	}
	if err := decode(doc.Data, &out); err != nil {
		return out, "", err
	}
	return out, doc.UpdatedAt, nil
}

// decodeCurrent is read for transaction snapshots.
func decodeCurrent[T any](current []byte) (T, error) {
	var out T
	if len(current) == 0 || string(current) == "null" {
		return out, nil
	}
	return out, decode(current, &out)
}
