package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/ladder/internal/domain/model"
)

// AddMatch appends one match. An empty id is generated.
func (s *Service) AddMatch(ctx context.Context, sess *Session, m model.Match) (model.Match, error) {
	if m.ID.IsZero() {
		m.ID = model.ID(uuid.NewString())
	}
	err := s.editMatches(ctx, sess, "AddMatch", m.ID, func(matches []model.Match) ([]model.Match, error) {
		if slices.ContainsFunc(matches, func(x model.Match) bool { return x.ID == m.ID }) {
			return nil, fmt.Errorf("%w: %s", ErrMatchExists, m.ID)
		}
		return append(matches, m), nil
	}, m.Validate)
	if err != nil {
		return model.Match{}, err
	}
	s.logActivity(ctx, sess, "add_match", model.CollectionMatches, fmt.Sprintf("match %s", m.ID))
	return m, nil
}

// UpdateMatch replaces the match with m.ID.
func (s *Service) UpdateMatch(ctx context.Context, sess *Session, m model.Match) (model.Match, error) {
	err := s.editMatches(ctx, sess, "UpdateMatch", m.ID, func(matches []model.Match) ([]model.Match, error) {
		i := slices.IndexFunc(matches, func(x model.Match) bool { return x.ID == m.ID })
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, m.ID)
		}
		next := slices.Clone(matches)
		next[i] = m
		return next, nil
	}, m.Validate)
	if err != nil {
		return model.Match{}, err
	}
	s.logActivity(ctx, sess, "update_match", model.CollectionMatches, fmt.Sprintf("match %s", m.ID))
	return m, nil
}

// DeleteMatch removes the match with id.
func (s *Service) DeleteMatch(ctx context.Context, sess *Session, id model.ID) error {
	err := s.editMatches(ctx, sess, "DeleteMatch", id, func(matches []model.Match) ([]model.Match, error) {
		i := slices.IndexFunc(matches, func(x model.Match) bool { return x.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
		}
		return slices.Delete(slices.Clone(matches), i, i+1), nil
	}, nil)
	if err != nil {
		return err
	}
	s.logActivity(ctx, sess, "delete_match", model.CollectionMatches, fmt.Sprintf("match %s", id))
	return nil
}

func (s *Service) editMatches(ctx context.Context, sess *Session, op string, id model.ID, edit func([]model.Match) ([]model.Match, error), check func() error) error {
	ctx, span := s.span(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("match", id.String()), attribute.String("actor", sess.Actor))

	if id.IsZero() {
		return fail(span, model.Invalid("match.id", "required"))
	}
	if check != nil {
		if err := check(); err != nil {
			s.stats.invalid.Add(1)
			return fail(span, err)
		}
	}

	doc, err := s.store.Transact(ctx, model.CollectionMatches.Key(), func(current []byte) ([]byte, error) {
		matches, err := decodeCurrent[[]model.Match](current)
		if err != nil {
			return nil, err
		}
		next, err := edit(matches)
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = []model.Match{}
		}
		return json.Marshal(next)
	})
	s.stats.transactions.Add(1)
	if err != nil {
		return fail(span, err)
	}
	sess.Remember(model.CollectionMatches, doc.UpdatedAt)
	s.changed(model.CollectionMatches)
	return nil
}
