package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/ladder/internal/domain/challenge"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// ChallengeResult is the reported outcome of a challenge transition. Exactly
// one of the flags is set when Success is false, unless the request itself
// was invalid.
type ChallengeResult struct {
	Success          bool             `json:"success"`
	UpdatedChallenge *model.Challenge `json:"updatedChallenge,omitempty"`
	CreatedMatch     *model.Match     `json:"createdMatch,omitempty"`
	AlreadyAccepted  bool             `json:"alreadyAccepted,omitempty"`
	AlreadyCompleted bool             `json:"alreadyCompleted,omitempty"`
	NotFound         bool             `json:"notFound,omitempty"`
	StatusChanged    bool             `json:"statusChanged,omitempty"`
	Message          string           `json:"message,omitempty"`
}

func resultOf(out challenge.Outcome) ChallengeResult {
	return ChallengeResult{
		Success:          out.Kind == challenge.OK,
		UpdatedChallenge: out.Updated,
		CreatedMatch:     out.Match,
		AlreadyAccepted:  out.Kind == challenge.AlreadyAccepted,
		AlreadyCompleted: out.Kind == challenge.AlreadyCompleted,
		NotFound:         out.Kind == challenge.NotFound,
		StatusChanged:    out.Kind == challenge.StatusChanged,
		Message:          out.Message,
	}
}

// Challenges returns every challenge.
func (s *Service) Challenges(ctx context.Context) ([]model.Challenge, error) {
	ctx, span := s.span(ctx, "Challenges")
	defer span.End()

	list, _, err := read[[]model.Challenge](ctx, s.store, model.CollectionChallenges)
	if err != nil {
		return nil, fail(span, err)
	}
	return list, nil
}

// PrecheckChallenge reports whether action is currently allowed. It is
// advisory and changes nothing.
func (s *Service) PrecheckChallenge(ctx context.Context, id model.ID, action challenge.Action) (ChallengeResult, error) {
	ctx, span := s.span(ctx, "PrecheckChallenge")
	defer span.End()
	span.SetAttributes(attribute.String("challenge", id.String()), attribute.String("action", string(action)))

	list, _, err := read[[]model.Challenge](ctx, s.store, model.CollectionChallenges)
	if err != nil {
		return ChallengeResult{}, fail(span, err)
	}
	return resultOf(challenge.Precheck(list, id, action)), nil
}

// CreateChallenge opens a new challenge. An empty id is generated.
func (s *Service) CreateChallenge(ctx context.Context, sess *Session, req challenge.CreateRequest) (ChallengeResult, error) {
	if req.ID.IsZero() {
		req.ID = model.ID(uuid.NewString())
	}
	players, err := s.directory(ctx)
	if err != nil {
		return ChallengeResult{}, err
	}
	return s.transition(ctx, sess, challenge.ActionCreate, req.ID, func(list []model.Challenge) challenge.Outcome {
		return challenge.Create(list, req, players, sess.Actor, sess.Now())
	})
}

// AcceptChallenge accepts an open challenge. Of several concurrent accepts,
// exactly one succeeds; the others report AlreadyAccepted.
func (s *Service) AcceptChallenge(ctx context.Context, sess *Session, id model.ID, req challenge.AcceptRequest) (ChallengeResult, error) {
	if req.MatchID == "" {
		req.MatchID = uuid.NewString()
	}
	players, err := s.directory(ctx)
	if err != nil {
		return ChallengeResult{}, err
	}
	return s.transition(ctx, sess, challenge.ActionAccept, id, func(list []model.Challenge) challenge.Outcome {
		return challenge.Accept(list, id, req, players, sess.Actor, sess.Now())
	})
}

// DeclineChallenge declines an open challenge.
func (s *Service) DeclineChallenge(ctx context.Context, sess *Session, id model.ID) (ChallengeResult, error) {
	return s.transition(ctx, sess, challenge.ActionDecline, id, func(list []model.Challenge) challenge.Outcome {
		return challenge.Decline(list, id, sess.Actor, sess.Now())
	})
}

// CompleteChallenge records the result of an accepted challenge and appends
// the resulting match once. Resubmitting a completed challenge appends the
// stored match if an earlier attempt failed to record it.
func (s *Service) CompleteChallenge(ctx context.Context, sess *Session, id model.ID, req challenge.ResultRequest) (ChallengeResult, error) {
	res, err := s.transition(ctx, sess, challenge.ActionComplete, id, func(list []model.Challenge) challenge.Outcome {
		return challenge.Complete(list, id, req, sess.Actor, sess.Now())
	})
	if err != nil {
		return res, err
	}

	var m *model.Match
	switch {
	case res.Success:
		m = res.CreatedMatch
	case res.AlreadyCompleted && res.UpdatedChallenge != nil:
		m = res.UpdatedChallenge.Result
	}
	if m == nil {
		return res, nil
	}

	added, err := s.appendMatchIfAbsent(ctx, *m)
	if err != nil {
		s.logger.Error(ctx, "challenge completed but match was not recorded",
			logger.String("challenge", id.String()),
			logger.String("match", m.ID.String()),
			logger.Error(err),
		)
		return res, fmt.Errorf("record match for challenge %s: %w", id, err)
	}
	if added {
		if !res.Success {
			s.logger.Info(ctx, "recorded match left behind by an earlier result",
				logger.String("challenge", id.String()),
				logger.String("match", m.ID.String()),
			)
		}
		s.logActivity(ctx, sess, "add_match", model.CollectionMatches, fmt.Sprintf("match %s from challenge %s", m.ID, id))
		s.changed(model.CollectionMatches)
	}
	return res, nil
}

// transition runs step inside a transaction on the challenges document. The
// outcome of the final attempt is the one reported.
func (s *Service) transition(ctx context.Context, sess *Session, action challenge.Action, id model.ID, step func([]model.Challenge) challenge.Outcome) (ChallengeResult, error) {
	ctx, span := s.span(ctx, "Challenge."+string(action))
	defer span.End()
	span.SetAttributes(attribute.String("challenge", id.String()), attribute.String("actor", sess.Actor))

	var out challenge.Outcome
	_, err := s.store.Transact(ctx, model.CollectionChallenges.Key(), func(current []byte) ([]byte, error) {
		list, err := decodeCurrent[[]model.Challenge](current)
		if err != nil {
			return nil, err
		}
		out = step(list)
		if out.Kind != challenge.OK || out.Challenges == nil {
			return nil, nil
		}
		return json.Marshal(out.Challenges)
	})
	s.stats.transactions.Add(1)
	if err != nil {
		metrics.RecordChallengeTransition(string(action), metrics.OutcomeError)
		return ChallengeResult{}, fail(span, err)
	}

	kind := out.Kind.String()
	s.stats.challenge(kind)
	metrics.RecordChallengeTransition(string(action), kind)
	span.SetAttributes(attribute.String("outcome", kind))

	if out.Kind == challenge.Invalid {
		return resultOf(out), fail(span, out.Err)
	}
	res := resultOf(out)
	if res.Success {
		s.logActivity(ctx, sess, string(action)+"_challenge", model.CollectionChallenges, fmt.Sprintf("challenge %s %s", id, out.State()))
		s.changed(model.CollectionChallenges)
	} else {
		s.logger.Debug(ctx, "challenge transition rejected",
			logger.String("challenge", id.String()),
			logger.String("action", string(action)),
			logger.String("outcome", kind),
		)
	}
	return res, nil
}

// appendMatchIfAbsent adds m to the matches document unless a match with the
// same id is already there.
func (s *Service) appendMatchIfAbsent(ctx context.Context, m model.Match) (bool, error) {
	var added bool
	_, err := s.store.Transact(ctx, model.CollectionMatches.Key(), func(current []byte) ([]byte, error) {
		added = false
		matches, err := decodeCurrent[[]model.Match](current)
		if err != nil {
			return nil, err
		}
		if slices.ContainsFunc(matches, func(x model.Match) bool { return x.ID == m.ID }) {
			return nil, nil
		}
		added = true
		return json.Marshal(append(matches, m))
	})
	s.stats.transactions.Add(1)
	return added, err
}

// directory indexes every player for lineup validation.
func (s *Service) directory(ctx context.Context) (map[model.ID]model.Player, error) {
	blob, _, err := read[model.TeamsBlob](ctx, s.store, model.CollectionTeams)
	if err != nil {
		return nil, err
	}
	return blob.Directory(), nil
}
