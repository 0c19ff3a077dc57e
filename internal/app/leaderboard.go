package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/ranking"
	"github.com/okian/ladder/internal/domain/scoring"
	"github.com/okian/ladder/pkg/metrics"
)

// Leaderboard is a ranked snapshot of every team.
type Leaderboard struct {
	AsOf      time.Time          `json:"asOf"`
	Standings []ranking.Standing `json:"standings"`
}

// Leaderboard builds the standings as of the session's current time.
// Concurrent builds for the same day over the same document versions share
// one computation.
func (s *Service) Leaderboard(ctx context.Context, sess *Session) (Leaderboard, error) {
	ctx, span := s.span(ctx, "Leaderboard")
	defer span.End()

	asOf := sess.Now()
	in, err := s.loadInputs(ctx)
	if err != nil {
		return Leaderboard{}, fail(span, err)
	}
	key := strings.Join([]string{asOf.Format(time.DateOnly), in.teamsVersion, in.matchesVersion, in.bonusesVersion}, "|")
	v, err, shared := s.flights.Do(key, func() (interface{}, error) {
		return s.build(in, asOf), nil
	})
	span.SetAttributes(attribute.Bool("shared", shared))
	if err != nil {
		return Leaderboard{}, fail(span, err)
	}
	board := v.(Leaderboard)
	board.Standings = slices.Clone(board.Standings)
	return board, nil
}

// TeamScore returns one team's scored result.
func (s *Service) TeamScore(ctx context.Context, sess *Session, id model.ID) (ranking.Standing, error) {
	board, err := s.Leaderboard(ctx, sess)
	if err != nil {
		return ranking.Standing{}, err
	}
	for _, st := range board.Standings {
		if st.TeamID == id {
			return st, nil
		}
	}
	return ranking.Standing{}, ErrTeamNotFound
}

type boardInputs struct {
	blob    model.TeamsBlob
	matches []model.Match
	bonuses []model.BonusEntry

	teamsVersion   string
	matchesVersion string
	bonusesVersion string
}

func (s *Service) loadInputs(ctx context.Context) (boardInputs, error) {
	var in boardInputs
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.blob, in.teamsVersion, err = read[model.TeamsBlob](gctx, s.store, model.CollectionTeams)
		return err
	})
	g.Go(func() (err error) {
		in.matches, in.matchesVersion, err = read[[]model.Match](gctx, s.store, model.CollectionMatches)
		return err
	})
	g.Go(func() (err error) {
		in.bonuses, in.bonusesVersion, err = read[[]model.BonusEntry](gctx, s.store, model.CollectionBonuses)
		return err
	})
	return in, g.Wait()
}

func (s *Service) build(in boardInputs, asOf time.Time) Leaderboard {
	start := time.Now()
	standings := s.builder.Build(ranking.InputsFrom(in.blob, in.matches, in.bonuses, asOf))
	s.stats.builds.Add(1)
	metrics.RecordLeaderboardBuild(len(standings), time.Since(start))
	return Leaderboard{AsOf: asOf, Standings: standings}
}

// Engine exposes the scorer for callers that rank locally.
func (s *Service) Engine() *scoring.Engine { return s.engine }
