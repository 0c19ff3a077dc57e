package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/ranking"
	"github.com/okian/ladder/internal/domain/scoring"
	"github.com/okian/ladder/pkg/logger"
)

const scoreEpsilon = 1e-9

type document struct {
	Data      json.RawMessage `json:"data"`
	UpdatedAt string          `json:"updatedAt"`
}

type leaderboard struct {
	AsOf      time.Time          `json:"asOf"`
	Standings []ranking.Standing `json:"standings"`
}

// verifyLeaderboard ranks the served documents locally and compares the
// result with the served leaderboard.
func verifyLeaderboard(ctx context.Context, config *Config, client *Client, stats *Stats) error {
	var board leaderboard
	if code, err := client.Do(ctx, http.MethodGet, "/api/v1/leaderboard", nil, &board); err != nil {
		return err
	} else if code != http.StatusOK {
		return fmt.Errorf("%w: leaderboard status %d", ErrMismatch, code)
	}

	var (
		blob    model.TeamsBlob
		matches []model.Match
		bonuses []model.BonusEntry
	)
	if err := fetch(ctx, client, model.CollectionTeams, &blob); err != nil {
		return err
	}
	if err := fetch(ctx, client, model.CollectionMatches, &matches); err != nil {
		return err
	}
	if err := fetch(ctx, client, model.CollectionBonuses, &bonuses); err != nil {
		return err
	}

	engine := scoring.New(scoring.WithSeason(config.Season), scoring.WithRosterLimit(config.RosterLimit))
	local := ranking.NewBuilder(engine).Build(ranking.InputsFrom(blob, matches, bonuses, board.AsOf))
	if err := compareStandings(local, board.Standings); err != nil {
		return err
	}
	stats.StandingsVerified = len(local)

	displayTopTeams(ctx, board.Standings)
	return nil
}

// fetch loads a collection; a missing one leaves out untouched.
func fetch(ctx context.Context, client *Client, col model.Collection, out any) error {
	var doc document
	code, err := client.Do(ctx, http.MethodGet, "/api/v1/documents/"+string(col), nil, &doc)
	if err != nil {
		return err
	}
	switch code {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("%w: %s status %d", ErrMismatch, col, code)
	}
	if len(doc.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(doc.Data, out); err != nil {
		return fmt.Errorf("decode %s: %w", col, err)
	}
	return nil
}

// compareStandings checks order, ranks and totals.
func compareStandings(want, got []ranking.Standing) error {
	if len(want) != len(got) {
		return fmt.Errorf("%w: %d teams served, %d expected", ErrMismatch, len(got), len(want))
	}
	for i := range want {
		w, g := want[i], got[i]
		if w.TeamID != g.TeamID || w.Rank != g.Rank {
			return fmt.Errorf("%w: position %d is %s (rank %d), expected %s (rank %d)",
				ErrMismatch, i+1, g.TeamID, g.Rank, w.TeamID, w.Rank)
		}
		if math.Abs(w.Score.TotalPoints-g.Score.TotalPoints) > scoreEpsilon {
			return fmt.Errorf("%w: team %s has %.3f points, expected %.3f",
				ErrMismatch, g.TeamID, g.Score.TotalPoints, w.Score.TotalPoints)
		}
		if i > 0 && ranking.Less(got[i].Score, got[i-1].Score) {
			return fmt.Errorf("%w: entry %d outranks entry %d", ErrMismatch, i+1, i)
		}
	}
	return nil
}

// displayTopTeams logs the head of the table.
func displayTopTeams(ctx context.Context, standings []ranking.Standing) {
	log := logger.Get().Named("seed")
	for _, st := range standings[:min(5, len(standings))] {
		log.Info(ctx, "standing",
			logger.Int("rank", st.Rank),
			logger.String("team", st.TeamName),
			logger.Float64("points", st.Score.TotalPoints),
			logger.Int("wins", st.Score.MatchWins))
	}
}
