package ranking_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/ranking"
	"github.com/okian/ladder/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

// fixedScorer returns canned results so ordering can be tested in isolation.
type fixedScorer map[model.ID]scoring.Result

func (f fixedScorer) Score(in scoring.Input) scoring.Result {
	r := f[in.TeamID]
	r.TeamID = in.TeamID
	return r
}

type row struct {
	Rank int
	ID   model.ID
}

func rows(standings []ranking.Standing) []row {
	out := make([]row, len(standings))
	for i, s := range standings {
		out[i] = row{s.Rank, s.TeamID}
	}
	return out
}

func teams(ids ...model.ID) []model.Team {
	out := make([]model.Team, len(ids))
	for i, id := range ids {
		out[i] = model.Team{ID: id, Name: "Team " + string(id)}
	}
	return out
}

func TestBuildOrdering(t *testing.T) {
	Convey("Given teams with known results", t, func() {
		scorer := fixedScorer{
			"a": {TotalPoints: 10, SetsWon: 4, GamesWon: 30},
			"b": {TotalPoints: 12, SetsWon: 1, GamesWon: 10},
			"c": {TotalPoints: 10, SetsWon: 5, GamesWon: 20},
			"d": {TotalPoints: 10, SetsWon: 4, GamesWon: 31},
			"e": {TotalPoints: 10, SetsWon: 4, GamesWon: 30},
		}
		b := ranking.NewBuilder(scorer)

		Convey("Points, then sets, then games decide; full ties keep input order", func() {
			got := rows(b.Build(ranking.Inputs{Teams: teams("a", "b", "c", "d", "e")}))
			want := []row{{1, "b"}, {2, "c"}, {3, "d"}, {4, "a"}, {5, "e"}}
			So(cmp.Diff(want, got), ShouldBeEmpty)

			got = rows(b.Build(ranking.Inputs{Teams: teams("e", "d", "c", "b", "a")}))
			want = []row{{1, "b"}, {2, "c"}, {3, "d"}, {4, "e"}, {5, "a"}}
			So(cmp.Diff(want, got), ShouldBeEmpty)
		})

		Convey("No teams means an empty board", func() {
			So(b.Build(ranking.Inputs{}), ShouldBeEmpty)
		})
	})
}

func TestBuildWithEngine(t *testing.T) {
	Convey("Given a real engine and a small league", t, func() {
		season := model.Season{Months: []model.Month{{Key: "2026-07", Name: "July", EndDate: "2026-07-31"}}}
		engine := scoring.New(scoring.WithSeason(season))
		blob := model.TeamsBlob{
			Teams: teams("1", "2"),
			Players: []model.Player{
				{ID: "p1", TeamID: "1", Gender: model.GenderMale},
				{ID: "p2", TeamID: "2", Gender: model.GenderFemale},
			},
		}
		matches := []model.Match{{
			ID: "m1", MatchType: model.MatchSingles, Date: "2026-07-02", Level: 3.5,
			Team1ID: "1", Team2ID: "2", Winner: model.WinnerTeam2,
			Set1Team1: 2, Set1Team2: 6, Set2Team1: 3, Set2Team2: 6,
			Team1Players: []model.ID{"p1"}, Team2Players: []model.ID{"p2"},
			Status: model.MatchCompleted,
		}}
		board := ranking.NewBuilder(engine).Build(ranking.InputsFrom(blob, matches, nil, time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)))

		Convey("The winner leads and carries its full-roster bonus", func() {
			So(board, ShouldHaveLength, 2)
			So(board[0].TeamID, ShouldEqual, model.ID("2"))
			So(board[0].Score.MatchWinPoints, ShouldEqual, 4)
			So(board[0].Score.BonusPoints, ShouldEqual, 1)
			So(board[0].Score.TotalPoints, ShouldEqual, 5)
			So(board[1].Score.GamesWon, ShouldEqual, 5)
		})
	})
}

func TestTotalOrderProperty(t *testing.T) {
	Convey("For random results the board is sorted by the ranking keys", t, func() {
		rng := rand.New(rand.NewSource(11))
		for round := 0; round < 30; round++ {
			scorer := fixedScorer{}
			var ids []model.ID
			for i := 0; i < 12; i++ {
				id := model.ID(fmt.Sprintf("t%02d", i))
				ids = append(ids, id)
				scorer[id] = scoring.Result{
					TotalPoints: float64(rng.Intn(4)) * 2.5,
					SetsWon:     rng.Intn(3),
					GamesWon:    rng.Intn(3),
				}
			}
			board := ranking.NewBuilder(scorer).Build(ranking.Inputs{Teams: teams(ids...)})
			for i := 1; i < len(board); i++ {
				So(ranking.Less(board[i].Score, board[i-1].Score), ShouldBeFalse)
			}
		}
	})
}
