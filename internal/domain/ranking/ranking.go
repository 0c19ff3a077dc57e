// Package ranking orders scored teams into a leaderboard.
package ranking

import (
	"sort"
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/scoring"
)

// Inputs are the documents a leaderboard is derived from.
type Inputs struct {
	Teams   []model.Team
	Players []model.Player
	Matches []model.Match
	Bonuses []model.BonusEntry
	AsOf    time.Time
}

// InputsFrom assembles Inputs from the stored documents.
func InputsFrom(blob model.TeamsBlob, matches []model.Match, bonuses []model.BonusEntry, asOf time.Time) Inputs {
	return Inputs{
		Teams:   blob.Teams,
		Players: blob.Players,
		Matches: matches,
		Bonuses: bonuses,
		AsOf:    asOf,
	}
}

// Standing is one leaderboard row.
type Standing struct {
	Rank     int            `json:"rank"`
	TeamID   model.ID       `json:"teamId"`
	TeamName string         `json:"teamName"`
	Color    string         `json:"color,omitempty"`
	Score    scoring.Result `json:"score"`
}

// Builder composes a Scorer over every team.
type Builder struct {
	scorer scoring.Scorer
}

// NewBuilder creates a Builder.
func NewBuilder(scorer scoring.Scorer) *Builder {
	return &Builder{scorer: scorer}
}

// Build scores every team and sorts them. Teams that tie on every key keep
// their input order. Ranks are 1-based positions.
func (b *Builder) Build(in Inputs) []Standing {
	directory := make(map[model.ID]model.Player, len(in.Players))
	rosters := make(map[model.ID][]model.Player)
	for _, p := range in.Players {
		directory[p.ID] = p
		if !p.TeamID.IsZero() && p.IsActive() {
			rosters[p.TeamID] = append(rosters[p.TeamID], p)
		}
	}

	out := make([]Standing, 0, len(in.Teams))
	for _, t := range in.Teams {
		res := b.scorer.Score(scoring.Input{
			TeamID:  t.ID,
			Matches: in.Matches,
			Bonuses: in.Bonuses,
			Roster:  rosters[t.ID],
			Players: directory,
			Config:  t.Bonuses,
			AsOf:    in.AsOf,
		})
		out = append(out, Standing{TeamID: t.ID, TeamName: t.Name, Color: t.Color, Score: res})
	}

	sort.SliceStable(out, func(i, j int) bool { return Less(out[i].Score, out[j].Score) })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Less orders by total points, then sets won, then games won, all descending.
func Less(a, b scoring.Result) bool {
	if a.TotalPoints != b.TotalPoints {
		return a.TotalPoints > b.TotalPoints
	}
	if a.SetsWon != b.SetsWon {
		return a.SetsWon > b.SetsWon
	}
	return a.GamesWon > b.GamesWon
}
