package seed

import (
	"fmt"
	"math"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/okian/ladder/internal/domain/model"
)

// Rating ranges for generated players.
const (
	minRating   = 2.5
	maxRating   = 4.5
	ratingStep  = 0.5
	maxPractice = 4
	bonusChance = 4 // one team in bonusChance earns a manual bonus
)

// League is a generated tournament.
type League struct {
	Teams   model.TeamsBlob    `json:"teams"`
	Matches []model.Match      `json:"matches"`
	Bonuses []model.BonusEntry `json:"bonuses"`
}

// Generator builds leagues from a seeded faker.
type Generator struct {
	faker  *gofakeit.Faker
	season model.Season
}

// NewGenerator creates a generator. Equal seeds produce equal leagues.
func NewGenerator(seed uint64, season model.Season) *Generator {
	return &Generator{faker: gofakeit.New(seed), season: season}
}

// League generates teams with full rosters, completed matches spread over the
// season and a few manual bonuses.
func (g *Generator) League(teams, playersPerTeam, matchesPerTeam int) League {
	var l League
	for t := 0; t < teams; t++ {
		team := g.team(t)
		l.Teams.Teams = append(l.Teams.Teams, team)
		for p := 0; p < playersPerTeam; p++ {
			l.Teams.Players = append(l.Teams.Players, g.player(team.ID, p))
		}
	}

	n := teams * matchesPerTeam / 2
	for i := 0; i < n && teams > 1; i++ {
		l.Matches = append(l.Matches, g.match(i, l.Teams))
	}

	for i, team := range l.Teams.Teams {
		if g.faker.Number(1, bonusChance) != 1 {
			continue
		}
		l.Bonuses = append(l.Bonuses, model.BonusEntry{
			ID:          model.ID(fmt.Sprintf("bonus-%03d", i)),
			TeamID:      team.ID,
			Points:      float64(g.faker.Number(1, 3)),
			Description: g.faker.Sentence(4),
			Month:       g.month().Key,
		})
	}
	return l
}

func (g *Generator) team(i int) model.Team {
	practices := make(map[string]int)
	for _, m := range g.season.Months {
		if n := g.faker.Number(0, maxPractice); n > 0 {
			practices[m.Key] = n
		}
	}
	uniforms := []model.UniformType{model.UniformNone, model.UniformColors, model.UniformTopsBottoms, model.UniformCustom}
	return model.Team{
		ID:    model.ID(fmt.Sprintf("team-%02d", i+1)),
		Name:  g.faker.City() + " " + g.faker.Animal(),
		Color: g.faker.HexColor(),
		Bonuses: model.BonusConfig{
			UniformType:           uniforms[g.faker.Number(0, len(uniforms)-1)],
			UniformPhotoSubmitted: g.faker.Bool(),
			Practices:             practices,
		},
	}
}

func (g *Generator) player(teamID model.ID, i int) model.Player {
	gender := model.GenderMale
	if i%2 == 1 {
		gender = model.GenderFemale
	}
	return model.Player{
		ID:         model.ID(fmt.Sprintf("%s-p%02d", teamID, i+1)),
		FirstName:  g.faker.FirstName(),
		LastName:   g.faker.LastName(),
		Gender:     gender,
		NTRPRating: g.rating(),
		TeamID:     teamID,
		Status:     model.PlayerActive,
		Email:      g.faker.Email(),
	}
}

func (g *Generator) rating() float64 {
	steps := int((maxRating - minRating) / ratingStep)
	return minRating + float64(g.faker.Number(0, steps))*ratingStep
}

func (g *Generator) month() model.Month {
	return g.season.Months[g.faker.Number(0, len(g.season.Months)-1)]
}

// match pairs two distinct teams on a day of a season month. Lineups are the
// first players of each roster so the match is consistent with the teams
// document.
func (g *Generator) match(i int, blob model.TeamsBlob) model.Match {
	teams := blob.Teams
	a := g.faker.Number(0, len(teams)-1)
	b := (a + g.faker.Number(1, len(teams)-1)) % len(teams)
	t1, t2 := teams[a], teams[b]

	types := []model.MatchType{model.MatchSingles, model.MatchDoubles, model.MatchMixedDoubles}
	kind := types[g.faker.Number(0, len(types)-1)]
	per := kind.PlayersPerSide()
	p1, p2 := lineup(blob.Roster(t1.ID), per), lineup(blob.Roster(t2.ID), per)

	m := model.Match{
		ID:           model.ID(fmt.Sprintf("match-%04d", i+1)),
		MatchType:    kind,
		Date:         g.date(),
		Level:        math.Max(level(blob, p1), level(blob, p2)),
		Team1ID:      t1.ID,
		Team2ID:      t2.ID,
		Team1Players: p1,
		Team2Players: p2,
		Status:       model.MatchCompleted,
	}
	sets := g.sets()
	m.WithSets(sets)
	m.Winner = model.WinnerFromSets(sets)
	m.Set3IsTiebreaker = sets[2].Decided() && g.faker.Bool()
	return m
}

// date picks a day within a season month, never after its end date.
func (g *Generator) date() string {
	month := g.month()
	end, err := time.Parse(time.DateOnly, month.EndDate)
	if err != nil {
		return month.Key + "-01"
	}
	return fmt.Sprintf("%s-%02d", month.Key, g.faker.Number(1, end.Day()))
}

// sets produces a straight-sets or three-set result with a clear winner.
func (g *Generator) sets() [3]model.SetScore {
	win := func() model.SetScore { return model.SetScore{Team1: 6, Team2: g.faker.Number(0, 4)} }
	lose := func() model.SetScore { return model.SetScore{Team1: g.faker.Number(0, 4), Team2: 6} }

	var s [3]model.SetScore
	team1 := g.faker.Bool()
	if g.faker.Bool() {
		if team1 {
			s[0], s[1] = win(), win()
		} else {
			s[0], s[1] = lose(), lose()
		}
		return s
	}
	s[0], s[1] = win(), lose()
	if team1 {
		s[2] = win()
	} else {
		s[2] = lose()
	}
	return s
}

func lineup(roster []model.Player, n int) []model.ID {
	var ids []model.ID
	var men, women int
	for _, p := range roster {
		if len(ids) == n {
			break
		}
		// Keep mixed pairs mixed: at most one of each gender in a pair.
		if n == 2 && ((p.Gender == model.GenderMale && men == 1) || (p.Gender == model.GenderFemale && women == 1)) {
			continue
		}
		if p.Gender == model.GenderMale {
			men++
		} else {
			women++
		}
		ids = append(ids, p.ID)
	}
	return ids
}

// level is the combined rating of a lineup rounded up to the half point.
func level(blob model.TeamsBlob, ids []model.ID) float64 {
	dir := blob.Directory()
	var sum float64
	for _, id := range ids {
		sum += dir[id].Rating()
	}
	return math.Ceil(sum*2) / 2
}
