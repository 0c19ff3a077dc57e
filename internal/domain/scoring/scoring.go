// Package scoring turns a team's raw match history into tournament points.
//
// The engine is pure: the same Input always yields the same Result. Time only
// enters through Input.AsOf, which decides whether a month has ended.
package scoring

import (
	"math"
	"time"

	"github.com/okian/ladder/internal/domain/model"
)

const (
	finalMonthWinPoints   = 4
	monthWinPoints        = 2
	underMatchedPenalty   = -4
	underMatchedThreshold = 4
	varietyThreshold      = 3
	mixedDoublesThreshold = 2
	practicePointsEach    = 0.5
	practiceMonthlyCap    = 2
	practiceSeasonCap     = 4
	bonusCapRatio         = 0.25
	defaultRosterLimit    = 14
)

// Volume tiers are checked top-down; only the first match counts.
var volumeTiers = []struct {
	min    int
	points float64
}{
	{20, 4},
	{15, 3},
	{10, 2},
	{5, 1},
}

var uniformPoints = map[model.UniformType]float64{
	model.UniformColors:      2,
	model.UniformTopsBottoms: 4,
	model.UniformCustom:      6,
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithSeason sets the configured tournament months.
func WithSeason(season model.Season) Option {
	return func(e *Engine) { e.season = season }
}

// WithRosterLimit caps the roster size eligible for the full-roster bonus.
func WithRosterLimit(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.rosterLimit = limit
		}
	}
}

// Input is everything the engine needs to score one team.
type Input struct {
	TeamID  model.ID
	Matches []model.Match
	Bonuses []model.BonusEntry
	// Roster is the team's current roster; inactive players are ignored.
	Roster []model.Player
	// Players resolves ids for legacy mixed-doubles detection.
	Players map[model.ID]model.Player
	Config  model.BonusConfig
	// AsOf decides which months have ended. The zero time ends none.
	AsOf time.Time
}

// MonthBreakdown lists the bonus components of one configured month.
type MonthBreakdown struct {
	Key             string  `json:"key"`
	Matches         int     `json:"matches"`
	Volume          float64 `json:"volume"`
	Penalty         float64 `json:"penalty"`
	FullRoster      float64 `json:"fullRoster"`
	OpponentVariety float64 `json:"opponentVariety"`
	LevelVariety    float64 `json:"levelVariety"`
	MixedDoubles    float64 `json:"mixedDoubles"`
	Practice        float64 `json:"practice"`
}

// Total sums the month's components except practice, which is capped
// season-wide.
func (b MonthBreakdown) Total() float64 {
	return b.Volume + b.Penalty + b.FullRoster + b.OpponentVariety + b.LevelVariety + b.MixedDoubles
}

// Breakdown explains where bonus points came from.
type Breakdown struct {
	Months   []MonthBreakdown `json:"months"`
	Manual   float64          `json:"manual"`
	Uniform  float64          `json:"uniform"`
	Practice float64          `json:"practice"`
}

// Result is the scored record of one team.
type Result struct {
	TeamID         model.ID  `json:"teamId"`
	MatchWinPoints int       `json:"matchWinPoints"`
	MatchWins      int       `json:"matchWins"`
	MatchLosses    int       `json:"matchLosses"`
	BonusPoints    float64   `json:"bonusPoints"`
	CappedBonus    float64   `json:"cappedBonus"`
	TotalPoints    float64   `json:"totalPoints"`
	SetsWon        int       `json:"setsWon"`
	GamesWon       int       `json:"gamesWon"`
	MatchesPlayed  int       `json:"matchesPlayed"`
	Breakdown      Breakdown `json:"breakdown"`
}

// Scorer computes a team's result.
type Scorer interface {
	Score(in Input) Result
}

// Engine implements Scorer for a configured season.
type Engine struct {
	season      model.Season
	rosterLimit int
}

// New creates an engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{rosterLimit: defaultRosterLimit}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Season returns the configured months.
func (e *Engine) Season() model.Season { return e.season }

type monthStats struct {
	matches   int
	mixed     int
	opponents map[model.ID]struct{}
	levels    map[float64]struct{}
	players   map[model.ID]struct{}
}

func newMonthStats() *monthStats {
	return &monthStats{
		opponents: make(map[model.ID]struct{}),
		levels:    make(map[float64]struct{}),
		players:   make(map[model.ID]struct{}),
	}
}

// Score computes the team's result. Only completed matches count.
func (e *Engine) Score(in Input) Result {
	res := Result{TeamID: in.TeamID}
	months := make(map[string]*monthStats, len(e.season.Months))

	for _, m := range in.Matches {
		side := m.SideOf(in.TeamID)
		if !m.IsCompleted() || side == model.SideNone {
			continue
		}
		res.MatchesPlayed++
		key := m.MonthKey()

		if m.WonBy(in.TeamID) {
			res.MatchWins++
			if e.season.IsFinal(key) {
				res.MatchWinPoints += finalMonthWinPoints
			} else {
				res.MatchWinPoints += monthWinPoints
			}
		} else {
			res.MatchLosses++
		}

		sets, games := tally(m, side)
		res.SetsWon += sets
		res.GamesWon += games

		if !e.season.Contains(key) {
			continue
		}
		st, ok := months[key]
		if !ok {
			st = newMonthStats()
			months[key] = st
		}
		st.matches++
		st.opponents[m.Opponent(in.TeamID)] = struct{}{}
		st.levels[m.Level] = struct{}{}
		for _, id := range m.PlayersOf(side) {
			st.players[id] = struct{}{}
		}
		if IsMixedDoubles(m, side, in.Players) {
			st.mixed++
		}
	}

	roster := activeRoster(in.Roster)
	var bonus float64
	for _, month := range e.season.Months {
		st, ok := months[month.Key]
		if !ok {
			st = newMonthStats()
		}
		mb := e.monthBonus(month, st, roster, in.AsOf)
		mb.Practice = practiceFor(in.Config.Practices[month.Key])
		res.Breakdown.Months = append(res.Breakdown.Months, mb)
		res.Breakdown.Practice += mb.Practice
		bonus += mb.Total()
	}
	res.Breakdown.Practice = math.Min(res.Breakdown.Practice, practiceSeasonCap)

	for _, b := range in.Bonuses {
		if b.TeamID == in.TeamID {
			res.Breakdown.Manual += b.Points
		}
	}
	if in.Config.UniformPhotoSubmitted {
		res.Breakdown.Uniform = uniformPoints[in.Config.UniformType]
	}

	bonus += res.Breakdown.Manual + res.Breakdown.Uniform + res.Breakdown.Practice
	res.BonusPoints = math.Max(bonus, 0)
	res.CappedBonus = math.Min(res.BonusPoints, float64(res.MatchWinPoints)*bonusCapRatio)
	res.TotalPoints = float64(res.MatchWinPoints) + res.CappedBonus
	return res
}

func (e *Engine) monthBonus(month model.Month, st *monthStats, roster []model.Player, asOf time.Time) MonthBreakdown {
	mb := MonthBreakdown{Key: month.Key, Matches: st.matches}

	for _, tier := range volumeTiers {
		if st.matches >= tier.min {
			mb.Volume = tier.points
			break
		}
	}
	if st.matches < underMatchedThreshold && !asOf.IsZero() && month.Ended(asOf) {
		mb.Penalty = underMatchedPenalty
	}
	if e.fullRoster(roster, st.players) {
		mb.FullRoster = 1
	}
	if len(st.opponents) >= varietyThreshold {
		mb.OpponentVariety = 1
	}
	if len(st.levels) >= varietyThreshold {
		mb.LevelVariety = 1
	}
	if st.mixed >= mixedDoublesThreshold {
		mb.MixedDoubles = 1
	}
	return mb
}

func (e *Engine) fullRoster(roster []model.Player, appeared map[model.ID]struct{}) bool {
	if len(roster) == 0 || len(roster) > e.rosterLimit {
		return false
	}
	for _, p := range roster {
		if _, ok := appeared[p.ID]; !ok {
			return false
		}
	}
	return true
}

// IsMixedDoubles prefers the explicit match type. Matches recorded before the
// type existed fall back to the genders of the side's players.
func IsMixedDoubles(m model.Match, side model.Side, players map[model.ID]model.Player) bool {
	if m.MatchType != "" {
		return m.MatchType == model.MatchMixedDoubles
	}
	var male, female bool
	for _, id := range m.PlayersOf(side) {
		switch players[id].Gender {
		case model.GenderMale:
			male = true
		case model.GenderFemale:
			female = true
		}
	}
	return male && female
}

// tally recomputes sets and games won by side from the raw set scores.
// Tiebreak points of a tiebreak third set count as games.
func tally(m model.Match, side model.Side) (sets, games int) {
	for _, s := range m.Sets() {
		own, other := s.Team1, s.Team2
		if side == model.Side2 {
			own, other = other, own
		}
		if own > other {
			sets++
		}
		games += own
	}
	return sets, games
}

func practiceFor(count int) float64 {
	if count <= 0 {
		return 0
	}
	return math.Min(practicePointsEach*float64(count), practiceMonthlyCap)
}

func activeRoster(players []model.Player) []model.Player {
	out := make([]model.Player, 0, len(players))
	for _, p := range players {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out
}
