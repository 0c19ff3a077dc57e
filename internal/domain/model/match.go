package model

// MatchType distinguishes singles from doubles lines.
type MatchType string

const (
	MatchSingles      MatchType = "singles"
	MatchDoubles      MatchType = "doubles"
	MatchMixedDoubles MatchType = "mixed_doubles"
)

// Valid reports whether t is a known type. The empty type is allowed for
// legacy matches.
func (t MatchType) Valid() bool {
	switch t {
	case "", MatchSingles, MatchDoubles, MatchMixedDoubles:
		return true
	}
	return false
}

// PlayersPerSide is 1 for singles and 2 otherwise.
func (t MatchType) PlayersPerSide() int {
	if t == MatchSingles {
		return 1
	}
	return 2
}

// Winner names the winning side of a match.
type Winner string

const (
	WinnerTeam1 Winner = "team1"
	WinnerTeam2 Winner = "team2"
	WinnerNone  Winner = ""
)

// MatchStatus is pending until a result is recorded.
type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchCompleted MatchStatus = "completed"
)

// Side is 1 or 2.
type Side int

const (
	SideNone Side = iota
	Side1
	Side2
)

// SetScore is one set as seen from team1 and team2.
type SetScore struct {
	Team1 int
	Team2 int
}

// Decided reports whether the set produced a winner.
func (s SetScore) Decided() bool { return s.Team1 != s.Team2 }

// Match is a single played or scheduled line between two teams.
type Match struct {
	ID               ID          `json:"id"`
	MatchID          string      `json:"matchId,omitempty"`
	MatchType        MatchType   `json:"matchType,omitempty"`
	Date             string      `json:"date"`
	Level            float64     `json:"level"`
	Team1ID          ID          `json:"team1Id"`
	Team2ID          ID          `json:"team2Id"`
	Winner           Winner      `json:"winner"`
	Set1Team1        int         `json:"set1Team1"`
	Set1Team2        int         `json:"set1Team2"`
	Set2Team1        int         `json:"set2Team1"`
	Set2Team2        int         `json:"set2Team2"`
	Set3Team1        int         `json:"set3Team1"`
	Set3Team2        int         `json:"set3Team2"`
	Set3IsTiebreaker bool        `json:"set3IsTiebreaker,omitempty"`
	Team1Players     []ID        `json:"team1Players,omitempty"`
	Team2Players     []ID        `json:"team2Players,omitempty"`
	Status           MatchStatus `json:"status"`
	Notes            string      `json:"notes,omitempty"`
}

// Sets returns the three set slots in order.
func (m Match) Sets() [3]SetScore {
	return [3]SetScore{
		{m.Set1Team1, m.Set1Team2},
		{m.Set2Team1, m.Set2Team2},
		{m.Set3Team1, m.Set3Team2},
	}
}

// DecidedSets counts sets with a winner.
func (m Match) DecidedSets() int {
	n := 0
	for _, s := range m.Sets() {
		if s.Decided() {
			n++
		}
	}
	return n
}

// SetsWonBy counts decided sets won by side.
func (m Match) SetsWonBy(side Side) int {
	n := 0
	for _, s := range m.Sets() {
		switch {
		case side == Side1 && s.Team1 > s.Team2:
			n++
		case side == Side2 && s.Team2 > s.Team1:
			n++
		}
	}
	return n
}

// IsCompleted reports whether the match counts toward scoring.
func (m Match) IsCompleted() bool { return m.Status == MatchCompleted }

// SideOf returns which side teamID played, or SideNone.
func (m Match) SideOf(teamID ID) Side {
	switch teamID {
	case m.Team1ID:
		return Side1
	case m.Team2ID:
		return Side2
	}
	return SideNone
}

// Involves reports whether teamID played in the match.
func (m Match) Involves(teamID ID) bool { return m.SideOf(teamID) != SideNone }

// Opponent returns the other team's id.
func (m Match) Opponent(teamID ID) ID {
	if m.SideOf(teamID) == Side1 {
		return m.Team2ID
	}
	return m.Team1ID
}

// PlayersOf returns the player ids listed for side.
func (m Match) PlayersOf(side Side) []ID {
	if side == Side1 {
		return m.Team1Players
	}
	return m.Team2Players
}

// WonBy reports whether teamID is the recorded winner.
func (m Match) WonBy(teamID ID) bool {
	switch m.SideOf(teamID) {
	case Side1:
		return m.Winner == WinnerTeam1
	case Side2:
		return m.Winner == WinnerTeam2
	}
	return false
}

// MonthKey returns the YYYY-MM of the match date.
func (m Match) MonthKey() string { return MonthKeyOf(m.Date) }

// Validate enforces the structural rules of a match. A completed match needs
// a winner who took the majority of 2 or 3 decided sets.
func (m Match) Validate() error {
	if m.ID.IsZero() {
		return Invalid("match.id", "required")
	}
	if m.Team1ID.IsZero() || m.Team2ID.IsZero() {
		return Invalid("match.teams", "both teams are required for match %s", m.ID)
	}
	if m.Team1ID == m.Team2ID {
		return Invalid("match.teams", "team %s cannot play itself", m.Team1ID)
	}
	if !m.MatchType.Valid() {
		return Invalid("match.matchType", "unknown value %q", m.MatchType)
	}
	if m.MonthKey() == "" {
		return Invalid("match.date", "%q is not a date", m.Date)
	}
	if m.Level < 0 {
		return Invalid("match.level", "must not be negative")
	}
	for i, s := range m.Sets() {
		if s.Team1 < 0 || s.Team2 < 0 {
			return Invalid("match.sets", "set %d has a negative score", i+1)
		}
	}

	switch m.Status {
	case MatchPending:
		if m.Winner != WinnerNone {
			return Invalid("match.winner", "pending match %s cannot have a winner", m.ID)
		}
	case MatchCompleted:
		if m.Winner != WinnerTeam1 && m.Winner != WinnerTeam2 {
			return Invalid("match.winner", "completed match %s needs a winner", m.ID)
		}
		decided := m.DecidedSets()
		if decided < 2 || decided > 3 {
			return Invalid("match.sets", "completed match %s has %d decided sets", m.ID, decided)
		}
		w, l := m.SetsWonBy(Side1), m.SetsWonBy(Side2)
		if m.Winner == WinnerTeam2 {
			w, l = l, w
		}
		if w <= l {
			return Invalid("match.winner", "winner of match %s did not take the majority of sets", m.ID)
		}
	default:
		return Invalid("match.status", "unknown value %q", m.Status)
	}
	return nil
}

// WinnerFromSets derives the winner from set scores, or WinnerNone on a tie.
func WinnerFromSets(sets [3]SetScore) Winner {
	var m Match
	m.WithSets(sets)
	w1, w2 := m.SetsWonBy(Side1), m.SetsWonBy(Side2)
	switch {
	case w1 > w2:
		return WinnerTeam1
	case w2 > w1:
		return WinnerTeam2
	}
	return WinnerNone
}

// WithSets copies the scores into m.
func (m *Match) WithSets(sets [3]SetScore) {
	m.Set1Team1, m.Set1Team2 = sets[0].Team1, sets[0].Team2
	m.Set2Team1, m.Set2Team2 = sets[1].Team1, sets[1].Team2
	m.Set3Team1, m.Set3Team2 = sets[2].Team1, sets[2].Team2
}
