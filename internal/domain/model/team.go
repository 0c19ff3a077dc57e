package model

import "time"

// UniformType selects the one-time uniform bonus tier.
type UniformType string

const (
	UniformNone        UniformType = "none"
	UniformColors      UniformType = "colors"
	UniformTopsBottoms UniformType = "tops-bottoms"
	UniformCustom      UniformType = "custom"
)

func (u UniformType) valid() bool {
	switch u {
	case "", UniformNone, UniformColors, UniformTopsBottoms, UniformCustom:
		return true
	}
	return false
}

// Gender is recorded per player and drives legacy mixed-doubles detection.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// PlayerStatus marks roster availability.
type PlayerStatus string

const (
	PlayerActive   PlayerStatus = "active"
	PlayerInjured  PlayerStatus = "injured"
	PlayerInactive PlayerStatus = "inactive"
)

// BonusConfig holds the director-maintained bonus inputs of a team.
type BonusConfig struct {
	UniformType           UniformType    `json:"uniformType,omitempty"`
	UniformPhotoSubmitted bool           `json:"uniformPhotoSubmitted,omitempty"`
	Practices             map[string]int `json:"practices,omitempty"`
}

// Team is a tournament team.
type Team struct {
	ID      ID          `json:"id"`
	Name    string      `json:"name"`
	Color   string      `json:"color,omitempty"`
	Bonuses BonusConfig `json:"bonuses"`
}

// Validate checks required fields and the bonus configuration.
func (t Team) Validate() error {
	if t.ID.IsZero() {
		return Invalid("team.id", "required")
	}
	if t.Name == "" {
		return Invalid("team.name", "required for team %s", t.ID)
	}
	if !t.Bonuses.UniformType.valid() {
		return Invalid("team.bonuses.uniformType", "unknown value %q", t.Bonuses.UniformType)
	}
	for month, count := range t.Bonuses.Practices {
		if _, err := time.Parse(monthKeyLayout, month); err != nil {
			return Invalid("team.bonuses.practices", "%q is not YYYY-MM", month)
		}
		if count < 0 {
			return Invalid("team.bonuses.practices", "negative count for %s", month)
		}
	}
	return nil
}

// Player is a rostered (or free-agent) player.
type Player struct {
	ID            ID           `json:"id"`
	FirstName     string       `json:"firstName"`
	LastName      string       `json:"lastName"`
	Gender        Gender       `json:"gender"`
	NTRPRating    float64      `json:"ntrpRating"`
	DynamicRating *float64     `json:"dynamicRating,omitempty"`
	TeamID        ID           `json:"teamId,omitempty"`
	Status        PlayerStatus `json:"status,omitempty"`
	Email         string       `json:"email,omitempty"`
}

// Rating is the dynamic rating when present, otherwise the official NTRP.
func (p Player) Rating() float64 {
	if p.DynamicRating != nil && *p.DynamicRating > 0 {
		return *p.DynamicRating
	}
	return p.NTRPRating
}

// IsActive treats a missing status as active.
func (p Player) IsActive() bool {
	return p.Status == "" || p.Status == PlayerActive
}

// FullName joins first and last name.
func (p Player) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Validate checks names, gender, rating range and status.
func (p Player) Validate() error {
	if p.ID.IsZero() {
		return Invalid("player.id", "required")
	}
	if p.FirstName == "" || p.LastName == "" {
		return Invalid("player.name", "first and last name required for player %s", p.ID)
	}
	if p.Gender != GenderMale && p.Gender != GenderFemale {
		return Invalid("player.gender", "must be M or F for player %s", p.ID)
	}
	if p.NTRPRating <= 0 || p.NTRPRating > 7 {
		return Invalid("player.ntrpRating", "%.1f out of range for player %s", p.NTRPRating, p.ID)
	}
	if p.DynamicRating != nil && (*p.DynamicRating < 0 || *p.DynamicRating > 7) {
		return Invalid("player.dynamicRating", "%.2f out of range for player %s", *p.DynamicRating, p.ID)
	}
	switch p.Status {
	case "", PlayerActive, PlayerInjured, PlayerInactive:
	default:
		return Invalid("player.status", "unknown value %q", p.Status)
	}
	return nil
}

// Trade records a player moving between teams.
type Trade struct {
	ID         ID     `json:"id"`
	PlayerID   ID     `json:"playerId"`
	FromTeamID ID     `json:"fromTeamId,omitempty"`
	ToTeamID   ID     `json:"toTeamId,omitempty"`
	Date       string `json:"date"`
	Note       string `json:"note,omitempty"`
}

// TeamsBlob is the combined teams, players and trades document.
type TeamsBlob struct {
	Teams   []Team   `json:"teams"`
	Players []Player `json:"players"`
	Trades  []Trade  `json:"trades,omitempty"`
}

// Validate checks every entity, id uniqueness, team references and the
// active roster limit. A limit of zero disables the roster check.
func (b TeamsBlob) Validate(rosterLimit int) error {
	teams := make(map[ID]struct{}, len(b.Teams))
	for _, t := range b.Teams {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := teams[t.ID]; dup {
			return Invalid("team.id", "duplicate id %s", t.ID)
		}
		teams[t.ID] = struct{}{}
	}

	players := make(map[ID]struct{}, len(b.Players))
	active := make(map[ID]int)
	for _, p := range b.Players {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := players[p.ID]; dup {
			return Invalid("player.id", "duplicate id %s", p.ID)
		}
		players[p.ID] = struct{}{}
		if p.TeamID.IsZero() {
			continue
		}
		if _, ok := teams[p.TeamID]; !ok {
			return Invalid("player.teamId", "player %s references unknown team %s", p.ID, p.TeamID)
		}
		if p.IsActive() {
			active[p.TeamID]++
		}
	}
	if rosterLimit > 0 {
		for _, t := range b.Teams {
			if active[t.ID] > rosterLimit {
				return Invalid("roster", "team %s has %d active players, limit is %d", t.ID, active[t.ID], rosterLimit)
			}
		}
	}

	for _, tr := range b.Trades {
		if _, ok := players[tr.PlayerID]; !ok {
			return Invalid("trade.playerId", "trade %s references unknown player %s", tr.ID, tr.PlayerID)
		}
	}
	return nil
}

// Team looks up a team by id.
func (b TeamsBlob) Team(id ID) (Team, bool) {
	for _, t := range b.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

// Roster returns the active players of a team in document order.
func (b TeamsBlob) Roster(teamID ID) []Player {
	var out []Player
	for _, p := range b.Players {
		if p.TeamID == teamID && p.IsActive() {
			out = append(out, p)
		}
	}
	return out
}

// Directory indexes players by id.
func (b TeamsBlob) Directory() map[ID]Player {
	out := make(map[ID]Player, len(b.Players))
	for _, p := range b.Players {
		out[p.ID] = p
	}
	return out
}
