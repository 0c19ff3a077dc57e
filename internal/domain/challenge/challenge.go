// Package challenge implements the challenge lifecycle as pure transitions
// over the stored challenge list.
//
// Every function takes the freshly read list and returns a new one; the input
// is never modified, so a transaction that retries can call them again.
package challenge

import (
	"fmt"
	"slices"
	"time"

	"github.com/okian/ladder/internal/domain/model"
)

const ratingEpsilon = 1e-9

// Kind tags the outcome of a transition.
type Kind int

const (
	OK Kind = iota
	NotFound
	AlreadyAccepted
	AlreadyCompleted
	StatusChanged
	Invalid
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case NotFound:
		return "not_found"
	case AlreadyAccepted:
		return "already_accepted"
	case AlreadyCompleted:
		return "already_completed"
	case StatusChanged:
		return "status_changed"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

// Action names a transition.
type Action string

const (
	ActionCreate   Action = "create"
	ActionAccept   Action = "accept"
	ActionDecline  Action = "decline"
	ActionComplete Action = "complete"
)

// expected is the status an action transitions from.
func (a Action) expected() model.ChallengeStatus {
	if a == ActionComplete {
		return model.ChallengeAccepted
	}
	return model.ChallengeOpen
}

// Outcome is the result of a transition. Challenges is the list to write back
// and is nil unless Kind is OK and something changed.
type Outcome struct {
	Kind       Kind
	Challenges []model.Challenge
	Updated    *model.Challenge
	Match      *model.Match
	Message    string
	Err        error
}

// State is the status of the affected challenge, or "" when none was found.
func (o Outcome) State() model.ChallengeStatus {
	if o.Updated == nil {
		return ""
	}
	return o.Updated.Status
}

// CreateRequest proposes a new challenge.
type CreateRequest struct {
	ID               model.ID
	ChallengerTeamID model.ID
	ChallengedTeamID model.ID
	MatchType        model.MatchType
	ProposedDate     string
	ProposedLevel    float64
	Players          []model.ID
	Notes            string
}

// AcceptRequest answers an open challenge. Zero Date or Level keep the
// proposed values.
type AcceptRequest struct {
	TeamID  model.ID
	Players []model.ID
	Date    string
	Level   float64
	MatchID string
}

// ResultRequest records the score of an accepted challenge, from the
// challenger's side as team1.
type ResultRequest struct {
	Sets     [3]model.SetScore
	Tiebreak bool
	Notes    string
}

func find(list []model.Challenge, id model.ID) int {
	return slices.IndexFunc(list, func(c model.Challenge) bool { return c.ID == id })
}

func statusKind(current model.ChallengeStatus, action Action) Kind {
	if current == action.expected() {
		return OK
	}
	switch current {
	case model.ChallengeAccepted:
		return AlreadyAccepted
	case model.ChallengeCompleted:
		return AlreadyCompleted
	}
	return StatusChanged
}

func rejected(kind Kind, c *model.Challenge, format string, args ...any) Outcome {
	return Outcome{Kind: kind, Updated: c, Message: fmt.Sprintf(format, args...)}
}

func invalid(err error) Outcome {
	return Outcome{Kind: Invalid, Err: err, Message: err.Error()}
}

// locate finds the challenge and checks it is in the state action expects.
func locate(list []model.Challenge, id model.ID, action Action) (int, Outcome, bool) {
	i := find(list, id)
	if i < 0 {
		return -1, rejected(NotFound, nil, "challenge %s not found", id), false
	}
	current := list[i]
	switch statusKind(current.Status, action) {
	case OK:
		return i, Outcome{}, true
	case AlreadyAccepted:
		return i, rejected(AlreadyAccepted, &current, "challenge %s was already accepted by %s", id, current.AcceptedBy), false
	case AlreadyCompleted:
		return i, rejected(AlreadyCompleted, &current, "challenge %s already has a result", id), false
	default:
		return i, rejected(StatusChanged, &current, "challenge %s is %s, expected %s", id, current.Status, action.expected()), false
	}
}

func apply(list []model.Challenge, i int, updated model.Challenge) Outcome {
	next := slices.Clone(list)
	if i < 0 {
		next = append(next, updated)
	} else {
		next[i] = updated
	}
	return Outcome{Kind: OK, Challenges: next, Updated: &updated}
}

// Precheck reports whether action is currently allowed without changing
// anything. It is advisory; the transaction re-checks.
func Precheck(list []model.Challenge, id model.ID, action Action) Outcome {
	i, out, ok := locate(list, id, action)
	if !ok {
		return out
	}
	current := list[i]
	return Outcome{Kind: OK, Updated: &current}
}

// Create appends a new open challenge.
func Create(list []model.Challenge, req CreateRequest, players map[model.ID]model.Player, actor string, now time.Time) Outcome {
	switch {
	case req.ID.IsZero():
		return invalid(model.Invalid("challenge.id", "required"))
	case find(list, req.ID) >= 0:
		return invalid(model.Invalid("challenge.id", "%s already exists", req.ID))
	case req.ChallengerTeamID.IsZero():
		return invalid(model.Invalid("challenge.challengerTeamId", "required"))
	case req.ChallengedTeamID == req.ChallengerTeamID:
		return invalid(model.Invalid("challenge.challengedTeamId", "a team cannot challenge itself"))
	case req.MatchType == "" || !req.MatchType.Valid():
		return invalid(model.Invalid("challenge.matchType", "unknown value %q", req.MatchType))
	case model.MonthKeyOf(req.ProposedDate) == "":
		return invalid(model.Invalid("challenge.proposedDate", "%q is not a date", req.ProposedDate))
	case req.ProposedLevel <= 0:
		return invalid(model.Invalid("challenge.proposedLevel", "must be positive"))
	}

	combined, err := CombinedRating(req.ChallengerTeamID, req.MatchType, req.ProposedLevel, req.Players, players)
	if err != nil {
		return invalid(err)
	}

	at := now.UTC()
	c := model.Challenge{
		ID:                req.ID,
		ChallengerTeamID:  req.ChallengerTeamID,
		ChallengedTeamID:  req.ChallengedTeamID,
		MatchType:         req.MatchType,
		ProposedDate:      req.ProposedDate,
		ProposedLevel:     req.ProposedLevel,
		ChallengerPlayers: slices.Clone(req.Players),
		ChallengerNTRP:    combined,
		Status:            model.ChallengeOpen,
		Notes:             req.Notes,
		CreatedBy:         actor,
		CreatedAt:         &at,
	}
	return apply(list, -1, c)
}

// Accept moves an open challenge to accepted.
func Accept(list []model.Challenge, id model.ID, req AcceptRequest, players map[model.ID]model.Player, actor string, now time.Time) Outcome {
	i, out, ok := locate(list, id, ActionAccept)
	if !ok {
		return out
	}
	c := list[i]

	switch {
	case req.TeamID.IsZero():
		return invalid(model.Invalid("accept.teamId", "required"))
	case req.TeamID == c.ChallengerTeamID:
		return invalid(model.Invalid("accept.teamId", "a team cannot accept its own challenge"))
	case !c.ChallengedTeamID.IsZero() && c.ChallengedTeamID != req.TeamID:
		return invalid(model.Invalid("accept.teamId", "challenge %s is addressed to team %s", id, c.ChallengedTeamID))
	case req.MatchID == "":
		return invalid(model.Invalid("accept.matchId", "required"))
	}

	date := req.Date
	if date == "" {
		date = c.ProposedDate
	}
	if model.MonthKeyOf(date) == "" {
		return invalid(model.Invalid("accept.date", "%q is not a date", date))
	}
	level := req.Level
	if level <= 0 {
		level = c.ProposedLevel
	}
	if _, err := CombinedRating(c.ChallengerTeamID, c.MatchType, level, c.ChallengerPlayers, players); err != nil {
		return invalid(err)
	}
	combined, err := CombinedRating(req.TeamID, c.MatchType, level, req.Players, players)
	if err != nil {
		return invalid(err)
	}

	at := now.UTC()
	c.ChallengedTeamID = req.TeamID
	c.ChallengedPlayers = slices.Clone(req.Players)
	c.ChallengedNTRP = combined
	c.AcceptedDate = date
	c.AcceptedLevel = level
	c.MatchID = req.MatchID
	c.Status = model.ChallengeAccepted
	c.AcceptedBy = actor
	c.AcceptedAt = &at
	return apply(list, i, c)
}

// Decline moves an open challenge to declined.
func Decline(list []model.Challenge, id model.ID, actor string, now time.Time) Outcome {
	i, out, ok := locate(list, id, ActionDecline)
	if !ok {
		return out
	}
	c := list[i]
	at := now.UTC()
	c.Status = model.ChallengeDeclined
	c.DeclinedBy = actor
	c.DeclinedAt = &at
	return apply(list, i, c)
}

// Complete records the result of an accepted challenge and synthesizes the
// completed match. The match id is the challenge's match id, so appending it
// twice can be detected.
func Complete(list []model.Challenge, id model.ID, req ResultRequest, actor string, now time.Time) Outcome {
	i, out, ok := locate(list, id, ActionComplete)
	if !ok {
		return out
	}
	c := list[i]

	m := model.Match{
		ID:               model.ID(c.MatchID),
		MatchID:          c.MatchID,
		MatchType:        c.MatchType,
		Date:             c.Date(),
		Level:            c.Level(),
		Team1ID:          c.ChallengerTeamID,
		Team2ID:          c.ChallengedTeamID,
		Winner:           model.WinnerFromSets(req.Sets),
		Set3IsTiebreaker: req.Tiebreak,
		Team1Players:     slices.Clone(c.ChallengerPlayers),
		Team2Players:     slices.Clone(c.ChallengedPlayers),
		Status:           model.MatchCompleted,
		Notes:            req.Notes,
	}
	m.WithSets(req.Sets)
	if err := m.Validate(); err != nil {
		return invalid(err)
	}

	at := now.UTC()
	c.Status = model.ChallengeCompleted
	c.CompletedBy = actor
	c.CompletedAt = &at
	stored := m
	c.Result = &stored
	result := apply(list, i, c)
	result.Match = &m
	return result
}

// CombinedRating validates a lineup for a team and returns its combined
// rating: the player's rating in singles, the pair's sum otherwise.
func CombinedRating(teamID model.ID, matchType model.MatchType, level float64, ids []model.ID, players map[model.ID]model.Player) (float64, error) {
	if want := matchType.PlayersPerSide(); len(ids) != want {
		return 0, model.Invalid("players", "%s needs %d player(s), got %d", matchType, want, len(ids))
	}
	var combined float64
	genders := make(map[model.Gender]int)
	seen := make(map[model.ID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return 0, model.Invalid("players", "player %s listed twice", id)
		}
		seen[id] = struct{}{}
		p, ok := players[id]
		if !ok {
			return 0, model.Invalid("players", "unknown player %s", id)
		}
		if p.TeamID != teamID {
			return 0, model.Invalid("players", "player %s is not on team %s", id, teamID)
		}
		if !p.IsActive() {
			return 0, model.Invalid("players", "player %s is not active", id)
		}
		genders[p.Gender]++
		combined += p.Rating()
	}
	if matchType == model.MatchMixedDoubles && (genders[model.GenderMale] != 1 || genders[model.GenderFemale] != 1) {
		return 0, model.Invalid("players", "mixed doubles needs one man and one woman")
	}
	if combined > level+ratingEpsilon {
		return 0, model.Invalid("players", "combined NTRP %.2f exceeds level %.1f", combined, level)
	}
	return combined, nil
}
