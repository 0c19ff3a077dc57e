package model

import "time"

// ChallengeStatus is the lifecycle state of a challenge.
type ChallengeStatus string

const (
	ChallengeOpen      ChallengeStatus = "open"
	ChallengeAccepted  ChallengeStatus = "accepted"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeDeclined  ChallengeStatus = "declined"
)

// Challenge is one team's open invitation to play a line.
type Challenge struct {
	ID                ID              `json:"id"`
	ChallengerTeamID  ID              `json:"challengerTeamId"`
	ChallengedTeamID  ID              `json:"challengedTeamId,omitempty"`
	MatchType         MatchType       `json:"matchType"`
	ProposedDate      string          `json:"proposedDate"`
	ProposedLevel     float64         `json:"proposedLevel"`
	AcceptedDate      string          `json:"acceptedDate,omitempty"`
	AcceptedLevel     float64         `json:"acceptedLevel,omitempty"`
	ChallengerPlayers []ID            `json:"challengerPlayers"`
	ChallengedPlayers []ID            `json:"challengedPlayers,omitempty"`
	ChallengerNTRP    float64         `json:"challengerCombinedNTRP"`
	ChallengedNTRP    float64         `json:"challengedCombinedNTRP,omitempty"`
	Status            ChallengeStatus `json:"status"`
	MatchID           string          `json:"matchId,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	CreatedBy         string          `json:"createdBy,omitempty"`
	CreatedAt         *time.Time      `json:"createdAt,omitempty"`
	AcceptedBy        string          `json:"acceptedBy,omitempty"`
	AcceptedAt        *time.Time      `json:"acceptedAt,omitempty"`
	CompletedBy       string          `json:"completedBy,omitempty"`
	CompletedAt       *time.Time      `json:"completedAt,omitempty"`
	DeclinedBy        string          `json:"declinedBy,omitempty"`
	DeclinedAt        *time.Time      `json:"declinedAt,omitempty"`
	// Result is the match synthesized on completion, kept so the match can
	// still be appended if recording it failed.
	Result *Match `json:"result,omitempty"`
}

// Level is the accepted level once set, else the proposed one.
func (c Challenge) Level() float64 {
	if c.AcceptedLevel > 0 {
		return c.AcceptedLevel
	}
	return c.ProposedLevel
}

// Date is the accepted date once set, else the proposed one.
func (c Challenge) Date() string {
	if c.AcceptedDate != "" {
		return c.AcceptedDate
	}
	return c.ProposedDate
}
