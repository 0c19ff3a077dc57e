package model

import "time"

// BonusEntry is a manually entered, signed bonus adjustment.
type BonusEntry struct {
	ID          ID      `json:"id"`
	TeamID      ID      `json:"teamId"`
	Points      float64 `json:"points"`
	Description string  `json:"description,omitempty"`
	Month       string  `json:"month,omitempty"`
}

// Validate requires an id and a team.
func (b BonusEntry) Validate() error {
	if b.ID.IsZero() {
		return Invalid("bonus.id", "required")
	}
	if b.TeamID.IsZero() {
		return Invalid("bonus.teamId", "required for bonus %s", b.ID)
	}
	return nil
}

// PhotoStatus tracks director review of a submitted photo.
type PhotoStatus string

const (
	PhotoPending  PhotoStatus = "pending"
	PhotoApproved PhotoStatus = "approved"
	PhotoRejected PhotoStatus = "rejected"
)

// Photo is metadata of an uploaded uniform or practice photo.
type Photo struct {
	ID          ID          `json:"id"`
	TeamID      ID          `json:"teamId"`
	Month       string      `json:"month,omitempty"`
	Kind        string      `json:"kind"`
	URL         string      `json:"url"`
	Status      PhotoStatus `json:"status,omitempty"`
	SubmittedBy string      `json:"submittedBy,omitempty"`
	SubmittedAt *time.Time  `json:"submittedAt,omitempty"`
}

// Validate requires an id, a team and a URL.
func (p Photo) Validate() error {
	if p.ID.IsZero() || p.TeamID.IsZero() {
		return Invalid("photo", "id and teamId are required")
	}
	if p.URL == "" {
		return Invalid("photo.url", "required for photo %s", p.ID)
	}
	switch p.Status {
	case "", PhotoPending, PhotoApproved, PhotoRejected:
		return nil
	}
	return Invalid("photo.status", "unknown value %q", p.Status)
}

// Captain is the contact for a team.
type Captain struct {
	TeamID ID     `json:"teamId"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// Validate requires a team and a name.
func (c Captain) Validate() error {
	if c.TeamID.IsZero() || c.Name == "" {
		return Invalid("captain", "teamId and name are required")
	}
	return nil
}

// ImportLock is the advisory marker written during bulk imports.
type ImportLock struct {
	Holder    string    `json:"holder"`
	Operation string    `json:"operation"`
	StartTime time.Time `json:"startTime"`
}

// Stale reports whether the lock is older than ttl at now.
func (l ImportLock) Stale(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(l.StartTime) >= ttl
}

// ActivityEntry is one line of the activity log.
type ActivityEntry struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	Collection string    `json:"collection,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
