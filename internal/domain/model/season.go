package model

import (
	"time"
)

const (
	monthKeyLayout = "2006-01"
	dateLayout     = "2006-01-02"
)

// Month is one configured tournament month.
type Month struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	EndDate string `json:"endDate"`
}

// Validate checks the key and end date formats.
func (m Month) Validate() error {
	if _, err := time.Parse(monthKeyLayout, m.Key); err != nil {
		return Invalid("month.key", "%q is not YYYY-MM", m.Key)
	}
	if _, err := time.Parse(dateLayout, m.EndDate); err != nil {
		return Invalid("month.endDate", "%q is not YYYY-MM-DD", m.EndDate)
	}
	return nil
}

// Ended reports whether asOf is on or after the day following EndDate (UTC).
func (m Month) Ended(asOf time.Time) bool {
	end, err := time.Parse(dateLayout, m.EndDate)
	if err != nil {
		return false
	}
	return !asOf.UTC().Before(end.AddDate(0, 0, 1))
}

// Season is the ordered list of tournament months; the last one is final.
type Season struct {
	Months []Month `json:"months"`
}

// NewSeason validates months and requires strictly increasing keys.
func NewSeason(months []Month) (Season, error) {
	if len(months) == 0 {
		return Season{}, Invalid("season", "at least one month is required")
	}
	for i, m := range months {
		if err := m.Validate(); err != nil {
			return Season{}, err
		}
		if i > 0 && m.Key <= months[i-1].Key {
			return Season{}, Invalid("season", "month %s is not after %s", m.Key, months[i-1].Key)
		}
	}
	out := make([]Month, len(months))
	copy(out, months)
	return Season{Months: out}, nil
}

// Final returns the last configured month.
func (s Season) Final() (Month, bool) {
	if len(s.Months) == 0 {
		return Month{}, false
	}
	return s.Months[len(s.Months)-1], true
}

// IsFinal reports whether key is the final month.
func (s Season) IsFinal(key string) bool {
	final, ok := s.Final()
	return ok && final.Key == key
}

// Month looks up a configured month by key.
func (s Season) Month(key string) (Month, bool) {
	for _, m := range s.Months {
		if m.Key == key {
			return m, true
		}
	}
	return Month{}, false
}

// Contains reports whether key is a configured month.
func (s Season) Contains(key string) bool {
	_, ok := s.Month(key)
	return ok
}

// MonthKeyOf extracts YYYY-MM from a YYYY-MM-DD or RFC3339 date, or returns
// "" when the date is malformed.
func MonthKeyOf(date string) string {
	if len(date) < len(dateLayout) {
		return ""
	}
	if _, err := time.Parse(dateLayout, date[:len(dateLayout)]); err != nil {
		return ""
	}
	return date[:len(monthKeyLayout)]
}
