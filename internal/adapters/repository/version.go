package repository

import (
	"encoding/json"
	"fmt"
	"time"
)

// nextVersion returns a UTC RFC3339Nano token later than prev.
func nextVersion(prev string, now time.Time) string {
	next := now.UTC()
	if p, err := time.Parse(time.RFC3339Nano, prev); err == nil && !next.After(p) {
		next = p.Add(time.Nanosecond).UTC()
	}
	return next.Format(time.RFC3339Nano)
}

// sameVersion compares tokens as instants when both parse, else as strings.
func sameVersion(a, b string) bool {
	if a == b {
		return true
	}
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA != nil || errB != nil {
		return false
	}
	return ta.Equal(tb)
}

func conflictResult(key, current string) SaveResult {
	msg := fmt.Sprintf("%s was modified by someone else (version %s); reload before saving", key, current)
	if current == "" {
		msg = fmt.Sprintf("%s no longer exists; reload before saving", key)
	}
	return SaveResult{Conflict: true, CurrentVersion: current, Message: msg}
}

func checkWrite(key string, data []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	if !json.Valid(data) {
		return fmt.Errorf("%s: %w", key, ErrInvalidPayload)
	}
	return nil
}
