package seed

import "errors"

// Sentinel kinds for run failures.
var (
	ErrUnhealthy = errors.New("service is not healthy")
	ErrUpload    = errors.New("upload rejected")
	ErrRace      = errors.New("challenge race broke exclusivity")
	ErrMismatch  = errors.New("served leaderboard differs from local ranking")
)
