package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound       = errors.New("document not found")
	ErrEmptyKey       = errors.New("document key is empty")
	ErrInvalidPayload = errors.New("document payload is not valid JSON")
	ErrTooManyRetries = errors.New("transaction retries exhausted")
)
