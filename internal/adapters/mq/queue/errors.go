package queue

import "errors"

// ErrMalformed marks a message whose payload is not an activity entry.
var ErrMalformed = errors.New("malformed activity message")
