package worker

import (
	"github.com/okian/ladder/internal/domain/dedupe"
	"github.com/okian/ladder/pkg/logger"
)

// Option applies a configuration option to the ActivityWorker.
type Option func(*ActivityWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *ActivityWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *ActivityWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithMaxEntries caps the activity log length.
func WithMaxEntries(n int) Option {
	return func(w *ActivityWorker) {
		if n > 0 {
			w.maxEntries = n
		}
	}
}

// WithDeduper replaces the default in-memory deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(w *ActivityWorker) {
		if d != nil {
			w.deduper = d
		}
	}
}

// WithBroadcaster sends each persisted entry to live clients.
func WithBroadcaster(b Broadcaster) Option {
	return func(w *ActivityWorker) {
		if b != nil {
			w.broadcaster = b
		}
	}
}
