package repository

import (
	"time"

	"github.com/okian/ladder/pkg/logger"
)

const (
	defaultMaxRetries  = 10
	defaultRedisPrefix = "ladder:doc:"
)

type options struct {
	maxRetries int
	now        func() time.Time
	logger     logger.Logger
	prefix     string
}

func newOptions(name string, opts []Option) options {
	o := options{
		maxRetries: defaultMaxRetries,
		now:        time.Now,
		logger:     logger.Get().Named(name),
		prefix:     defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithMaxRetries bounds how often Transact re-runs after contention.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

// WithClock sets the time source used for version tokens.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithKeyPrefix namespaces Redis keys.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}
