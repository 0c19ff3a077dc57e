package queue

import "github.com/okian/ladder/pkg/logger"

// Option applies a configuration option to the PubSubQueue.
type Option func(*PubSubQueue)

// WithTopic sets the topic entries are published on.
func WithTopic(topic string) Option {
	return func(q *PubSubQueue) {
		if topic != "" {
			q.topic = topic
		}
	}
}

// WithBufferSize sets the per-subscriber output buffer.
func WithBufferSize(size int) Option {
	return func(q *PubSubQueue) {
		if size > 0 {
			q.bufferSize = int64(size)
		}
	}
}

// WithLogger sets a custom logger for the queue.
func WithLogger(l logger.Logger) Option {
	return func(q *PubSubQueue) {
		if l != nil {
			q.logger = l
		}
	}
}
