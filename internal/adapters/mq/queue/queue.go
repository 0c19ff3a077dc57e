// Package queue carries activity entries from request handlers to the
// activity worker over an in-process watermill pub/sub.
//
// Publishing never blocks the operation that produced the entry: a failed
// publish is logged and counted, and the operation's own result stands.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

const (
	defaultTopic      = "activity"
	defaultBufferSize = 1024

	metaAction     = "action"
	metaCollection = "collection"
)

// Queue publishes activity entries and hands them to subscribers.
type Queue interface {
	// Publish sends e without waiting for a consumer. It returns false when
	// the entry was dropped.
	Publish(ctx context.Context, e model.ActivityEntry) bool

	// Subscribe returns the message stream for the activity topic. The channel
	// closes when ctx is done or the queue is closed.
	Subscribe(ctx context.Context) (<-chan *message.Message, error)

	Close() error
	IsClosed() bool
}

// PubSubQueue implements Queue on a watermill GoChannel.
type PubSubQueue struct {
	pubsub     *gochannel.GoChannel
	topic      string
	bufferSize int64

	mu     sync.RWMutex
	closed bool

	logger logger.Logger
}

// NewPubSubQueue creates a queue with configuration options.
func NewPubSubQueue(opts ...Option) *PubSubQueue {
	q := &PubSubQueue{
		topic:      defaultTopic,
		bufferSize: defaultBufferSize,
		logger:     logger.Get().Named("queue"),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.pubsub = gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: q.bufferSize,
	}, watermill.NewSlogLogger(logger.Slog()))
	return q
}

// Topic returns the topic entries are published on.
func (q *PubSubQueue) Topic() string { return q.topic }

// Publish implements Queue.
func (q *PubSubQueue) Publish(ctx context.Context, e model.ActivityEntry) bool { //nolint:gocritic // entries are small and copied onto the wire anyway
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordActivityDropped("closed")
		return false
	}
	if e.ID == "" {
		e.ID = watermill.NewUUID()
	}

	payload, err := json.Marshal(e)
	if err != nil {
		metrics.RecordActivityDropped("encode")
		q.logger.Error(ctx, "encode activity entry", logger.String("id", e.ID), logger.Error(err))
		return false
	}

	msg := message.NewMessage(e.ID, payload)
	msg.Metadata.Set(metaAction, e.Action)
	msg.Metadata.Set(metaCollection, e.Collection)

	if err := q.pubsub.Publish(q.topic, msg); err != nil {
		metrics.RecordActivityDropped("publish")
		q.logger.Warn(ctx, "publish activity entry", logger.String("id", e.ID), logger.Error(err))
		return false
	}
	metrics.RecordActivityPublished()
	return true
}

// Subscribe implements Queue.
func (q *PubSubQueue) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	msgs, err := q.pubsub.Subscribe(ctx, q.topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", q.topic, err)
	}
	return msgs, nil
}

// Close stops the pub/sub. Subscriber channels are closed.
func (q *PubSubQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	return q.pubsub.Close()
}

// IsClosed returns true if the queue has been closed.
func (q *PubSubQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Decode reads an activity entry back from a message. The message UUID wins
// over a missing entry id.
func Decode(msg *message.Message) (model.ActivityEntry, error) {
	var e model.ActivityEntry
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return model.ActivityEntry{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if e.ID == "" {
		e.ID = msg.UUID
	}
	return e, nil
}
