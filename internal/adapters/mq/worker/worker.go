// Package worker applies activity messages to the activity log document and
// fans them out to live clients.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/okian/ladder/internal/adapters/mq/queue"
	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/dedupe"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

const (
	defaultMaxEntries = 500
	persistTimeout    = 5 * time.Second

	// EventActivity is the live event name for a persisted entry.
	EventActivity = "activity"
)

// Subscriber yields the activity message stream.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan *message.Message, error)
}

// Subscribed adapts a subscription made up front, so nothing published
// before Run starts is lost.
type Subscribed <-chan *message.Message

// Subscribe implements Subscriber.
func (s Subscribed) Subscribe(context.Context) (<-chan *message.Message, error) { return s, nil }

// Appender is the part of the store the worker writes through.
type Appender interface {
	Transact(ctx context.Context, key string, fn repository.TxFunc) (repository.Document, error)
}

// Broadcaster pushes an event to connected clients.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// Worker consumes activity messages until stopped.
type Worker interface {
	// Run blocks until ctx is canceled, Shutdown is called, or the stream ends.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the in-flight message.
	Shutdown(ctx context.Context) error
}

// ActivityWorker implements Worker.
type ActivityWorker struct {
	sub         Subscriber
	store       Appender
	deduper     dedupe.Deduper
	broadcaster Broadcaster
	maxEntries  int
	name        string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewActivityWorker creates a worker with configuration options.
func NewActivityWorker(sub Subscriber, store Appender, opts ...Option) *ActivityWorker {
	w := &ActivityWorker{
		sub:        sub,
		store:      store,
		maxEntries: defaultMaxEntries,
		name:       "worker",
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.deduper == nil {
		w.deduper = dedupe.NewInMemoryDeduper()
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run implements Worker.
func (w *ActivityWorker) Run(ctx context.Context) {
	defer close(w.done)

	msgs, err := w.sub.Subscribe(ctx)
	if err != nil {
		w.logger.Error(ctx, "subscribe failed", logger.Error(err))
		return
	}
	w.logger.Info(ctx, "activity worker started", logger.Int("max_entries", w.maxEntries))

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if err := w.process(ctx, msg); err != nil {
				w.logger.Error(ctx, "error processing activity", logger.String("uuid", msg.UUID), logger.Error(err))
			}
			msg.Ack()
		}
	}
}

// Shutdown implements Worker.
func (w *ActivityWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process applies one message. Failures are reported but the message is
// still acknowledged: the activity log is best effort.
func (w *ActivityWorker) process(ctx context.Context, msg *message.Message) error {
	if w.deduper.SeenAndRecord(ctx, msg.UUID) {
		return nil
	}

	entry, err := queue.Decode(msg)
	if err != nil {
		metrics.RecordActivityDropped("decode")
		return err
	}

	pctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if _, err := w.store.Transact(pctx, model.CollectionActivity.Key(), Append(entry, w.maxEntries)); err != nil {
		w.deduper.Unrecord(ctx, msg.UUID)
		metrics.RecordActivityDropped("persist")
		return fmt.Errorf("append activity %s: %w", entry.ID, err)
	}
	metrics.RecordActivityPersisted()

	if w.broadcaster != nil {
		w.broadcaster.Broadcast(EventActivity, entry)
	}
	return nil
}

// Append returns a transaction that inserts e into the activity log, newest
// first, keeping at most maxEntries. An entry whose id is already present is
// skipped.
func Append(e model.ActivityEntry, maxEntries int) repository.TxFunc { //nolint:gocritic // captured by value on purpose
	return func(current []byte) ([]byte, error) {
		var entries []model.ActivityEntry
		if current != nil {
			if err := json.Unmarshal(current, &entries); err != nil {
				return nil, fmt.Errorf("decode activity log: %w", err)
			}
		}
		for i := range entries {
			if entries[i].ID == e.ID {
				return nil, nil
			}
		}

		entries = append(entries, e)
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Timestamp.After(entries[j].Timestamp)
		})
		if maxEntries > 0 && len(entries) > maxEntries {
			entries = entries[:maxEntries]
		}
		return json.Marshal(entries)
	}
}
