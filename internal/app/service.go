// Package service implements the tournament operations the HTTP API exposes:
// guarded document saves, challenge transitions, match edits, the derived
// leaderboard and the advisory import lock.
//
// Every write goes through the versioned store. Guarded saves fail with a
// structured conflict instead of retrying; challenge and match edits run as
// store transactions and re-validate inside them.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	eventqueue "github.com/okian/ladder/internal/adapters/mq/queue"
	"github.com/okian/ladder/internal/adapters/mq/worker"
	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/dedupe"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/ranking"
	"github.com/okian/ladder/internal/domain/scoring"
	"github.com/okian/ladder/pkg/logger"
)

const (
	tracerName      = "github.com/okian/ladder/internal/app"
	shutdownTimeout = 5 * time.Second
)

// Notifier receives live events after successful writes.
type Notifier interface {
	Broadcast(event string, payload any)
}

// Service implements the API dependencies for the tournament tracker.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	engine  *scoring.Engine
	builder *ranking.Builder
	queue   *eventqueue.PubSubQueue
	worker  *worker.ActivityWorker
	notify  Notifier
	flights singleflight.Group

	// Configuration
	season         model.Season
	rosterLimit    int
	importLockTTL  time.Duration
	activityBuffer int
	maxEntries     int
	dedupeSize     int

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc
	stats     *counters

	// Logging
	logger logger.Logger
	tracer trace.Tracer
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSeason sets the tournament calendar used for scoring.
func WithSeason(season model.Season) Option {
	return func(s *Service) {
		s.season = season
	}
}

// WithRosterLimit caps active players per team.
func WithRosterLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.rosterLimit = n
		}
	}
}

// WithImportLockTTL sets when another holder's import lock counts as stale.
func WithImportLockTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.importLockTTL = ttl
		}
	}
}

// WithActivity tunes the activity pipeline started by Start.
func WithActivity(buffer, maxEntries, dedupeSize int) Option {
	return func(s *Service) {
		if buffer > 0 {
			s.activityBuffer = buffer
		}
		if maxEntries > 0 {
			s.maxEntries = maxEntries
		}
		if dedupeSize > 0 {
			s.dedupeSize = dedupeSize
		}
	}
}

// WithNotifier sends live events to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notify = n
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:          store,
		rosterLimit:    14,
		importLockTTL:  30 * time.Minute,
		activityBuffer: 1024,
		maxEntries:     500,
		dedupeSize:     10_000,
		stats:          newCounters(),
		tracer:         otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.engine = scoring.New(scoring.WithSeason(s.season), scoring.WithRosterLimit(s.rosterLimit))
	s.builder = ranking.NewBuilder(s.engine)
	return s
}

// Start launches the activity pipeline. Without it, activity is not recorded
// but every operation still works.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	q := eventqueue.NewPubSubQueue(
		eventqueue.WithBufferSize(s.activityBuffer),
		eventqueue.WithLogger(s.logger.Named("queue")),
	)
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	msgs, err := q.Subscribe(runCtx)
	if err != nil {
		cancel()
		_ = q.Close()
		return fmt.Errorf("start activity pipeline: %w", err)
	}

	opts := []worker.Option{
		worker.WithName("activity"),
		worker.WithMaxEntries(s.maxEntries),
		worker.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))),
	}
	if s.notify != nil {
		opts = append(opts, worker.WithBroadcaster(s.notify))
	}
	w := worker.NewActivityWorker(worker.Subscribed(msgs), s.store, opts...)
	go w.Run(runCtx)

	s.queue, s.worker, s.cancel = q, w, cancel
	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "tournament service started",
		logger.String("store", s.store.Backend()),
		logger.Int("months", len(s.season.Months)),
		logger.Int("roster_limit", s.rosterLimit),
	)
	return nil
}

// Stop shuts the activity pipeline down. The store is left open.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.queue.Close(); err != nil {
		s.logger.Warn(ctx, "close activity queue", logger.Error(err))
	}
	s.cancel()
	if err := s.worker.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "activity worker shutdown", logger.Error(err))
	}

	s.queue, s.worker, s.cancel = nil, nil, nil
	s.started = false
	s.logger.Info(ctx, "tournament service stopped")
}

// Season returns the configured calendar.
func (s *Service) Season() model.Season { return s.season }

// Backend names the store implementation.
func (s *Service) Backend() string { return s.store.Backend() }

// span starts a trace span for an operation.
func (s *Service) span(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "service."+name, opts...)
}

// fail records err on span and returns it.
func fail(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
