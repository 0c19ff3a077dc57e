package service

import (
	"context"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

// logActivity publishes an entry without waiting for it to be stored. It is
// a no-op until Start.
func (s *Service) logActivity(ctx context.Context, sess *Session, action string, col model.Collection, details string) {
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return
	}
	entry := model.ActivityEntry{
		Actor:      sess.Actor,
		Action:     action,
		Collection: string(col),
		Details:    details,
		Timestamp:  sess.Now(),
	}
	if !q.Publish(ctx, entry) {
		s.logger.Warn(ctx, "activity entry dropped",
			logger.String("action", action),
			logger.String("actor", sess.Actor),
		)
	}
}

// Activity returns up to limit of the newest activity entries. A limit of
// zero or less returns all of them.
func (s *Service) Activity(ctx context.Context, limit int) ([]model.ActivityEntry, error) {
	ctx, span := s.span(ctx, "Activity")
	defer span.End()

	entries, _, err := read[[]model.ActivityEntry](ctx, s.store, model.CollectionActivity)
	if err != nil {
		return nil, fail(span, err)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
