package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

// LockResult reports an import lock attempt. When Acquired is false, Lock is
// the fresh lock held by someone else.
type LockResult struct {
	Acquired bool              `json:"acquired"`
	Lock     *model.ImportLock `json:"lock,omitempty"`
	Message  string            `json:"message,omitempty"`
}

// ImportLock returns the current lock, or nil when none is held.
func (s *Service) ImportLock(ctx context.Context) (*model.ImportLock, error) {
	ctx, span := s.span(ctx, "ImportLock")
	defer span.End()

	lock, _, err := read[*model.ImportLock](ctx, s.store, model.CollectionImportLock)
	if err != nil {
		return nil, fail(span, err)
	}
	return lock, nil
}

// AcquireImportLock marks a bulk import by sess.Actor. It only warns: nothing
// else consults the lock, and a stale lock or the holder's own lock is taken
// over.
func (s *Service) AcquireImportLock(ctx context.Context, sess *Session, operation string) (LockResult, error) {
	ctx, span := s.span(ctx, "AcquireImportLock")
	defer span.End()
	span.SetAttributes(attribute.String("actor", sess.Actor), attribute.String("operation", operation))

	now := sess.Now()
	var res LockResult
	_, err := s.store.Transact(ctx, model.CollectionImportLock.Key(), func(current []byte) ([]byte, error) {
		held, err := decodeCurrent[*model.ImportLock](current)
		if err != nil {
			return nil, err
		}
		if held != nil && held.Holder != sess.Actor && !held.Stale(now, s.importLockTTL) {
			res = LockResult{
				Lock:    held,
				Message: fmt.Sprintf("%s is running %s since %s", held.Holder, held.Operation, held.StartTime.Format("15:04:05")),
			}
			return nil, nil
		}
		lock := &model.ImportLock{Holder: sess.Actor, Operation: operation, StartTime: now}
		res = LockResult{Acquired: true, Lock: lock}
		return json.Marshal(lock)
	})
	s.stats.transactions.Add(1)
	if err != nil {
		return LockResult{}, fail(span, err)
	}
	if !res.Acquired {
		s.logger.Warn(ctx, "import lock held by another user",
			logger.String("actor", sess.Actor),
			logger.String("holder", res.Lock.Holder),
		)
	}
	return res, nil
}

// ReleaseImportLock clears the lock when sess.Actor holds it. It reports
// whether anything was released.
func (s *Service) ReleaseImportLock(ctx context.Context, sess *Session) (bool, error) {
	ctx, span := s.span(ctx, "ReleaseImportLock")
	defer span.End()
	span.SetAttributes(attribute.String("actor", sess.Actor))

	var released bool
	_, err := s.store.Transact(ctx, model.CollectionImportLock.Key(), func(current []byte) ([]byte, error) {
		released = false
		held, err := decodeCurrent[*model.ImportLock](current)
		if err != nil || held == nil || held.Holder != sess.Actor {
			return nil, err
		}
		released = true
		return []byte("null"), nil
	})
	s.stats.transactions.Add(1)
	if err != nil {
		return false, fail(span, err)
	}
	return released, nil
}
