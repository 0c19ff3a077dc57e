package repository

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

const backendMemory = "memory"

type memDoc struct {
	data    []byte
	version string
}

// MemoryStore keeps documents in process memory. Transact is optimistic: fn
// runs outside the lock and the write only lands if nobody else wrote first.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]memDoc
	opts options
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]memDoc),
		opts: newOptions("store.memory", opts),
	}
}

// Backend implements Store.
func (s *MemoryStore) Backend() string { return backendMemory }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (Document, error) {
	start := time.Now()
	s.mu.RLock()
	d, ok := s.docs[key]
	s.mu.RUnlock()
	if !ok {
		metrics.RecordStoreOperation(backendMemory, "get", metrics.OutcomeNotFound, time.Since(start))
		return Document{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	metrics.RecordStoreOperation(backendMemory, "get", metrics.OutcomeOK, time.Since(start))
	return Document{Data: bytes.Clone(d.data), UpdatedAt: d.version}, nil
}

// Set implements Store.
func (s *MemoryStore) Set(ctx context.Context, key string, data []byte, expectedVersion string) (SaveResult, error) {
	if err := checkWrite(key, data); err != nil {
		return SaveResult{}, err
	}
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.docs[key]
	if expectedVersion != "" && (!exists || !sameVersion(expectedVersion, cur.version)) {
		metrics.RecordStoreOperation(backendMemory, "set", metrics.OutcomeConflict, time.Since(start))
		s.opts.logger.Debug(ctx, "version conflict",
			logger.String("key", key),
			logger.String("expected", expectedVersion),
			logger.String("current", cur.version))
		return conflictResult(key, cur.version), nil
	}

	version := nextVersion(cur.version, s.opts.now())
	s.docs[key] = memDoc{data: bytes.Clone(data), version: version}
	metrics.RecordStoreOperation(backendMemory, "set", metrics.OutcomeOK, time.Since(start))
	return SaveResult{Success: true, Version: version}, nil
}

// Transact implements Store.
func (s *MemoryStore) Transact(ctx context.Context, key string, fn TxFunc) (Document, error) {
	if key == "" {
		return Document{}, ErrEmptyKey
	}
	start := time.Now()
	for attempt := 0; attempt < s.opts.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}
		if attempt > 0 {
			metrics.RecordTransactRetry(backendMemory)
		}

		s.mu.RLock()
		snap, exists := s.docs[key]
		s.mu.RUnlock()

		var current []byte
		if exists {
			current = bytes.Clone(snap.data)
		}
		next, err := fn(current)
		if err != nil {
			metrics.RecordStoreOperation(backendMemory, "transact", metrics.OutcomeError, time.Since(start))
			return Document{}, err
		}
		if next == nil {
			metrics.RecordStoreOperation(backendMemory, "transact", metrics.OutcomeOK, time.Since(start))
			return Document{Data: current, UpdatedAt: snap.version}, nil
		}
		if err := checkWrite(key, next); err != nil {
			return Document{}, err
		}

		s.mu.Lock()
		now, stillExists := s.docs[key]
		if stillExists == exists && now.version == snap.version {
			version := nextVersion(snap.version, s.opts.now())
			s.docs[key] = memDoc{data: bytes.Clone(next), version: version}
			s.mu.Unlock()
			metrics.RecordStoreOperation(backendMemory, "transact", metrics.OutcomeOK, time.Since(start))
			return Document{Data: next, UpdatedAt: version}, nil
		}
		s.mu.Unlock()
		s.opts.logger.Debug(ctx, "transaction contended, retrying",
			logger.String("key", key), logger.Int("attempt", attempt+1))
	}
	metrics.RecordStoreOperation(backendMemory, "transact", metrics.OutcomeConflict, time.Since(start))
	return Document{}, fmt.Errorf("%s: %w", key, ErrTooManyRetries)
}
