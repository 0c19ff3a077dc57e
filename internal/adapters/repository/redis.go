package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

const (
	backendRedis = "redis"
	fieldData    = "data"
	fieldVersion = "version"
)

// RedisStore keeps each document in a hash {data, version}. Guarded writes use
// WATCH/MULTI so a concurrent writer aborts the transaction.
type RedisStore struct {
	client redis.UniversalClient
	opts   options
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...Option) *RedisStore {
	return &RedisStore{client: client, opts: newOptions("store.redis", opts)}
}

// OpenRedis dials addr and verifies the connection.
func OpenRedis(ctx context.Context, addr, password string, db, poolSize int, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewRedisStore(client, opts...), nil
}

// Backend implements Store.
func (s *RedisStore) Backend() string { return backendRedis }

// Close implements Store.
func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) key(k string) string { return s.opts.prefix + k }

func readDoc(ctx context.Context, c redis.Cmdable, key string) (data []byte, version string, exists bool, err error) {
	vals, err := c.HMGet(ctx, key, fieldData, fieldVersion).Result()
	if err != nil {
		return nil, "", false, err
	}
	d, okData := vals[0].(string)
	v, _ := vals[1].(string)
	if !okData {
		return nil, "", false, nil
	}
	return []byte(d), v, true, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (Document, error) {
	if key == "" {
		return Document{}, ErrEmptyKey
	}
	start := time.Now()
	data, version, ok, err := readDoc(ctx, s.client, s.key(key))
	switch {
	case err != nil:
		metrics.RecordStoreOperation(backendRedis, "get", metrics.OutcomeError, time.Since(start))
		return Document{}, fmt.Errorf("read %s: %w", key, err)
	case !ok:
		metrics.RecordStoreOperation(backendRedis, "get", metrics.OutcomeNotFound, time.Since(start))
		return Document{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	metrics.RecordStoreOperation(backendRedis, "get", metrics.OutcomeOK, time.Since(start))
	return Document{Data: data, UpdatedAt: version}, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, data []byte, expectedVersion string) (SaveResult, error) {
	if err := checkWrite(key, data); err != nil {
		return SaveResult{}, err
	}
	start := time.Now()
	rk := s.key(key)

	var result SaveResult
	for attempt := 0; attempt < s.opts.maxRetries; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			_, current, exists, err := readDoc(ctx, tx, rk)
			if err != nil {
				return err
			}
			if expectedVersion != "" && (!exists || !sameVersion(expectedVersion, current)) {
				result = conflictResult(key, current)
				return nil
			}
			version := nextVersion(current, s.opts.now())
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.HSet(ctx, rk, fieldData, string(data), fieldVersion, version)
				return nil
			})
			if err != nil {
				return err
			}
			result = SaveResult{Success: true, Version: version}
			return nil
		}, rk)
		if errors.Is(err, redis.TxFailedErr) {
			metrics.RecordTransactRetry(backendRedis)
			continue
		}
		if err != nil {
			metrics.RecordStoreOperation(backendRedis, "set", metrics.OutcomeError, time.Since(start))
			return SaveResult{}, fmt.Errorf("write %s: %w", key, err)
		}
		outcome := metrics.OutcomeOK
		if result.Conflict {
			outcome = metrics.OutcomeConflict
			s.opts.logger.Debug(ctx, "version conflict",
				logger.String("key", key),
				logger.String("expected", expectedVersion),
				logger.String("current", result.CurrentVersion))
		}
		metrics.RecordStoreOperation(backendRedis, "set", outcome, time.Since(start))
		return result, nil
	}
	metrics.RecordStoreOperation(backendRedis, "set", metrics.OutcomeConflict, time.Since(start))
	return SaveResult{}, fmt.Errorf("%s: %w", key, ErrTooManyRetries)
}

// Transact implements Store.
func (s *RedisStore) Transact(ctx context.Context, key string, fn TxFunc) (Document, error) {
	if key == "" {
		return Document{}, ErrEmptyKey
	}
	start := time.Now()
	rk := s.key(key)

	for attempt := 0; attempt < s.opts.maxRetries; attempt++ {
		var doc Document
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			current, version, _, err := readDoc(ctx, tx, rk)
			if err != nil {
				return err
			}
			next, err := fn(current)
			if err != nil {
				return err
			}
			if next == nil {
				doc = Document{Data: current, UpdatedAt: version}
				return nil
			}
			if err := checkWrite(key, next); err != nil {
				return err
			}
			newVersion := nextVersion(version, s.opts.now())
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.HSet(ctx, rk, fieldData, string(next), fieldVersion, newVersion)
				return nil
			})
			if err != nil {
				return err
			}
			doc = Document{Data: next, UpdatedAt: newVersion}
			return nil
		}, rk)
		if errors.Is(err, redis.TxFailedErr) {
			metrics.RecordTransactRetry(backendRedis)
			s.opts.logger.Debug(ctx, "transaction contended, retrying",
				logger.String("key", key), logger.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			metrics.RecordStoreOperation(backendRedis, "transact", metrics.OutcomeError, time.Since(start))
			return Document{}, err
		}
		metrics.RecordStoreOperation(backendRedis, "transact", metrics.OutcomeOK, time.Since(start))
		return doc, nil
	}
	metrics.RecordStoreOperation(backendRedis, "transact", metrics.OutcomeConflict, time.Since(start))
	return Document{}, fmt.Errorf("%s: %w", key, ErrTooManyRetries)
}
