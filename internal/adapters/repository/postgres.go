package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

const backendPostgres = "postgres"

type documentRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	Key       string    `bun:"key,pk"`
	Data      string    `bun:"data,type:jsonb,notnull"`
	Version   string    `bun:"version,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// PostgresStore keeps documents in a single table. Each write runs in its own
// transaction holding an advisory lock on the key, so writers on the same key
// are serialized and readers never block.
type PostgresStore struct {
	db   *bun.DB
	opts options
}

// NewPostgresStore wraps an existing bun database.
func NewPostgresStore(db *bun.DB, opts ...Option) *PostgresStore {
	return &PostgresStore{db: db, opts: newOptions("store.postgres", opts)}
}

// OpenPostgres connects with pgdriver and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db, opts...), nil
}

// DB exposes the underlying handle for migrations.
func (s *PostgresStore) DB() *bun.DB { return s.db }

// Backend implements Store.
func (s *PostgresStore) Backend() string { return backendPostgres }

// Close implements Store.
func (s *PostgresStore) Close() error { return s.db.Close() }

func selectRow(ctx context.Context, db bun.IDB, key string) (documentRow, bool, error) {
	var row documentRow
	err := db.NewSelect().Model(&row).Where("key = ?", key).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return documentRow{}, false, nil
	}
	if err != nil {
		return documentRow{}, false, err
	}
	return row, true, nil
}

func upsertRow(ctx context.Context, tx bun.Tx, row *documentRow) error {
	_, err := tx.NewInsert().
		Model(row).
		On("CONFLICT (key) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("version = EXCLUDED.version").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func lockKey(ctx context.Context, tx bun.Tx, key string) error {
	_, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext(?))", key)
	return err
}

// retryable reports serialization failures and deadlocks.
func retryable(err error) bool {
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Field('C') {
	case "40001", "40P01":
		return true
	}
	return false
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, key string) (Document, error) {
	if key == "" {
		return Document{}, ErrEmptyKey
	}
	start := time.Now()
	row, ok, err := selectRow(ctx, s.db, key)
	switch {
	case err != nil:
		metrics.RecordStoreOperation(backendPostgres, "get", metrics.OutcomeError, time.Since(start))
		return Document{}, fmt.Errorf("read %s: %w", key, err)
	case !ok:
		metrics.RecordStoreOperation(backendPostgres, "get", metrics.OutcomeNotFound, time.Since(start))
		return Document{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	metrics.RecordStoreOperation(backendPostgres, "get", metrics.OutcomeOK, time.Since(start))
	return Document{Data: []byte(row.Data), UpdatedAt: row.Version}, nil
}

// Set implements Store.
func (s *PostgresStore) Set(ctx context.Context, key string, data []byte, expectedVersion string) (SaveResult, error) {
	if err := checkWrite(key, data); err != nil {
		return SaveResult{}, err
	}
	start := time.Now()

	var result SaveResult
	err := s.withRetry(ctx, key, func(ctx context.Context, tx bun.Tx) error {
		cur, exists, err := selectRow(ctx, &tx, key)
		if err != nil {
			return err
		}
		if expectedVersion != "" && (!exists || !sameVersion(expectedVersion, cur.Version)) {
			result = conflictResult(key, cur.Version)
			return nil
		}
		now := s.opts.now()
		row := documentRow{Key: key, Data: string(data), Version: nextVersion(cur.Version, now), UpdatedAt: now.UTC()}
		if err := upsertRow(ctx, tx, &row); err != nil {
			return err
		}
		result = SaveResult{Success: true, Version: row.Version}
		return nil
	})
	if err != nil {
		metrics.RecordStoreOperation(backendPostgres, "set", metrics.OutcomeError, time.Since(start))
		return SaveResult{}, err
	}
	outcome := metrics.OutcomeOK
	if result.Conflict {
		outcome = metrics.OutcomeConflict
		s.opts.logger.Debug(ctx, "version conflict",
			logger.String("key", key),
			logger.String("expected", expectedVersion),
			logger.String("current", result.CurrentVersion))
	}
	metrics.RecordStoreOperation(backendPostgres, "set", outcome, time.Since(start))
	return result, nil
}

// Transact implements Store.
func (s *PostgresStore) Transact(ctx context.Context, key string, fn TxFunc) (Document, error) {
	if key == "" {
		return Document{}, ErrEmptyKey
	}
	start := time.Now()

	var doc Document
	err := s.withRetry(ctx, key, func(ctx context.Context, tx bun.Tx) error {
		cur, exists, err := selectRow(ctx, &tx, key)
		if err != nil {
			return err
		}
		var current []byte
		if exists {
			current = []byte(cur.Data)
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			doc = Document{Data: current, UpdatedAt: cur.Version}
			return nil
		}
		if err := checkWrite(key, next); err != nil {
			return err
		}
		now := s.opts.now()
		row := documentRow{Key: key, Data: string(next), Version: nextVersion(cur.Version, now), UpdatedAt: now.UTC()}
		if err := upsertRow(ctx, tx, &row); err != nil {
			return err
		}
		doc = Document{Data: next, UpdatedAt: row.Version}
		return nil
	})
	if err != nil {
		metrics.RecordStoreOperation(backendPostgres, "transact", metrics.OutcomeError, time.Since(start))
		return Document{}, err
	}
	metrics.RecordStoreOperation(backendPostgres, "transact", metrics.OutcomeOK, time.Since(start))
	return doc, nil
}

func (s *PostgresStore) withRetry(ctx context.Context, key string, fn func(context.Context, bun.Tx) error) error {
	for attempt := 0; attempt < s.opts.maxRetries; attempt++ {
		err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if err := lockKey(ctx, tx, key); err != nil {
				return err
			}
			return fn(ctx, tx)
		})
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		metrics.RecordTransactRetry(backendPostgres)
		s.opts.logger.Warn(ctx, "postgres transaction retry",
			logger.String("key", key), logger.Int("attempt", attempt+1), logger.Error(err))
	}
	return fmt.Errorf("%s: %w", key, ErrTooManyRetries)
}
