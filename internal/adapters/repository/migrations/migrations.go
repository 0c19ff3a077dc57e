// Package migrations holds the Postgres schema for the document store.
package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations is the registered set, one file per step.
var Migrations = migrate.NewMigrations()

func init() {
	if err := Migrations.DiscoverCaller(); err != nil {
		panic(err)
	}
}

// Init creates the bun migration tables.
func Init(ctx context.Context, db *bun.DB) error {
	if err := migrate.NewMigrator(db, Migrations).Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	return nil
}

// Up creates the migration tables when missing and applies pending steps.
// It returns the name of the applied group, or "" when nothing ran.
func Up(ctx context.Context, db *bun.DB) (string, error) {
	m := migrate.NewMigrator(db, Migrations)
	if err := m.Init(ctx); err != nil {
		return "", fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Lock(ctx); err != nil {
		return "", fmt.Errorf("lock migrations: %w", err)
	}
	defer m.Unlock(ctx) //nolint:errcheck // unlock failure surfaces on next run

	group, err := m.Migrate(ctx)
	if err != nil {
		return "", fmt.Errorf("migrate: %w", err)
	}
	if group.IsZero() {
		return "", nil
	}
	return group.String(), nil
}

// Down rolls back the last applied group.
func Down(ctx context.Context, db *bun.DB) (string, error) {
	m := migrate.NewMigrator(db, Migrations)
	if err := m.Lock(ctx); err != nil {
		return "", fmt.Errorf("lock migrations: %w", err)
	}
	defer m.Unlock(ctx) //nolint:errcheck // unlock failure surfaces on next run

	group, err := m.Rollback(ctx)
	if err != nil {
		return "", fmt.Errorf("rollback: %w", err)
	}
	if group.IsZero() {
		return "", nil
	}
	return group.String(), nil
}

// Status lists every known migration and whether it has been applied.
func Status(ctx context.Context, db *bun.DB) ([]string, error) {
	m := migrate.NewMigrator(db, Migrations)
	if err := m.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	ms, err := m.MigrationsWithStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}
	out := make([]string, 0, len(ms))
	for _, mig := range ms {
		state := "pending"
		if mig.IsApplied() {
			state = "applied"
		}
		out = append(out, fmt.Sprintf("%s %s", mig.Name, state))
	}
	return out, nil
}
