package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/adapters/repository/migrations"
	"github.com/okian/ladder/internal/config"
	"github.com/okian/ladder/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "ladder-migrate",
		Usage: "manage the Postgres document store schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "Postgres DSN; defaults to store.postgres_dsn from the configuration",
				EnvVars: []string{"LADDER_STORE__POSTGRES_DSN"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: withDB(func(c *cli.Context, store *repository.PostgresStore) error {
					if err := migrations.Init(c.Context, store.DB()); err != nil {
						return err
					}
					fmt.Println("migration tables ready")
					return nil
				}),
			},
			{
				Name:  "migrate",
				Usage: "apply pending migrations",
				Action: withDB(func(c *cli.Context, store *repository.PostgresStore) error {
					group, err := migrations.Up(c.Context, store.DB())
					if err != nil {
						return err
					}
					if group == "" {
						fmt.Println("no new migrations to run")
						return nil
					}
					fmt.Printf("migrated to %s\n", group)
					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "roll back the last migration group",
				Action: withDB(func(c *cli.Context, store *repository.PostgresStore) error {
					group, err := migrations.Down(c.Context, store.DB())
					if err != nil {
						return err
					}
					if group == "" {
						fmt.Println("no groups to roll back")
						return nil
					}
					fmt.Printf("rolled back %s\n", group)
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "list migrations and whether they are applied",
				Action: withDB(func(c *cli.Context, store *repository.PostgresStore) error {
					lines, err := migrations.Status(c.Context, store.DB())
					if err != nil {
						return err
					}
					for _, line := range lines {
						fmt.Println(line)
					}
					return nil
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Stderr.WriteString("migrate failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// withDB opens the store for one command and closes it afterwards.
func withDB(fn func(*cli.Context, *repository.PostgresStore) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
			return err
		}
		dsn, err := resolveDSN(c.Context, c.String("dsn"))
		if err != nil {
			return err
		}
		store, err := repository.OpenPostgres(c.Context, dsn)
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(c, store)
	}
}

func resolveDSN(ctx context.Context, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return "", err
	}
	if cfg.Store.PostgresDSN == "" {
		return "", fmt.Errorf("no DSN: pass --dsn or set LADDER_STORE__POSTGRES_DSN")
	}
	return cfg.Store.PostgresDSN, nil
}
