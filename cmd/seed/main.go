package main

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/ladder/internal/config"
	"github.com/okian/ladder/internal/seed"
)

// Default configuration constants.
const (
	defaultTeams          = 8
	defaultPlayersPerTeam = 10
	defaultMatchesPerTeam = 6
	defaultRacers         = 8
	defaultWorkers        = 2 // multiplier for runtime.NumCPU()
	defaultTimeout        = 30 * time.Second
	defaultRunTimeout     = 10 * time.Minute
)

func main() {
	app := &cli.App{
		Name:  "ladder-seed",
		Usage: "seed a ladder service with a fake league and verify its leaderboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:9080", Usage: "Base URL of the service"},
			&cli.StringFlag{Name: "actor", Value: "seed", Usage: "Actor sent with every write"},
			&cli.IntFlag{Name: "teams", Value: defaultTeams, Usage: "Number of teams to generate"},
			&cli.IntFlag{Name: "players", Value: defaultPlayersPerTeam, Usage: "Players per team"},
			&cli.IntFlag{Name: "matches", Value: defaultMatchesPerTeam, Usage: "Approximate matches per team"},
			&cli.IntFlag{Name: "racers", Value: defaultRacers, Usage: "Captains racing to accept one challenge; 0 skips the race"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU() * defaultWorkers, Usage: "Number of concurrent upload workers"},
			&cli.Float64Flag{Name: "rate", Usage: "Requests per second; 0 disables limiting"},
			&cli.DurationFlag{Name: "timeout", Value: defaultTimeout, Usage: "HTTP request timeout"},
			&cli.Uint64Flag{Name: "seed", Value: uint64(time.Now().UnixNano()), Usage: "Faker seed; equal seeds generate equal leagues"},
			&cli.StringFlag{Name: "output", Usage: "Write the generated league to this JSON file"},
			&cli.StringFlag{Name: "log", Usage: "Also log to this file"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Log level"},
			&cli.BoolFlag{Name: "verbose", Usage: "Log every rejected request"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		os.Stderr.WriteString("seed failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if err := seed.SetupLogging(c.String("log"), c.String("log-level")); err != nil {
		return err
	}

	// The season and roster limit come from the same configuration the
	// server loads, so local scoring matches the served leaderboard.
	cfg, err := config.Load(c.Context)
	if err != nil {
		return err
	}
	season, err := cfg.Season()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, defaultRunTimeout)
	defer cancel()

	_, err = seed.Run(ctx, &seed.Config{
		BaseURL:        c.String("url"),
		Actor:          c.String("actor"),
		Teams:          c.Int("teams"),
		PlayersPerTeam: c.Int("players"),
		MatchesPerTeam: c.Int("matches"),
		Racers:         c.Int("racers"),
		Workers:        c.Int("workers"),
		Rate:           c.Float64("rate"),
		Timeout:        c.Duration("timeout"),
		Seed:           c.Uint64("seed"),
		Season:         season,
		RosterLimit:    cfg.Tournament.RosterLimit,
		OutputFile:     c.String("output"),
		Verbose:        c.Bool("verbose"),
	})
	return err
}
