package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0640
)

// Run seeds the service and verifies what it serves.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("seed")

	log.Info(ctx, "starting league seed",
		logger.String("baseURL", config.BaseURL),
		logger.Int("teams", config.Teams),
		logger.Int("playersPerTeam", config.PlayersPerTeam),
		logger.Int("workers", config.Workers),
		logger.Float64("rate", config.Rate),
		logger.Any("seed", config.Seed))

	client := NewClient(config.BaseURL, config.Actor, config.Timeout, config.Rate)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, err
	}

	// Step 2: Generate the league
	league := NewGenerator(config.Seed, config.Season).League(config.Teams, config.PlayersPerTeam, config.MatchesPerTeam)
	log.Info(ctx, "league generated",
		logger.Int("teams", len(league.Teams.Teams)),
		logger.Int("players", len(league.Teams.Players)),
		logger.Int("matches", len(league.Matches)),
		logger.Int("bonuses", len(league.Bonuses)))

	// Step 3: Upload under the import lock
	if err := upload(ctx, config, client, league, stats); err != nil {
		return stats, err
	}

	// Step 4: Race captains for one challenge
	if err := raceChallenge(ctx, config, client, league.Teams, stats); err != nil {
		return stats, err
	}

	// Step 5: Verify the served leaderboard
	if err := verifyLeaderboard(ctx, config, client, stats); err != nil {
		return stats, err
	}

	// Step 6: Save the league
	if config.OutputFile != "" {
		if err := saveLeague(config.OutputFile, league); err != nil {
			log.Warn(ctx, "failed to save league", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *Client) error {
	code, err := client.Do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, code)
	}
	return nil
}

type lockResult struct {
	Acquired bool              `json:"acquired"`
	Lock     *model.ImportLock `json:"lock"`
	Message  string            `json:"message"`
}

func upload(ctx context.Context, config *Config, client *Client, league League, stats *Stats) error {
	log := logger.Get().Named("seed")

	var lock lockResult
	if _, err := client.Do(ctx, http.MethodPost, "/api/v1/import-lock", map[string]string{"operation": "seed"}, &lock); err != nil {
		return err
	}
	if !lock.Acquired {
		// The lock is advisory; warn like the UI would and carry on.
		log.Warn(ctx, "another import is running", logger.String("message", lock.Message))
	}
	defer func() {
		if _, err := client.Do(context.WithoutCancel(ctx), http.MethodDelete, "/api/v1/import-lock", nil, nil); err != nil {
			log.Warn(ctx, "failed to release import lock", logger.Error(err))
		}
	}()

	if err := putDocument(ctx, client, model.CollectionTeams, league.Teams); err != nil {
		return err
	}
	stats.TeamsUploaded = len(league.Teams.Teams)
	if err := putDocument(ctx, client, model.CollectionBonuses, league.Bonuses); err != nil {
		return err
	}

	var ok, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, config.Workers))
	for _, m := range league.Matches {
		g.Go(func() error {
			code, err := client.Do(gctx, http.MethodPost, "/api/v1/matches", m, nil)
			if err != nil {
				return err
			}
			switch code {
			case http.StatusCreated, http.StatusConflict:
				ok.Add(1)
			default:
				failed.Add(1)
				if config.Verbose {
					log.Warn(gctx, "match rejected", logger.String("match", m.ID.String()), logger.Int("status", code))
				}
			}
			return nil
		})
	}
	err := g.Wait()
	stats.MatchesSubmitted = len(league.Matches)
	stats.MatchesSuccessful = int(ok.Load())
	stats.MatchesFailed = int(failed.Load())
	if err != nil {
		return fmt.Errorf("upload matches: %w", err)
	}
	if stats.MatchesFailed > 0 {
		return fmt.Errorf("%w: %d of %d matches", ErrUpload, stats.MatchesFailed, stats.MatchesSubmitted)
	}
	return nil
}

// putDocument replaces a collection, saving against the version it holds now.
func putDocument(ctx context.Context, client *Client, col model.Collection, data any) error {
	path := "/api/v1/documents/" + string(col)
	var current document
	code, err := client.Do(ctx, http.MethodGet, path, nil, &current)
	if err != nil {
		return err
	}
	if code != http.StatusOK && code != http.StatusNotFound {
		return fmt.Errorf("%w: %s status %d", ErrUpload, col, code)
	}

	body := map[string]any{"data": data}
	if code == http.StatusOK && current.UpdatedAt != "" {
		body["expectedVersion"] = current.UpdatedAt
	}
	code, err = client.Do(ctx, http.MethodPut, path, body, nil)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("%w: %s status %d", ErrUpload, col, code)
	}
	return nil
}

// saveLeague writes the generated league as indented JSON.
func saveLeague(filename string, league League) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(league, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal league: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write league: %w", err)
	}
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	logger.Get().Named("seed").Info(ctx, "final statistics",
		logger.Int("teamsUploaded", stats.TeamsUploaded),
		logger.Int("matchesSubmitted", stats.MatchesSubmitted),
		logger.Int("matchesSuccessful", stats.MatchesSuccessful),
		logger.Int("matchesFailed", stats.MatchesFailed),
		logger.Int("acceptsWon", stats.AcceptsWon),
		logger.Int("acceptsRejected", stats.AcceptsRejected),
		logger.Int("standingsVerified", stats.StandingsVerified),
		logger.Duration("duration", stats.Duration))
}
