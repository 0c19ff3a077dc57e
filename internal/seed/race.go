package seed

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

type challengeResult struct {
	Success          bool             `json:"success"`
	UpdatedChallenge *model.Challenge `json:"updatedChallenge"`
	CreatedMatch     *model.Match     `json:"createdMatch"`
	AlreadyAccepted  bool             `json:"alreadyAccepted"`
	Message          string           `json:"message"`
}

// raceChallenge opens a singles challenge between the first two teams and
// has Racers captains accept it at once. Exactly one may win. The winner's
// match is then scored so the leaderboard includes it.
func raceChallenge(ctx context.Context, config *Config, client *Client, blob model.TeamsBlob, stats *Stats) error {
	if config.Racers < 1 || len(blob.Teams) < 2 {
		return nil
	}
	log := logger.Get().Named("seed")
	home, away := blob.Teams[0].ID, blob.Teams[1].ID
	homeRoster, awayRoster := blob.Roster(home), blob.Roster(away)
	if len(homeRoster) == 0 || len(awayRoster) == 0 || len(config.Season.Months) == 0 {
		return nil
	}
	lvl := math.Ceil(math.Max(homeRoster[0].Rating(), awayRoster[0].Rating())*2) / 2

	var created challengeResult
	code, err := client.Do(ctx, http.MethodPost, "/api/v1/challenges", map[string]any{
		"challengerTeamId": home,
		"matchType":        model.MatchSingles,
		"proposedDate":     config.Season.Months[0].EndDate,
		"proposedLevel":    lvl,
		"players":          []model.ID{homeRoster[0].ID},
	}, &created)
	if err != nil {
		return err
	}
	if code != http.StatusCreated || created.UpdatedChallenge == nil {
		return fmt.Errorf("%w: create challenge status %d: %s", ErrUpload, code, created.Message)
	}
	id := created.UpdatedChallenge.ID

	var won, rejected atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < config.Racers; i++ {
		captain := client.As(fmt.Sprintf("captain-%02d", i+1))
		g.Go(func() error {
			var res challengeResult
			code, err := captain.Do(gctx, http.MethodPost, "/api/v1/challenges/"+id.String()+"/accept", map[string]any{
				"teamId":  away,
				"players": []model.ID{awayRoster[0].ID},
			}, &res)
			if err != nil {
				return err
			}
			switch {
			case code == http.StatusOK && res.Success:
				won.Add(1)
			case code == http.StatusConflict && res.AlreadyAccepted:
				rejected.Add(1)
			default:
				return fmt.Errorf("%w: unexpected accept status %d: %s", ErrRace, code, res.Message)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	stats.AcceptsWon, stats.AcceptsRejected = int(won.Load()), int(rejected.Load())
	if stats.AcceptsWon != 1 || stats.AcceptsRejected != config.Racers-1 {
		return fmt.Errorf("%w: %d accepted, %d rejected", ErrRace, stats.AcceptsWon, stats.AcceptsRejected)
	}

	var done challengeResult
	code, err = client.Do(ctx, http.MethodPost, "/api/v1/challenges/"+id.String()+"/result", map[string]any{
		"sets": []map[string]int{{"team1": 6, "team2": 4}, {"team1": 3, "team2": 6}, {"team1": 7, "team2": 5}},
	}, &done)
	if err != nil {
		return err
	}
	if code != http.StatusOK || done.CreatedMatch == nil {
		return fmt.Errorf("%w: result status %d: %s", ErrUpload, code, done.Message)
	}
	log.Info(ctx, "challenge race settled",
		logger.String("challenge", id.String()),
		logger.Int("racers", config.Racers),
		logger.String("match", done.CreatedMatch.ID.String()))
	return nil
}
