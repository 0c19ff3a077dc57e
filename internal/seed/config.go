// Package seed generates a fake league and drives it through the HTTP API:
// bulk upload under the import lock, a concurrent challenge race and a final
// check of the served leaderboard against a locally computed one.
package seed

import (
	"time"

	"github.com/okian/ladder/internal/domain/model"
)

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Actor          string        // Actor sent with every write
	Teams          int           // Number of teams to generate
	PlayersPerTeam int           // Players per team; the roster limit still applies
	MatchesPerTeam int           // Approximate matches each team plays
	Racers         int           // Concurrent accepts fired at one challenge
	Workers        int           // Number of concurrent upload workers
	Rate           float64       // Request rate limit per second; zero disables it
	Timeout        time.Duration // HTTP request timeout
	Seed           uint64        // Faker seed; equal seeds generate equal leagues
	Season         model.Season  // Season the server scores with
	RosterLimit    int           // Roster limit the server scores with
	OutputFile     string        // Where to write the generated league; empty skips it
	Verbose        bool          // Log every rejected request
}

// Stats holds run statistics.
type Stats struct {
	TeamsUploaded     int
	MatchesSubmitted  int
	MatchesSuccessful int
	MatchesFailed     int
	AcceptsWon        int
	AcceptsRejected   int
	StandingsVerified int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
