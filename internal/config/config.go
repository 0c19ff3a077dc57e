// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/okian/ladder/internal/domain/model"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	HTTP       HTTPConfig       `koanf:"http"`
	Store      StoreConfig      `koanf:"store"`
	Tournament TournamentConfig `koanf:"tournament"`
	Activity   ActivityConfig   `koanf:"activity"`
	Metrics    MetricsConfig    `koanf:"metrics"`
}

// HTTPConfig tunes the API server.
type HTTPConfig struct {
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// CORSOrigins lists allowed browser origins; "*" allows any.
	CORSOrigins []string `koanf:"cors_origins"`
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Driver        string `koanf:"driver"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPoolSize int    `koanf:"redis_pool_size"`
	PostgresDSN   string `koanf:"postgres_dsn"`

	// AutoMigrate applies pending Postgres migrations at startup.
	AutoMigrate bool `koanf:"auto_migrate"`

	// MaxRetries bounds Transact retries under contention.
	MaxRetries int `koanf:"max_retries"`
}

// MonthConfig is one tournament month as written in config files.
type MonthConfig struct {
	Key     string `koanf:"key"`
	Name    string `koanf:"name"`
	EndDate string `koanf:"end_date"`
}

// TournamentConfig holds the season calendar and roster rules.
type TournamentConfig struct {
	Months        []MonthConfig `koanf:"months"`
	RosterLimit   int           `koanf:"roster_limit"`
	ImportLockTTL time.Duration `koanf:"import_lock_ttl"`
}

// ActivityConfig tunes the activity pipeline.
type ActivityConfig struct {
	// Buffer is the per-subscriber message buffer.
	Buffer int `koanf:"buffer"`

	// MaxEntries caps the stored activity log.
	MaxEntries int `koanf:"max_entries"`

	// DedupeSize sets how many message ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`
}

// MetricsConfig tunes runtime metric collection.
type MetricsConfig struct {
	SystemInterval time.Duration `koanf:"system_interval"`
}

func defaultMonths() []MonthConfig {
	return []MonthConfig{
		{Key: "2026-06", Name: "June", EndDate: "2026-06-30"},
		{Key: "2026-07", Name: "July", EndDate: "2026-07-31"},
		{Key: "2026-08", Name: "August", EndDate: "2026-08-31"},
	}
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":9080",
		HTTP: HTTPConfig{
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORSOrigins:  []string{"*"},
		},
		Store: StoreConfig{
			Driver:        DriverMemory,
			RedisAddr:     "localhost:6379",
			RedisPoolSize: 10,
			MaxRetries:    10,
		},
		Tournament: TournamentConfig{
			Months:        defaultMonths(),
			RosterLimit:   14,
			ImportLockTTL: 30 * time.Minute,
		},
		Activity: ActivityConfig{
			Buffer:     1024,
			MaxEntries: 500,
			DedupeSize: 10_000,
		},
		Metrics: MetricsConfig{
			SystemInterval: 15 * time.Second,
		},
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrInvalidAddr
	}
	drivers := []string{DriverMemory, DriverRedis, DriverPostgres}
	if !slices.Contains(drivers, c.Store.Driver) {
		return fmt.Errorf("%w: %q", ErrInvalidDriver, c.Store.Driver)
	}
	if c.Store.Driver == DriverPostgres && c.Store.PostgresDSN == "" {
		return fmt.Errorf("%w: postgres needs store.postgres_dsn", ErrInvalidDriver)
	}
	if c.Store.Driver == DriverRedis && c.Store.RedisAddr == "" {
		return fmt.Errorf("%w: redis needs store.redis_addr", ErrInvalidDriver)
	}
	if c.Tournament.RosterLimit <= 0 {
		return fmt.Errorf("%w: roster_limit must be positive", ErrInvalidConfig)
	}
	_, err := c.Season()
	return err
}

// Season converts the configured months into a validated season.
func (c *Config) Season() (model.Season, error) {
	if len(c.Tournament.Months) == 0 {
		return model.Season{}, ErrNoMonths
	}
	months := make([]model.Month, 0, len(c.Tournament.Months))
	for _, m := range c.Tournament.Months {
		months = append(months, model.Month{Key: m.Key, Name: m.Name, EndDate: m.EndDate})
	}
	season, err := model.NewSeason(months)
	if err != nil {
		return model.Season{}, fmt.Errorf("%w: %v", ErrInvalidMonth, err)
	}
	return season, nil
}
