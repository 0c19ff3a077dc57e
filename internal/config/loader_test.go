package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/ladder/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Store.Driver, convey.ShouldEqual, config.DriverMemory)
				convey.So(cfg.Tournament.RosterLimit, convey.ShouldEqual, 14)
				convey.So(cfg.Tournament.ImportLockTTL, convey.ShouldEqual, 30*time.Minute)
				convey.So(len(cfg.Tournament.Months), convey.ShouldEqual, 3)
				convey.So(cfg.HTTP.CORSOrigins, convey.ShouldResemble, []string{"*"})

				season, err := cfg.Season()
				convey.So(err, convey.ShouldBeNil)
				final, ok := season.Final()
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(final.Key, convey.ShouldEqual, "2026-08")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("LADDER_ADDR", ":8080")
			_ = os.Setenv("LADDER_STORE__DRIVER", "redis")
			_ = os.Setenv("LADDER_STORE__REDIS_ADDR", "cache:6379")
			_ = os.Setenv("LADDER_STORE__MAX_RETRIES", "25")
			_ = os.Setenv("LADDER_TOURNAMENT__IMPORT_LOCK_TTL", "5m")
			_ = os.Setenv("LADDER_HTTP__CORS_ORIGINS", "https://a.example, https://b.example")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Store.Driver, convey.ShouldEqual, config.DriverRedis)
				convey.So(cfg.Store.RedisAddr, convey.ShouldEqual, "cache:6379")
				convey.So(cfg.Store.MaxRetries, convey.ShouldEqual, 25)
				convey.So(cfg.Tournament.ImportLockTTL, convey.ShouldEqual, 5*time.Minute)
				convey.So(cfg.HTTP.CORSOrigins, convey.ShouldResemble, []string{"https://a.example", "https://b.example"})
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
store:
  driver: postgres
  postgres_dsn: "postgres://ladder@db/ladder?sslmode=disable"
tournament:
  roster_limit: 12
  months:
    - key: "2027-01"
      name: January
      end_date: "2027-01-31"
    - key: "2027-02"
      name: February
      end_date: "2027-02-28"
activity:
  max_entries: 50
`)
			_ = os.Setenv("LADDER_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should replace the default months entirely", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Store.Driver, convey.ShouldEqual, config.DriverPostgres)
				convey.So(cfg.Tournament.RosterLimit, convey.ShouldEqual, 12)
				convey.So(cfg.Tournament.Months, convey.ShouldResemble, []config.MonthConfig{
					{Key: "2027-01", Name: "January", EndDate: "2027-01-31"},
					{Key: "2027-02", Name: "February", EndDate: "2027-02-28"},
				})
				convey.So(cfg.Activity.MaxEntries, convey.ShouldEqual, 50)
				convey.So(cfg.Activity.DedupeSize, convey.ShouldEqual, 10_000)
			})

			convey.Convey("And env vars still win over the file", func() {
				_ = os.Setenv("LADDER_ADDR", ":7000")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7000")
			})
		})

		convey.Convey("When a .env file is present", func() {
			dotenv := createTempConfigFile(t, "LADDER_LOG_LEVEL=debug\nLADDER_ADDR=:6000\n")
			_ = os.Setenv("LADDER_DOTENV", dotenv)
			_ = os.Setenv("LADDER_ADDR", ":6001")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it fills gaps without overriding the real environment", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.Addr, convey.ShouldEqual, ":6001")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("LADDER_CONFIG", "/non/existent/file.yaml")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the address is empty", func() {
			_ = os.Setenv("LADDER_ADDR", "")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidAddr), convey.ShouldBeTrue)
		})

		convey.Convey("When the driver is unknown", func() {
			_ = os.Setenv("LADDER_STORE__DRIVER", "mongo")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidDriver), convey.ShouldBeTrue)
		})

		convey.Convey("When postgres has no DSN", func() {
			_ = os.Setenv("LADDER_STORE__DRIVER", "postgres")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidDriver), convey.ShouldBeTrue)
		})

		convey.Convey("When months are out of order", func() {
			tmpFile := createTempConfigFile(t, `
tournament:
  months:
    - {key: "2026-07", name: July, end_date: "2026-07-31"}
    - {key: "2026-06", name: June, end_date: "2026-06-30"}
`)
			_ = os.Setenv("LADDER_CONFIG", tmpFile)
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidMonth), convey.ShouldBeTrue)
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given default config", t, func() {
		cfg := config.New()
		convey.So(cfg.Validate(), convey.ShouldBeNil)

		convey.Convey("No months is rejected", func() {
			cfg.Tournament.Months = nil
			convey.So(errors.Is(cfg.Validate(), config.ErrNoMonths), convey.ShouldBeTrue)
		})

		convey.Convey("A malformed end date is rejected", func() {
			cfg.Tournament.Months[0].EndDate = "June 30"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidMonth), convey.ShouldBeTrue)
		})

		convey.Convey("A non-positive roster limit is rejected", func() {
			cfg.Tournament.RosterLimit = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

// clearConfigEnvVars removes every variable the loader reads.
func clearConfigEnvVars() {
	for _, envVar := range []string{
		"LADDER_CONFIG",
		"LADDER_DOTENV",
		"LADDER_ADDR",
		"LADDER_LOG_LEVEL",
		"LADDER_STORE__DRIVER",
		"LADDER_STORE__REDIS_ADDR",
		"LADDER_STORE__MAX_RETRIES",
		"LADDER_TOURNAMENT__IMPORT_LOCK_TTL",
		"LADDER_HTTP__CORS_ORIGINS",
	} {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "ladder-*.conf")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	_ = f.Close()
	return f.Name()
}
