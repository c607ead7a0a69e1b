package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/timeattack/internal/config"
	"github.com/okian/timeattack/internal/domain/model"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DropWeeks, convey.ShouldEqual, 2)
			convey.So(cfg.ScoringStrategy, convey.ShouldEqual, "relative")
			convey.So(cfg.RelativeScale, convey.ShouldEqual, 101)
			convey.So(cfg.PositionPoints, convey.ShouldResemble, []float64{10, 7, 5, 3, 2, 1})
			convey.So(cfg.HistoryLimit, convey.ShouldEqual, 50)
			convey.So(cfg.LapPageSize, convey.ShouldEqual, 500)
			convey.So(cfg.FallbackEvent, convey.ShouldEqual, "preseason")
			convey.So(cfg.DryRun(), convey.ShouldBeTrue)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the default zone should load", func() {
			convey.So(cfg.Location().String(), convey.ShouldEqual, "America/Chicago")
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars(t)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.SettleDelay, convey.ShouldEqual, 2*time.Second)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("TIMEATTACK_ADDR", ":8080")
			t.Setenv("TIMEATTACK_DROP_WEEKS", "3")
			t.Setenv("TIMEATTACK_SETTLE_DELAY", "5s")
			t.Setenv("TIMEATTACK_NAME_FALLBACK", "true")

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DropWeeks, convey.ShouldEqual, 3)
				convey.So(cfg.SettleDelay, convey.ShouldEqual, 5*time.Second)
				convey.So(cfg.NameFallback, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a YAML file named by the env", func() {
			path := writeConfig(t, `
addr: ":9090"
scoring_strategy: position
position_points: [25, 18, 15]
timezone: UTC
history_limit: 20
`)
			t.Setenv("TIMEATTACK_CONFIG", path)

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should load from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.ScoringStrategy, convey.ShouldEqual, "position")
				convey.So(cfg.PositionPoints, convey.ShouldResemble, []float64{25, 18, 15})
				convey.So(cfg.Location(), convey.ShouldEqual, time.UTC)
				convey.So(cfg.HistoryLimit, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			path := writeConfig(t, `
addr: ":9090"
drop_weeks: 1
`)
			t.Setenv("TIMEATTACK_ADDR", ":8080")

			cfg, err := config.Load(ctx, path)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DropWeeks, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the file is missing", func() {
			_, err := config.Load(ctx, filepath.Join(t.TempDir(), "missing.yaml"))

			convey.Convey("Then a config error should be returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(errors.Is(err, model.ErrConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When values fail validation", func() {
			path := writeConfig(t, `
scoring_strategy: fastest
drop_weeks: -1
timezone: Mars/Olympus
`)
			_, err := config.Load(ctx, path)

			convey.Convey("Then every violation should be reported", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "ScoringStrategy")
				convey.So(err.Error(), convey.ShouldContainSubstring, "DropWeeks")
				convey.So(err.Error(), convey.ShouldContainSubstring, "Timezone")
			})
		})

		convey.Convey("When a token is set without channels", func() {
			t.Setenv("TIMEATTACK_DISCORD_TOKEN", "secret")

			_, err := config.Load(ctx, "")

			convey.Convey("Then the channel ids should be required", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "LeaderboardChannelID")
			})
		})
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// clearConfigEnvVars unsets every TIMEATTACK_ variable for the rest of the test.
func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, config.EnvPrefix) {
			t.Setenv(name, "")
			_ = os.Unsetenv(name)
		}
	}
}
