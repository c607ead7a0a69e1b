package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/timeattack/internal/domain/types"
)

const testSchedule = `
season: 1
event1:
  startDate: "2020-01-01"
  track: monza
event2:
  startDate: "2020-01-08"
  track: spa
`

// writeConfig lays out a dry-run workspace and returns its config path.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schedule.yaml"), []byte(testSchedule), 0o600))

	cfg := fmt.Sprintf(`log_level: error
schedule_path: %[1]s/schedule.yaml
results_dir: %[1]s/results
lap_store_path: %[1]s/data/laps.db
ledger_dir: %[1]s/data/ledger
leaderboard_path: %[1]s/data/leaderboard.json
standings_dir: %[1]s/data/standings
active_event_path: %[1]s/data/active_event.json
registry_path: %[1]s/data/names.json
settle_delay: 0s
`, dir)
	path := filepath.Join(dir, "timeattack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEventCommands(t *testing.T) {
	configPath := writeConfig(t)

	out, err := run(t, configPath, "event", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "season1#event2")
	assert.NotContains(t, out, "override")

	out, err = run(t, configPath, "event", "set", "season1#event1")
	require.NoError(t, err)
	assert.Contains(t, out, "season1#event1 (override)")

	out, err = run(t, configPath, "event", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "season1#event1 (override)", "override should survive a restart")

	out, err = run(t, configPath, "event", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "season1#event2")
	assert.NotContains(t, out, "override")

	_, err = run(t, configPath, "event", "set", "season1#event9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, configPath, "event", "set")
	require.Error(t, err)
}

func TestPollCommand(t *testing.T) {
	configPath := writeConfig(t)

	out, err := run(t, configPath, "--output", "json", "poll")
	require.NoError(t, err)

	var stats types.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, "season1#event2", stats.ActiveEvent)
	assert.Equal(t, "season1", stats.Season)
	assert.Equal(t, 2, stats.ScheduledEvents)
	assert.Equal(t, "relative", stats.ScoringStrategy)
}

func TestStandingsCommands(t *testing.T) {
	configPath := writeConfig(t)

	out, err := run(t, configPath, "standings", "recompute")
	require.NoError(t, err)
	assert.Contains(t, out, "Season 1 Standings")

	out, err = run(t, configPath, "-o", "json", "standings", "show", "--season", "season1")
	require.NoError(t, err)
	var view types.StandingsView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "season1", view.Season)

	_, err = run(t, configPath, "standings", "recompute", "--season", "season4")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRegistryImport(t *testing.T) {
	configPath := writeConfig(t)

	out, err := run(t, configPath, "registry", "import")
	require.NoError(t, err)
	assert.Contains(t, out, "imported 0 names")
}

func TestInvalidInvocations(t *testing.T) {
	configPath := writeConfig(t)

	_, err := run(t, configPath, "--output", "yaml", "poll")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, filepath.Join(t.TempDir(), "missing.yaml"), "poll")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSimulateCommand(t *testing.T) {
	configPath := writeConfig(t)

	_, err := run(t, configPath, "simulate", "--drivers", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, configPath, "simulate", "--url", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:9080", baseURL(":9080"))
	assert.Equal(t, "http://127.0.0.1:9080", baseURL("0.0.0.0:9080"))
	assert.Equal(t, "http://ops.local:8080", baseURL("ops.local:8080"))
	assert.Equal(t, "http://[::1]:8080", baseURL("[::1]:8080"))
}
