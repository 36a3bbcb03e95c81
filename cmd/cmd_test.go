package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/remindbot/internal/output"
)

type result struct {
	stdout string
	stderr string
	err    error
}

// execute runs the CLI with fresh flag values against an isolated
// environment.
func execute(t *testing.T, db string, args ...string) result {
	t.Helper()

	flagOwner, flagDB, flagBackend, flagConfig = "", "", "", ""
	flagFormat, flagColor, flagDebug = "cli", "never", false
	eventAddFlagAt = ""

	var outBuf, errBuf bytes.Buffer
	stdout, stderr = &outBuf, &errBuf
	rootCmd.SetOut(&outBuf)
	rootCmd.SetErr(&errBuf)

	rootCmd.SetArgs(append([]string{"--db", db, "--color", "never"}, args...))
	err := Execute()
	return result{stdout: outBuf.String(), stderr: errBuf.String(), err: err}
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv("REMINDBOT_OWNER", "alice")
	t.Setenv("REMINDBOT_TZ", "UTC")
	t.Setenv("REMINDBOT_TELEGRAM_TOKEN", "")
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	return filepath.Join(dir, "remindbot.db")
}

func TestTaskCommands(t *testing.T) {
	db := setupEnv(t)

	res := execute(t, db, "--format", "json", "task", "add", "Buy", "milk")
	require.NoError(t, res.err, res.stderr)
	var task output.TaskOutput
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &task))
	assert.Equal(t, "Buy milk", task.Description)
	assert.Equal(t, "alice", task.Owner)

	res = execute(t, db, "task", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Buy milk")
	assert.Contains(t, res.stdout, task.ID[:8])

	res = execute(t, db, "--owner", "bob", "--format", "json", "task")
	require.NoError(t, res.err)
	var list output.TasksResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &list))
	assert.Equal(t, 0, list.Count)

	res = execute(t, db, "task", "complete", task.ID[:8])
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "marked as completed")

	res = execute(t, db, "--format", "json", "task", "list")
	require.NoError(t, res.err)
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &list))
	assert.Equal(t, 0, list.Count)
}

func TestTaskAddEmptyDescription(t *testing.T) {
	db := setupEnv(t)

	res := execute(t, db, "task", "add", "   ")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "Error:")
}

func TestEventCommands(t *testing.T) {
	db := setupEnv(t)

	res := execute(t, db, "--format", "json", "event", "add", "Team sync", "--at", "2099-08-23T14:30:00Z")
	require.NoError(t, res.err, res.stderr)
	var event output.EventOutput
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &event))
	assert.Equal(t, "Team sync", event.Title)
	assert.Equal(t, "2099-08-23T14:30:00Z", event.FireAt)

	res = execute(t, db, "event", "add", "Retro", "2099-08-24", "10:00")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Retro")

	res = execute(t, db, "--format", "json", "event", "list")
	require.NoError(t, res.err)
	var list output.EventsResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &list))
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "Team sync", list.Events[0].Title)

	res = execute(t, db, "event", "remove", event.ID[:8])
	require.NoError(t, res.err)

	res = execute(t, db, "--format", "json", "event")
	require.NoError(t, res.err)
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Retro", list.Events[0].Title)
}

func TestEventAddErrors(t *testing.T) {
	db := setupEnv(t)

	res := execute(t, db, "event", "add", "Standup")
	require.Error(t, res.err)

	res = execute(t, db, "--format", "json", "event", "add", "Deploy", "--at", "not-a-time")
	require.Error(t, res.err)
	var resp output.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "validation", resp.Category)
	assert.NotEmpty(t, resp.Suggestion)
}

func TestUnknownFormat(t *testing.T) {
	db := setupEnv(t)

	res := execute(t, db, "--format", "xml", "task")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "unknown output format")
}

func TestConfigShowMasksSecrets(t *testing.T) {
	db := setupEnv(t)
	t.Setenv("REMINDBOT_TELEGRAM_TOKEN", "123456:secret-token")

	res := execute(t, db, "--format", "json", "config", "show")
	require.NoError(t, res.err, res.stderr)
	assert.NotContains(t, res.stdout, "secret-token")

	var view configView
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &view))
	assert.Equal(t, "alice", view.Owner)
	assert.Equal(t, "UTC", view.Timezone)
	assert.Equal(t, db, view.Path)
	assert.Equal(t, "********", view.TelegramToken)
}

func TestDaemonStatusNotRunning(t *testing.T) {
	db := setupEnv(t)

	res := execute(t, db, "daemon", "status")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "stopped")
}

func TestVersion(t *testing.T) {
	db := setupEnv(t)

	res := execute(t, db, "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "remindbot dev")
}

func TestPomodoroConfig(t *testing.T) {
	cfg, err := pomodoroConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 25*time.Minute, cfg.WorkDuration)
	assert.Equal(t, 5*time.Minute, cfg.BreakDuration)

	cfg, err = pomodoroConfig([]string{"50", "10m"})
	require.NoError(t, err)
	assert.Equal(t, 50*time.Minute, cfg.WorkDuration)
	assert.Equal(t, 10*time.Minute, cfg.BreakDuration)

	_, err = pomodoroConfig([]string{"soon"})
	assert.ErrorContains(t, err, "invalid work time")
	assert.ErrorContains(t, err, "1h30m")

	_, err = pomodoroConfig([]string{"25", "later"})
	assert.ErrorContains(t, err, "invalid break time")
}

func TestForwardedFlags(t *testing.T) {
	flagConfig, flagDB, flagBackend = "/etc/remindbot.yaml", "", "badger"
	t.Cleanup(func() { flagConfig, flagBackend = "", "" })

	assert.Equal(t, []string{"--config", "/etc/remindbot.yaml", "--backend", "badger"}, forwardedFlags())
}
