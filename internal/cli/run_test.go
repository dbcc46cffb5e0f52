package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PassingScenario(t *testing.T) {
	out, err := execute(t, "run", "testdata/toggle.yaml", "testdata/scenario.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "transition off -[flip]-> on")
	assert.Contains(t, out, "transition on -[shutdown]-> done")
	assert.Contains(t, out, "final done")
	assert.Contains(t, out, "✓ Scenario passed")
}

func TestRun_PassingScenarioJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "run", "testdata/toggle.yaml", "testdata/scenario.yaml")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["passed"])
	assert.Equal(t, "done", data["final_state"])
}

func TestRun_FailingScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"name: bad\nsteps:\n  - transition: shutdown\n"), 0o644))

	out, err := execute(t, "run", "testdata/toggle.yaml", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Scenario failed")
	assert.Contains(t, out, "reject shutdown")
}

func TestRun_MissingScenarioFile(t *testing.T) {
	_, err := execute(t, "run", "testdata/toggle.yaml", "testdata/nope.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
