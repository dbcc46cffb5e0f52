package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeWithInput runs the root command with a scripted stdin.
func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDemoWalksToTerminalState(t *testing.T) {
	out, err := executeWithInput(t, "flip\nflip\nflip\nshutdown\n", "demo", "testdata/toggle.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "* off\n")
	assert.Contains(t, out, "* on (via flip)\n")
	assert.Contains(t, out, "* off (via flip)\n")
	assert.Contains(t, out, "* done (via shutdown)\n")
	assert.Contains(t, out, `reached terminal state "done"`)
}

func TestDemoRejectsUnknownTransition(t *testing.T) {
	out, err := executeWithInput(t, "shutdown\nquit\n", "demo", "testdata/toggle.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "* off\n")
	assert.Contains(t, out, `no transition "shutdown" out of "off"`)
	assert.NotContains(t, out, "* done")
}

func TestDemoEndsCleanlyOnEOF(t *testing.T) {
	out, err := executeWithInput(t, "flip\n", "demo", "testdata/toggle.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "* on (via flip)\n")
}
