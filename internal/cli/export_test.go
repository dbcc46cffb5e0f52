package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportDOTGolden(t *testing.T) {
	out, err := execute(t, "export", "testdata/toggle.yaml")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "export_dot", []byte(out))
}

func TestExportMermaidGolden(t *testing.T) {
	out, err := execute(t, "export", "--syntax", "mermaid", "testdata/toggle.yaml")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "export_mermaid", []byte(out))
}

func TestExportToFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "toggle.dot")
	out, err := execute(t, "export", "-o", dest, "testdata/toggle.yaml")
	require.NoError(t, err)
	assert.Empty(t, out, "file output keeps stdout clean in text mode")

	raw, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "digraph stategraph")
}

func TestExportJSONWrapsOutput(t *testing.T) {
	out, err := execute(t, "--format", "json", "export", "--syntax", "mermaid", "testdata/toggle.yaml")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "mermaid", data["syntax"])
	assert.Contains(t, data["output"], "stateDiagram-v2")
}

func TestExportRejectsUnknownSyntax(t *testing.T) {
	_, err := execute(t, "export", "--syntax", "ascii", "testdata/toggle.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
