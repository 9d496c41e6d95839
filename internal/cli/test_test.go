package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "scenarios directory not found")
}

func TestTestCommandRunsCheckedInScenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), scenariosDir)
	require.NoError(t, err)

	var result TestResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 4, result.Passed)
	assert.Zero(t, result.Failed)
	for _, sr := range result.Scenarios {
		assert.True(t, sr.Pass, "%s: %v", sr.Name, sr.Errors)
		assert.Equal(t, "match", sr.Golden, sr.Name)
	}
}

func TestTestCommandFilter(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--filter", "c*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ consolidation_cycle")
	assert.Contains(t, out, "✓ cyclic_graph")
	assert.NotContains(t, out, "blocked_commit")
	assert.Contains(t, out, "2 passed, 0 failed, 2 total")
}

func TestTestCommandNoScenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandUpdateWritesGoldenFiles(t *testing.T) {
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios")
	data, err := os.ReadFile(filepath.Join(scenariosDir, "cyclic_graph.yaml"))
	require.NoError(t, err)
	writeFile(t, scenarios, "cyclic_graph.yaml", string(data))

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenarios)
	require.NoError(t, err, out)

	out, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenarios, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ cyclic_graph (golden updated)")

	written, err := os.ReadFile(filepath.Join(dir, "golden", "cyclic_graph.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile("../harness/testdata/golden/cyclic_graph.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))
}

func TestTestCommandGoldenMismatchFails(t *testing.T) {
	dir := t.TempDir()
	goldenDir := filepath.Join(dir, "expected")
	writeFile(t, goldenDir, "cyclic_graph.golden", `{"runs":[],"scenario":"cyclic_graph"}`)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir,
		"--filter", "cyclic_graph", "--golden-dir", goldenDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ cyclic_graph")
	assert.Contains(t, out, "snapshot differs")
	assert.Contains(t, out, "Error [E001]: 1 of 1 scenario(s) failed")
}

func TestTestCommandReportsFailingScenario(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join(scenariosDir, "cyclic_graph.yaml"))
	require.NoError(t, err)
	// Same scenario expecting the wrong outcome.
	broken := string(data) + "\n  - { type: audit_count, action: run_started, count: 5 }\n"
	writeFile(t, dir, "scenarios/wrong.yaml", broken)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), filepath.Join(dir, "scenarios"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result TestResult
	resp := decode(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Scenarios, 1)
	assert.NotEmpty(t, result.Scenarios[0].Errors)
}
