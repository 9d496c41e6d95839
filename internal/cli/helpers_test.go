package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/harness"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/store"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/testutil"
)

const (
	procID       = "consol-2024"
	scenariosDir = "../harness/testdata/scenarios"
)

// seededDB creates a database holding the fixture group and pipeline.
func seededDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "consol.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, testutil.Seed(ctx, st))
	require.NoError(t, st.SaveProcess(ctx, testutil.Pipeline()))
	require.NoError(t, st.Close())
	return path
}

// withStore opens path, hands the store to fn and closes it.
func withStore(t *testing.T, path string, fn func(ctx context.Context, st *store.Store)) {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	fn(context.Background(), st)
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decode parses a JSON CLIResponse and decodes its data into v.
func decode(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if v != nil {
		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, v))
	}
	return resp
}

// fixtureBundle returns the data bundle of the consolidation_cycle scenario.
func fixtureBundle(t *testing.T) store.Bundle {
	t.Helper()
	s, err := harness.LoadScenario(filepath.Join(scenariosDir, "consolidation_cycle.yaml"))
	require.NoError(t, err)
	return s.Data
}

// writeJSONBundle writes b as a JSON bundle file and returns its path.
func writeJSONBundle(t *testing.T, dir, name string, b store.Bundle) string {
	t.Helper()
	data, err := json.Marshal(b)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func cyclicPipeline() model.ProcessDefinition {
	p := testutil.Pipeline()
	p.Connections = append(p.Connections, model.Connection{From: "eq", To: "ob", Type: model.ConnectionSequential})
	return p
}
