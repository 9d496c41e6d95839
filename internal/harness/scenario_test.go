package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalScenario = `
name: minimal
description: "One entity, one node"
data:
  entities:
    - { code: p, name: Parent, ownership_percentage: 100, functional_currency: usd, reporting_currency: usd, consolidation_method: full }
  processes:
    - id: proc
      name: Minimal
      fiscal_year: 2024
      nodes:
        - { id: pl, type: profit_loss }
runs:
  - process: proc
    type: simulation
    period: 2024-12
    expect:
      status: completed
assertions:
  - { type: audit_count, action: run_started, count: 1 }
`

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", scenario.Name)
	assert.Equal(t, "One entity, one node", scenario.Description)
	require.Len(t, scenario.Data.Processes, 1)
	require.Len(t, scenario.Data.Processes[0].Nodes, 1)
	assert.True(t, scenario.Data.Processes[0].Nodes[0].Enabled, "nodes default to enabled")
	assert.True(t, scenario.Data.Entities[0].OwnershipPercentage.Equal(decimal.NewFromInt(100)))
	require.Len(t, scenario.Runs, 1)
	assert.Equal(t, model.RunSimulation, scenario.Runs[0].Type)
	require.NotNil(t, scenario.Runs[0].Expect)
	assert.Equal(t, model.RunCompleted, scenario.Runs[0].Expect.Status)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertAuditCount, scenario.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, "name: [unclosed\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_UnknownFieldsRejected(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, minimalScenario+"\nflow_token: abc\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow_token")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "runs:\n  - { process: p, type: simulation }\n",
			wantErr: "name is required",
		},
		{
			name:    "no runs",
			content: "name: x\n",
			wantErr: "at least one step",
		},
		{
			name:    "run without process",
			content: "name: x\nruns:\n  - { type: simulation }\n",
			wantErr: "runs[0]: process is required",
		},
		{
			name:    "bad run type",
			content: "name: x\nruns:\n  - { process: p, type: dry }\n",
			wantErr: "type must be simulation or commit",
		},
		{
			name:    "output without path",
			content: "name: x\nruns:\n  - { process: p, type: simulation }\nassertions:\n  - { type: output, node: nci }\n",
			wantErr: "output requires node and path",
		},
		{
			name:    "check run out of range",
			content: "name: x\nruns:\n  - { process: p, type: simulation }\nassertions:\n  - { type: check, check: balance_check, run: 3 }\n",
			wantErr: "run 3 out of range",
		},
		{
			name:    "ledger without equals",
			content: "name: x\nruns:\n  - { process: p, type: simulation }\nassertions:\n  - { type: ledger, entity: P, account: CASH, period: 2024-12 }\n",
			wantErr: "ledger requires",
		},
		{
			name:    "audit without action",
			content: "name: x\nruns:\n  - { process: p, type: simulation }\nassertions:\n  - { type: audit_count, count: 2 }\n",
			wantErr: "audit_count requires action",
		},
		{
			name:    "digest with one run",
			content: "name: x\nruns:\n  - { process: p, type: simulation }\nassertions:\n  - { type: digest_equal, runs: [0] }\n",
			wantErr: "at least two runs",
		},
		{
			name:    "unknown assertion",
			content: "name: x\nruns:\n  - { process: p, type: simulation }\nassertions:\n  - { type: trace_order }\n",
			wantErr: `unknown type "trace_order"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadExampleScenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios", "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)
			assert.NotEmpty(t, scenario.Data.Processes)
			assert.NotEmpty(t, scenario.Data.Entities)
		})
	}
}
