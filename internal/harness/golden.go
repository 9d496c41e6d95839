package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// Snapshot is the golden view of a scenario execution. Digests, timestamps
// and node outputs are left out so golden files stay reviewable by hand;
// output values are covered by assertions instead.
type Snapshot struct {
	Scenario string        `json:"scenario"`
	Runs     []RunSnapshot `json:"runs"`
}

// RunSnapshot is the golden view of one run.
type RunSnapshot struct {
	RunID     string                      `json:"run_id"`
	Status    model.RunStatus             `json:"status"`
	ErrorCode string                      `json:"error_code,omitempty"`
	Committed bool                        `json:"committed"`
	Order     []string                    `json:"order,omitempty"`
	Nodes     map[string]model.NodeStatus `json:"nodes,omitempty"`
}

// NewSnapshot builds the golden view of result.
func NewSnapshot(name string, result *Result) Snapshot {
	snap := Snapshot{Scenario: name, Runs: make([]RunSnapshot, len(result.Runs))}
	for i, o := range result.Runs {
		rs := RunSnapshot{
			RunID:     o.Result.RunID,
			Status:    o.Result.Status,
			ErrorCode: o.ErrorCode,
			Committed: o.Result.Committed,
			Order:     o.Result.Order,
		}
		if len(o.Result.Nodes) > 0 {
			rs.Nodes = make(map[string]model.NodeStatus, len(o.Result.Nodes))
			for id, n := range o.Result.Nodes {
				rs.Nodes[id] = n.Status
			}
		}
		snap.Runs[i] = rs
	}
	return snap
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can inspect failed expectations.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := SnapshotBytes(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
