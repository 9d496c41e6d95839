package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/store"
)

// Scenario is one consolidation test case: a data bundle, a sequence of
// runs, and assertions over the runs, the ledger and the audit log.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// GroupEntity is the top entity. Defaults to the root of the ownership tree.
	GroupEntity string `yaml:"group_entity,omitempty"`

	// Tolerance overrides the balancing tolerance, as a decimal string.
	Tolerance string `yaml:"tolerance,omitempty"`

	// Data is imported into a fresh store before the first run.
	Data store.Bundle `yaml:"data"`

	// Runs execute in order against the same store.
	Runs []RunStep `yaml:"runs"`

	// Assertions validate the final state after every run.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// RunStep requests one run and optionally checks how it ended.
type RunStep struct {
	Process string        `yaml:"process"`
	Type    model.RunType `yaml:"type"`
	Period  string        `yaml:"period,omitempty"`

	// Edit is applied to the stored ledger before the run starts.
	Edit []model.LedgerBalance `yaml:"edit,omitempty"`

	Expect *RunExpect `yaml:"expect,omitempty"`
}

// RunExpect is checked against a finished run.
type RunExpect struct {
	// Status is the expected run status.
	Status model.RunStatus `yaml:"status,omitempty"`

	// Error is the expected error code, "" for none.
	Error string `yaml:"error,omitempty"`

	// Committed is the expected committed flag.
	Committed *bool `yaml:"committed,omitempty"`

	// Nodes maps node ids to expected node statuses. Unlisted nodes are
	// not checked.
	Nodes map[string]model.NodeStatus `yaml:"nodes,omitempty"`
}

// Assertion validates run results, ledger rows or audit entries.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Run indexes Scenario.Runs (output, check, digest_equal).
	Run int `yaml:"run,omitempty"`

	// Runs lists run indexes that must share a digest (digest_equal).
	Runs []int `yaml:"runs,omitempty"`

	// Node and Path select an output value (output): Path is a dotted
	// path into the node's outputs, e.g. "nci_profit.S".
	Node string `yaml:"node,omitempty"`
	Path string `yaml:"path,omitempty"`

	// Check and Severity select a validation finding (check).
	Check    string         `yaml:"check,omitempty"`
	Severity model.Severity `yaml:"severity,omitempty"`

	// Entity, Account and Period select a ledger row (ledger).
	Entity  string `yaml:"entity,omitempty"`
	Account string `yaml:"account,omitempty"`
	Period  string `yaml:"period,omitempty"`

	// Action selects audit entries (audit_contains, audit_count).
	Action string `yaml:"action,omitempty"`

	// Equals is the expected value. Numeric values compare as decimals.
	// For ledger assertions "absent" means the row must not exist.
	Equals string `yaml:"equals,omitempty"`

	// Count is the expected number of matches (audit_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertOutput        = "output"
	AssertCheck         = "check"
	AssertLedger        = "ledger"
	AssertAuditContains = "audit_contains"
	AssertAuditCount    = "audit_count"
	AssertDigestEqual   = "digest_equal"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", filepath.Base(path), err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and assertion shapes.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Runs) == 0 {
		return fmt.Errorf("runs must contain at least one step")
	}
	for i, r := range s.Runs {
		if r.Process == "" {
			return fmt.Errorf("runs[%d]: process is required", i)
		}
		if r.Type != model.RunSimulation && r.Type != model.RunCommit {
			return fmt.Errorf("runs[%d]: type must be simulation or commit, got %q", i, r.Type)
		}
	}

	inRange := func(idx int) bool { return idx >= 0 && idx < len(s.Runs) }
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertOutput:
			if a.Node == "" || a.Path == "" {
				return fmt.Errorf("assertions[%d]: output requires node and path", i)
			}
			if !inRange(a.Run) {
				return fmt.Errorf("assertions[%d]: run %d out of range", i, a.Run)
			}
		case AssertCheck:
			if a.Check == "" {
				return fmt.Errorf("assertions[%d]: check requires check", i)
			}
			if !inRange(a.Run) {
				return fmt.Errorf("assertions[%d]: run %d out of range", i, a.Run)
			}
		case AssertLedger:
			if a.Entity == "" || a.Account == "" || a.Period == "" || a.Equals == "" {
				return fmt.Errorf("assertions[%d]: ledger requires entity, account, period and equals", i)
			}
		case AssertAuditContains, AssertAuditCount:
			if a.Action == "" {
				return fmt.Errorf("assertions[%d]: %s requires action", i, a.Type)
			}
		case AssertDigestEqual:
			if len(a.Runs) < 2 {
				return fmt.Errorf("assertions[%d]: digest_equal requires at least two runs", i)
			}
			for _, idx := range a.Runs {
				if !inRange(idx) {
					return fmt.Errorf("assertions[%d]: run %d out of range", i, idx)
				}
			}
		default:
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
	}
	return nil
}
