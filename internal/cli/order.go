package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/graph"
)

// OrderOptions holds flags for the order command.
type OrderOptions struct {
	*RootOptions
	Database string
	Bundle   string
}

// PlanStep is one node of an execution plan.
type PlanStep struct {
	Position  int      `json:"position"`
	NodeID    string   `json:"node_id"`
	Type      string   `json:"type"`
	DependsOn []string `json:"depends_on,omitempty"`
}

// OrderResult is the execution plan of one process.
type OrderResult struct {
	ProcessID string     `json:"process_id"`
	Steps     []PlanStep `json:"steps"`
	Disabled  []string   `json:"disabled,omitempty"`
}

// NewOrderCommand creates the order command.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "order <process-id>",
		Short: "Print the execution order of a process",
		Long: `Print the order in which a run would execute the enabled nodes of a
process. Among nodes whose dependencies are satisfied, the lowest
sequence order runs first, then the lowest node id.

Exit codes:
  0 - Order printed
  1 - The graph has a cycle
  2 - Command error (process not found, database error)

Examples:
  consol order group-close --db ./consol.db
  consol order group-close --bundle ./group.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrder(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from CONSOL_DB)")
	cmd.Flags().StringVar(&opts.Bundle, "bundle", "", "read the process from a bundle file or directory instead")

	return cmd
}

func runOrder(opts *OrderOptions, processID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	procs, err := selectProcesses(opts.RootOptions, opts.Database, opts.Bundle, []string{processID}, formatter)
	if err != nil {
		return err
	}
	proc := procs[0]

	plan, err := graph.NewPlan(proc)
	if err != nil {
		msg := err.Error()
		if ge, ok := graph.AsGraphError(err); ok {
			msg = ge.Message
		}
		_ = formatter.Error(ErrCodeInvalidGraph, msg, nil)
		return WrapExitError(ExitFailure, fmt.Sprintf("cannot order %s", proc.ID), err)
	}

	result := OrderResult{ProcessID: proc.ID, Steps: make([]PlanStep, 0, len(plan.Order)), Disabled: plan.Disabled}
	for i, id := range plan.Order {
		result.Steps = append(result.Steps, PlanStep{
			Position:  i + 1,
			NodeID:    id,
			Type:      string(plan.Nodes[id].Type),
			DependsOn: plan.Preds[id],
		})
	}

	return formatter.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Execution order for %s:\n", proc.ID)
		for _, s := range result.Steps {
			fmt.Fprintf(w, "  %2d. %-12s %s", s.Position, s.NodeID, s.Type)
			if len(s.DependsOn) > 0 {
				fmt.Fprintf(w, " <- %v", s.DependsOn)
			}
			fmt.Fprintln(w)
		}
		if len(result.Disabled) > 0 {
			fmt.Fprintf(w, "Disabled: %v\n", result.Disabled)
		}
	})
}
