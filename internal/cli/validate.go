package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/graph"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/nodes"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/store"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Database string
	Bundle   string
}

// ProcessValidation is the validation outcome of one process.
type ProcessValidation struct {
	ProcessID string          `json:"process_id"`
	Valid     bool            `json:"valid"`
	Problems  []graph.Problem `json:"problems,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                `json:"valid"`
	Processes []ProcessValidation `json:"processes"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [process-id]...",
		Short: "Check process graphs without running them",
		Long: `Check that process graphs can be run.

Reports every problem in one pass: cycles, connections to unknown nodes,
duplicate connections, node configs that fail their type schema, and
required inputs that no upstream node produces. Disabled nodes are ignored.

With no process ids every stored process is checked. With --bundle the
processes of a bundle file are checked without touching the database.

Exit codes:
  0 - All processes valid
  1 - At least one process is invalid
  2 - Command error (process not found, database error)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from CONSOL_DB)")
	cmd.Flags().StringVar(&opts.Bundle, "bundle", "", "validate the processes in a bundle file or directory instead")

	return cmd
}

func runValidate(opts *ValidateOptions, ids []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	procs, err := selectProcesses(opts.RootOptions, opts.Database, opts.Bundle, ids, formatter)
	if err != nil {
		return err
	}

	registry, err := nodes.NewRegistry()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build node registry", err)
	}

	result := ValidationResult{Valid: true, Processes: make([]ProcessValidation, 0, len(procs))}
	for _, p := range procs {
		formatter.VerboseLog("Validating process %s (%d nodes)", p.ID, len(p.Nodes))
		pv := ProcessValidation{ProcessID: p.ID, Valid: true}
		if err := graph.Validate(p.Nodes, p.Connections, registry); err != nil {
			ge, ok := graph.AsGraphError(err)
			if !ok {
				return WrapExitError(ExitCommandError, fmt.Sprintf("failed to validate %s", p.ID), err)
			}
			pv.Valid = false
			pv.Problems = ge.Problems
			result.Valid = false
		}
		result.Processes = append(result.Processes, pv)
	}

	text := func(w io.Writer) {
		for _, pv := range result.Processes {
			if pv.Valid {
				fmt.Fprintf(w, "✓ %s\n", pv.ProcessID)
				continue
			}
			fmt.Fprintf(w, "✗ %s\n", pv.ProcessID)
			for _, p := range pv.Problems {
				if p.NodeID != "" {
					fmt.Fprintf(w, "    [%s] %s: %s\n", p.Code, p.NodeID, p.Message)
				} else {
					fmt.Fprintf(w, "    [%s] %s\n", p.Code, p.Message)
				}
			}
		}
	}
	if !result.Valid {
		if err := formatter.Failure(ErrCodeInvalidGraph, "process validation failed", result, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "process validation failed")
	}
	return formatter.Success(result, func(w io.Writer) {
		text(w)
		fmt.Fprintf(w, "All %d process(es) valid\n", len(result.Processes))
	})
}

// selectProcesses resolves the processes a command works on: those in a
// bundle when bundlePath is set, else the stored processes named by ids,
// else every stored process.
func selectProcesses(opts *RootOptions, database, bundlePath string, ids []string, formatter *OutputFormatter) ([]model.ProcessDefinition, error) {
	if bundlePath != "" {
		loaded, err := LoadBundles(bundlePath)
		if err != nil {
			_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
			return nil, WrapExitError(ExitCommandError, "failed to read bundle", err)
		}
		return filterProcesses(loaded.Bundle.Processes, ids, formatter)
	}

	cfg, err := opts.Config()
	if err != nil {
		return nil, err
	}
	st, err := openStore(dbPath(database, cfg))
	if err != nil {
		return nil, err
	}
	defer st.Close()

	ctx := context.Background()
	if len(ids) == 0 {
		procs, err := st.ListProcesses(ctx)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to list processes", err)
		}
		return procs, nil
	}
	procs := make([]model.ProcessDefinition, 0, len(ids))
	for _, id := range ids {
		p, err := st.LoadProcess(ctx, id)
		if store.IsNotFound(err) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("process not found: %s", id), nil)
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("process not found: %s", id))
		}
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load process %s", id), err)
		}
		procs = append(procs, p)
	}
	return procs, nil
}

func filterProcesses(all []model.ProcessDefinition, ids []string, formatter *OutputFormatter) ([]model.ProcessDefinition, error) {
	if len(ids) == 0 {
		return all, nil
	}
	byID := make(map[string]model.ProcessDefinition, len(all))
	for _, p := range all {
		byID[p.ID] = p
	}
	out := make([]model.ProcessDefinition, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("process not found in bundle: %s", id), nil)
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("process not found: %s", id))
		}
		out = append(out, p)
	}
	return out, nil
}
