package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// AuditOptions holds flags for the audit command.
type AuditOptions struct {
	*RootOptions
	Database string
	RunID    string
	Action   string // optional - filter to one action
}

// AuditResult holds the audit trail output.
type AuditResult struct {
	ProcessID string             `json:"process_id"`
	RunID     string             `json:"run_id,omitempty"`
	Entries   []model.AuditEntry `json:"entries"`
	Stats     AuditStats         `json:"stats"`
}

// AuditStats holds summary statistics for the trail.
type AuditStats struct {
	Total    int            `json:"total"`
	Runs     int            `json:"runs"`
	ByAction map[string]int `json:"by_action"`
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit <process-id>",
		Short: "Show the audit trail of a process",
		Long: `Show the append-only audit trail of a process in sequence order.

Every run records when it started and finished, each node outcome, each
warning or error check, and every ledger row a commit changed with its
value before and after.

Examples:
  consol audit group-close
  consol audit group-close --run run-0192f3c4
  consol audit group-close --action commit_applied --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from CONSOL_DB)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show one run only")
	cmd.Flags().StringVar(&opts.Action, "action", "", "filter to one action")

	return cmd
}

func runAudit(opts *AuditOptions, processID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	st, err := openStore(dbPath(opts.Database, cfg))
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	var entries []model.AuditEntry
	if opts.RunID != "" {
		entries, err = st.ListRunAudit(ctx, opts.RunID)
	} else {
		entries, err = st.ListAudit(ctx, processID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read audit trail", err)
	}

	result := AuditResult{
		ProcessID: processID,
		RunID:     opts.RunID,
		Entries:   make([]model.AuditEntry, 0, len(entries)),
		Stats:     AuditStats{ByAction: make(map[string]int)},
	}
	runs := make(map[string]bool)
	for _, e := range entries {
		if e.ProcessID != processID {
			continue
		}
		if opts.Action != "" && e.Action != opts.Action {
			continue
		}
		result.Entries = append(result.Entries, e)
		result.Stats.ByAction[e.Action]++
		runs[e.RunID] = true
	}
	result.Stats.Total = len(result.Entries)
	result.Stats.Runs = len(runs)

	if result.Stats.Total == 0 && opts.RunID != "" {
		msg := fmt.Sprintf("no audit entries for run %s of %s", opts.RunID, processID)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	return formatter.Success(result, func(w io.Writer) {
		writeAuditText(w, result)
	})
}

func writeAuditText(w io.Writer, result AuditResult) {
	fmt.Fprintf(w, "Audit trail for %s", result.ProcessID)
	if result.RunID != "" {
		fmt.Fprintf(w, " run %s", result.RunID)
	}
	fmt.Fprintf(w, " (%d entries, %d run(s))\n", result.Stats.Total, result.Stats.Runs)
	for _, e := range result.Entries {
		fmt.Fprintf(w, "  #%-5d %-8s %-20s", e.Seq, e.Severity, e.Action)
		if e.NodeID != "" {
			fmt.Fprintf(w, " [%s]", e.NodeID)
		}
		fmt.Fprintf(w, " %s", e.Message)
		if e.Before != "" || e.After != "" {
			fmt.Fprintf(w, " (%s -> %s)", e.Before, e.After)
		}
		fmt.Fprintln(w)
	}
}
