package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/run"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	RunType  string
	Period   string

	// ManagerOptions are appended to the run manager options (for testing).
	ManagerOptions []run.Option
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <process-id>",
		Short: "Run a consolidation process",
		Long: `Run a stored consolidation process for one period.

A simulation executes every node and validates the result but leaves the
ledger untouched. A commit additionally posts the run's journal entries,
atomically, and only when every node succeeded and no validation check
reported an error. The run and its audit trail are stored either way.

The period defaults to December of the process fiscal year.

Exit codes:
  0 - Run completed (and, for a commit, the ledger was written)
  1 - Run failed, partially completed, or its commit was refused
  2 - Command error (process not found, database error)

Examples:
  consol run group-close --period 2024-12
  consol run group-close --type commit --db ./consol.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from CONSOL_DB)")
	cmd.Flags().StringVar(&opts.RunType, "type", string(model.RunSimulation), "run type (simulation|commit)")
	cmd.Flags().StringVar(&opts.Period, "period", "", "period to run, YYYY-MM")

	return cmd
}

func runProcess(opts *RunOptions, processID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg, err := opts.Config()
	if err != nil {
		return err
	}

	req := run.Request{ProcessID: processID, RunType: model.RunType(opts.RunType), Period: opts.Period}
	if err := model.Validate(req); err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid run request", err)
	}

	st, err := openStore(dbPath(opts.Database, cfg))
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	if _, err := st.LoadProcess(ctx, processID); err != nil {
		if store.IsNotFound(err) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("process not found: %s", processID), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("process not found: %s", processID))
		}
		return WrapExitError(ExitCommandError, "failed to load process", err)
	}

	logger := opts.logger(formatter.GetErrWriter(), cfg, slog.LevelWarn)
	rt, err := newRuntime(ctx, st, cfg, logger, opts.ManagerOptions...)
	if err != nil {
		return err
	}
	defer rt.close()

	res, runErr := rt.manager.Run(ctx, req)
	return reportRun(formatter, res, runErr)
}

// reportRun prints a run outcome and maps it to an exit code.
func reportRun(formatter *OutputFormatter, res model.RunResult, runErr error) error {
	if res.RunID == "" {
		if run.IsConcurrentRun(runErr) {
			_ = formatter.Error(ErrCodeRunInProgress, runErr.Error(), nil)
			return WrapExitError(ExitFailure, "run not started", runErr)
		}
		_ = formatter.Error(ErrCodeGeneric, runErr.Error(), nil)
		return WrapExitError(ExitCommandError, "run not started", runErr)
	}

	text := func(w io.Writer) { writeRunText(w, res) }
	if ce, ok := run.AsCommitError(runErr); ok {
		if err := formatter.Failure(ErrCodeCommitRefused, ce.Error(), res, text); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "commit refused", runErr)
	}
	if res.Status != model.RunCompleted {
		msg := fmt.Sprintf("run %s", res.Status)
		if res.Error != nil {
			msg += ": " + res.Error.Code
		}
		if err := formatter.Failure(ErrCodeRunFailed, msg, res, text); err != nil {
			return err
		}
		if runErr != nil {
			return WrapExitError(ExitFailure, msg, runErr)
		}
		return NewExitError(ExitFailure, msg)
	}
	if runErr != nil {
		// Completed but not stored.
		_ = formatter.Error(ErrCodeWriteFailed, runErr.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to store run", runErr)
	}
	return formatter.Success(res, text)
}

// writeRunText renders a run result for humans.
func writeRunText(w io.Writer, res model.RunResult) {
	fmt.Fprintf(w, "Run %s: %s\n", res.RunID, res.Status)
	fmt.Fprintf(w, "  process: %s\n", res.ProcessID)
	fmt.Fprintf(w, "  type:    %s\n", res.RunType)
	fmt.Fprintf(w, "  period:  %s\n", res.Period)
	if res.Error != nil {
		fmt.Fprintf(w, "  error:   %s: %s\n", res.Error.Code, res.Error.Message)
	}
	if len(res.Order) > 0 {
		fmt.Fprintln(w, "Nodes:")
		for _, id := range res.Order {
			n := res.Nodes[id]
			fmt.Fprintf(w, "  %-12s %s", id, n.Status)
			if n.Error != nil {
				fmt.Fprintf(w, " (%s)", n.Error.Code)
			}
			fmt.Fprintln(w)
		}
	}
	if flagged := findings(res.Validation); len(flagged) > 0 {
		fmt.Fprintln(w, "Checks:")
		for _, c := range flagged {
			fmt.Fprintf(w, "  [%s] %s: %s\n", c.Severity, c.Check, c.Message)
		}
	}
	fmt.Fprintf(w, "Deltas: %d", len(res.Deltas))
	if res.Committed {
		fmt.Fprint(w, " (committed)")
	}
	fmt.Fprintln(w)
	if res.Digest != "" {
		fmt.Fprintf(w, "Digest: %s\n", res.Digest)
	}
}

// findings returns the warning and error checks.
func findings(checks []model.CheckResult) []model.CheckResult {
	var out []model.CheckResult
	for _, c := range checks {
		if c.Severity == model.SeverityWarning || c.Severity == model.SeverityError {
			out = append(out, c)
		}
	}
	return out
}
