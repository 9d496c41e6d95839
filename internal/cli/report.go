package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database string
	Latest   bool
	List     bool
}

// RunSummary is one line of a run listing.
type RunSummary struct {
	RunID     string          `json:"run_id"`
	RunType   model.RunType   `json:"run_type"`
	Period    string          `json:"period"`
	Status    model.RunStatus `json:"status"`
	Committed bool            `json:"committed"`
	ErrorCode string          `json:"error_code,omitempty"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report <run-id | process-id>",
		Short: "Show a stored run result",
		Long: `Show the stored result of a run: node statuses, validation findings,
ledger deltas and digest.

With --latest the argument is a process id and its most recent run is
shown. With --list every run of the process is listed, oldest first.

Examples:
  consol report run-0192f3c4
  consol report group-close --latest --format json
  consol report group-close --list`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from CONSOL_DB)")
	cmd.Flags().BoolVar(&opts.Latest, "latest", false, "treat the argument as a process id and show its latest run")
	cmd.Flags().BoolVar(&opts.List, "list", false, "treat the argument as a process id and list its runs")
	cmd.MarkFlagsMutuallyExclusive("latest", "list")

	return cmd
}

func runReport(opts *ReportOptions, id string, cmd *cobra.Command) error {
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
	if opts.List {
		runs, err := st.ListRuns(ctx, id)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		summaries := make([]RunSummary, 0, len(runs))
		for _, r := range runs {
			s := RunSummary{RunID: r.RunID, RunType: r.RunType, Period: r.Period, Status: r.Status, Committed: r.Committed}
			if r.Error != nil {
				s.ErrorCode = r.Error.Code
			}
			summaries = append(summaries, s)
		}
		return formatter.Success(summaries, func(w io.Writer) {
			if len(summaries) == 0 {
				fmt.Fprintf(w, "No runs for %s\n", id)
				return
			}
			for _, s := range summaries {
				line := fmt.Sprintf("%s  %-10s %s  %s", s.RunID, s.RunType, s.Period, s.Status)
				if s.Committed {
					line += " committed"
				}
				if s.ErrorCode != "" {
					line += " " + s.ErrorCode
				}
				fmt.Fprintln(w, line)
			}
		})
	}

	var res model.RunResult
	if opts.Latest {
		res, err = st.LatestRun(ctx, id)
	} else {
		res, err = st.LoadRun(ctx, id)
	}
	if store.IsNotFound(err) {
		msg := fmt.Sprintf("run not found: %s", id)
		if opts.Latest {
			msg = fmt.Sprintf("no runs for process %s", id)
		}
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load run", err)
	}

	return formatter.Success(res, func(w io.Writer) { writeRunText(w, res) })
}
