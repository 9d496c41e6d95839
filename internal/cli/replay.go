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

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayResult compares a stored run with a fresh simulation of it.
type ReplayResult struct {
	RunID          string          `json:"run_id"`
	ReplayRunID    string          `json:"replay_run_id"`
	StoredDigest   string          `json:"stored_digest"`
	ReplayedDigest string          `json:"replayed_digest"`
	StoredStatus   model.RunStatus `json:"stored_status"`
	ReplayStatus   model.RunStatus `json:"replay_status"`
	Deterministic  bool            `json:"deterministic"`
	ChangedNodes   []string        `json:"changed_nodes,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <run-id>",
		Short: "Re-run a stored run and verify its digest",
		Long: `Re-run a stored run as a simulation over the current database and
compare the result digest with the stored one.

Digests cover node statuses and outputs, validation findings and ledger
deltas, but not run ids or timestamps, so a replay over unchanged inputs
reproduces the stored digest exactly. Committed runs cannot be replayed
because their commit changed the ledger they read.

Exit codes:
  0 - Replay matches the stored run
  1 - Replay differs from the stored run
  2 - Command error (run not found, run was committed, database error)

Examples:
  consol replay run-0192f3c4
  consol replay run-0192f3c4 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from CONSOL_DB)")

	return cmd
}

func runReplay(opts *ReplayOptions, runID string, cmd *cobra.Command) error {
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

	ctx, cancel := signalContext(cmd)
	defer cancel()

	stored, err := st.LoadRun(ctx, runID)
	if store.IsNotFound(err) {
		msg := fmt.Sprintf("run not found: %s", runID)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load run", err)
	}
	if stored.Committed {
		msg := fmt.Sprintf("run %s was committed; its inputs no longer exist", runID)
		_ = formatter.Error(ErrCodeGeneric, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	logger := opts.logger(formatter.GetErrWriter(), cfg, slog.LevelWarn)
	rt, err := newRuntime(ctx, st, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.close()

	replayed, runErr := rt.manager.Run(ctx, run.Request{
		ProcessID: stored.ProcessID,
		RunType:   model.RunSimulation,
		Period:    stored.Period,
	})
	if replayed.RunID == "" {
		_ = formatter.Error(ErrCodeGeneric, runErr.Error(), nil)
		return WrapExitError(ExitCommandError, "replay not started", runErr)
	}
	formatter.VerboseLog("Replayed %s as %s", runID, replayed.RunID)

	// Digests include the run type; compare as if the replay were the
	// original kind of run.
	replayed.RunType = stored.RunType
	digest, err := model.RunDigest(replayed)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to digest replay", err)
	}

	result := ReplayResult{
		RunID:          runID,
		ReplayRunID:    replayed.RunID,
		StoredDigest:   stored.Digest,
		ReplayedDigest: digest,
		StoredStatus:   stored.Status,
		ReplayStatus:   replayed.Status,
		Deterministic:  digest == stored.Digest,
		ChangedNodes:   changedNodes(stored, replayed),
	}

	text := func(w io.Writer) {
		fmt.Fprintf(w, "Replay of %s (as %s)\n", result.RunID, result.ReplayRunID)
		fmt.Fprintf(w, "  stored:   %s %s\n", result.StoredStatus, result.StoredDigest)
		fmt.Fprintf(w, "  replayed: %s %s\n", result.ReplayStatus, result.ReplayedDigest)
		for _, id := range result.ChangedNodes {
			fmt.Fprintf(w, "  changed:  %s\n", id)
		}
		if result.Deterministic {
			fmt.Fprintln(w, "Digest matches")
		}
	}
	if !result.Deterministic {
		if err := formatter.Failure(ErrCodeReplayDiffers, "replay digest differs from stored run", result, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "replay digest differs from stored run")
	}
	return formatter.Success(result, text)
}

// changedNodes lists, in the replay's order, the nodes whose status or
// outputs differ between two runs, plus nodes only one run has.
func changedNodes(a, b model.RunResult) []string {
	var out []string
	seen := make(map[string]bool)
	order := append(append([]string(nil), b.Order...), a.Order...)
	for _, id := range order {
		if seen[id] {
			continue
		}
		seen[id] = true
		na, okA := a.Nodes[id]
		nb, okB := b.Nodes[id]
		if okA != okB || na.Status != nb.Status {
			out = append(out, id)
			continue
		}
		ca, errA := model.MarshalCanonical(na.Outputs)
		cb, errB := model.MarshalCanonical(nb.Outputs)
		if errA != nil || errB != nil || string(ca) != string(cb) {
			out = append(out, id)
		}
	}
	return out
}
