package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/config"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/engine"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/nodes"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/run"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	EnvFile string // .env file read before resolving configuration

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the consol CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "consol",
		Short: "consol - IFRS group consolidation workflows",
		Long: `Build, validate and run multi-entity consolidation workflows.

A consolidation process is a graph of typed calculation nodes (profit and
loss, FX translation, intercompany elimination, NCI, ...) executed in
dependency order over the group's ledger. Simulations leave the ledger
untouched; commits post the journal entries atomically.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "environment file read before configuration")

	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewOrderCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Config resolves the runtime configuration once per invocation.
func (o *RootOptions) Config() (config.Config, error) {
	if o.cfg != nil {
		return *o.cfg, nil
	}
	var files []string
	if o.EnvFile != "" {
		files = append(files, o.EnvFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	o.cfg = &cfg
	return cfg, nil
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// logger writes structured logs to w. Only warnings are shown unless
// verbose is set; min lowers that floor for long-running commands.
func (o *RootOptions) logger(w io.Writer, cfg config.Config, min slog.Level) *slog.Logger {
	level := min
	if o.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// dbPath returns the flag value when set, else the configured path.
func dbPath(flag string, cfg config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.DBPath
}

// openStore opens the database, mapping failures to ExitCommandError.
func openStore(path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to open database %s", path), err)
	}
	return st, nil
}

// runtime bundles what run-executing commands share.
type runtime struct {
	registry *nodes.Registry
	manager  *run.Manager
	close    func()
}

// newRuntime builds a run manager over st. The audit clock resumes after
// the highest stored sequence. With a Redis address configured, run locks
// are also taken in Redis so separate processes exclude each other.
func newRuntime(ctx context.Context, st *store.Store, cfg config.Config, logger *slog.Logger, extra ...run.Option) (*runtime, error) {
	registry, err := nodes.NewRegistry()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build node registry", err)
	}
	seq, err := st.MaxAuditSeq(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read audit log", err)
	}

	var locker run.Locker = run.NewLocalLocker()
	closeFn := func() {}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to reach redis at %s", cfg.RedisAddr), err)
		}
		locker = run.MultiLocker{locker, run.NewRedisLocker(rdb, cfg.LockTTL)}
		closeFn = func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("error closing redis client", "error", err)
			}
		}
		logger.Debug("using redis run locks", "addr", cfg.RedisAddr)
	}

	opts := []run.Option{
		run.WithLocker(locker),
		run.WithClock(engine.NewClockAt(seq)),
		run.WithLogger(logger),
		run.WithGroupEntity(cfg.GroupEntity),
		run.WithTolerance(cfg.Tolerance),
		run.WithRunnerOptions(
			engine.WithParallelism(cfg.Parallelism),
			engine.WithNodeTimeout(cfg.NodeTimeout),
		),
	}
	return &runtime{
		registry: registry,
		manager:  run.NewManager(st, registry, append(opts, extra...)...),
		close:    closeFn,
	}, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
