package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/api"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database string
	Addr     string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the process builder HTTP API",
		Long: `Serve the HTTP API used by the process builder: graph editing, node
catalog, background runs, validation reports, audit trails and reference
data maintenance.

The server stops on SIGINT or SIGTERM after in-flight requests and
background runs finish.

Examples:
  consol serve
  consol serve --addr :9090 --db ./consol.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from CONSOL_DB)")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from CONSOL_HTTP_ADDR)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	addr := cfg.HTTPAddr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	st, err := openStore(dbPath(opts.Database, cfg))
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	logger := opts.logger(cmd.ErrOrStderr(), cfg, slog.LevelInfo)
	rt, err := newRuntime(ctx, st, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.close()

	srv := api.New(st, rt.registry, rt.manager, api.WithLogger(logger))
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return WrapExitError(ExitCommandError, "http server failed", err)
	}
	return nil
}
