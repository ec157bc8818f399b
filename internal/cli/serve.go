package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nocsched/internal/server"
	"github.com/matzehuels/nocsched/pkg/pipeline"
	"github.com/matzehuels/nocsched/pkg/solver"
	"github.com/matzehuels/nocsched/pkg/store"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr    string
	model   string
	noCache bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve model building and scheduling over HTTP",
		Long: `Serve model building and scheduling over HTTP.

Routes:
  GET    /healthz
  POST   /v1/models           build a model and return the data file
  POST   /v1/schedules        build, solve and archive a schedule
  GET    /v1/schedules        list archived runs
  GET    /v1/schedules/{id}   fetch one run

Cache, archive and solver come from the configuration file. Without a solver
model, POST /v1/schedules answers 503.`,
		Example: `  nocsched serve --addr :9090 --solver-model CM.mzn`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}

			runner, err := c.newRunner(ctx, cfg, opts.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			st, err := store.Open(ctx, cfg.StoreConfig())
			if err != nil {
				return err
			}
			defer st.Close()

			var s solver.Solver
			mzn := cfg.MiniZinc()
			if opts.model != "" {
				mzn.ModelPath = opts.model
			}
			if mzn.ModelPath != "" {
				s = mzn
			} else {
				printWarning("No solver model configured; scheduling is disabled")
			}

			srv := server.New(runner, st, s, c.Logger)
			srv.MaxBodyBytes = cfg.Server.MaxBodyBytes
			srv.ShutdownTimeout = time.Duration(cfg.Server.ShutdownTimeout)
			srv.Defaults = pipeline.Options{Timing: cfg.Timing, Pad: cfg.Solver.Pad}

			addr := cfg.Server.Addr
			if opts.addr != "" {
				addr = opts.addr
			}
			printInfo("Listening on %s", StyleHighlight.Render(addr))
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&opts.model, "solver-model", "", "MiniZinc scheduling model (.mzn)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}
