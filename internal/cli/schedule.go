package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nocsched/pkg/config"
	"github.com/matzehuels/nocsched/pkg/pipeline"
	"github.com/matzehuels/nocsched/pkg/solver"
	"github.com/matzehuels/nocsched/pkg/store"
)

const (
	formatCSV  = "csv"
	formatJSON = "json"
)

// scheduleOpts holds the command-line flags for the schedule command.
type scheduleOpts struct {
	input  inputOpts
	timing timingOpts

	// solver overrides
	model   string
	backend string
	binary  string
	timeout time.Duration
	replay  string // saved solver output to use instead of running the solver

	outDir    string
	format    string
	simInputs bool
	noArchive bool
	noCache   bool
	refresh   bool
}

// scheduleCommand creates the schedule command.
func (c *CLI) scheduleCommand() *cobra.Command {
	opts := scheduleOpts{format: formatCSV, simInputs: true}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute a conflict-free packet schedule with MiniZinc",
		Long: `Compute a conflict-free packet schedule.

The occupancy model is built as for "nocsched model", handed to MiniZinc and
the returned release times are paired with their packets. The schedule is
written as CSV or JSON, one simulation input file per router is generated and
the run is archived so it can be inspected later.

Solver outputs are cached by the hash of the exact data file, so re-running
an unchanged problem does not invoke the solver again.`,
		Example: `  nocsched schedule --mesh 4x4 -a app.gml -m mapping.txt --solver-model CM.mzn
  nocsched schedule -t noc.gml -a app.gml -m map.txt --replay solver.out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatCSV && opts.format != formatJSON {
				return fmt.Errorf("invalid format: %s (must be 'csv' or 'json')", opts.format)
			}
			return c.runSchedule(cmd.Context(), &opts)
		},
	}

	opts.input.register(cmd)
	opts.timing.register(cmd)
	cmd.Flags().StringVar(&opts.model, "solver-model", "", "MiniZinc scheduling model (.mzn)")
	cmd.Flags().StringVar(&opts.backend, "solver-backend", "", "MiniZinc solver backend (default Gecode)")
	cmd.Flags().StringVar(&opts.binary, "solver-binary", "", "minizinc executable")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "solver timeout (default from config, 10m)")
	cmd.Flags().StringVar(&opts.replay, "replay", "", "use saved solver output instead of running the solver")
	cmd.Flags().StringVarP(&opts.outDir, "output-dir", "o", "", "directory for the schedule and simulation inputs")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "schedule format: csv, json")
	cmd.Flags().BoolVar(&opts.simInputs, "sim-inputs", opts.simInputs, "write one simulation input file per router")
	cmd.Flags().BoolVar(&opts.noArchive, "no-archive", false, "do not archive the run")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached solver output")

	return cmd
}

// newSolver returns the solver selected by config and flags.
func (o *scheduleOpts) newSolver(cfg *config.Config) (solver.Solver, error) {
	if o.replay != "" {
		out, err := os.ReadFile(o.replay)
		if err != nil {
			return nil, fmt.Errorf("read solver output: %w", err)
		}
		return solver.Static(out), nil
	}
	mzn := cfg.MiniZinc()
	if o.model != "" {
		mzn.ModelPath = o.model
	}
	if o.backend != "" {
		mzn.Backend = o.backend
	}
	if o.binary != "" {
		mzn.Binary = o.binary
	}
	if o.timeout != 0 {
		mzn.Timeout = o.timeout
	}
	if mzn.ModelPath == "" {
		return nil, fmt.Errorf("no solver model: pass --solver-model or set [solver] model in the config")
	}
	return mzn, nil
}

func (c *CLI) runSchedule(ctx context.Context, opts *scheduleOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	in, err := opts.input.load()
	if err != nil {
		return err
	}
	s, err := opts.newSolver(cfg)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := opts.timing.options(cfg)
	popts.Solver = s
	popts.Refresh = opts.refresh

	result, err := runner.Model(ctx, in, popts)
	if err != nil {
		return err
	}
	printModelSummary(result)

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Solving with %s...", solver.IDOf(s)))
	spinner.Start()
	err = runner.SolveResult(ctx, in, result, popts)
	if err != nil {
		spinner.StopWithError("Solver failed")
		return err
	}
	spinner.Stop()

	printSuccess("Scheduled %d packets %s", len(result.Schedule.Entries), StyleDim.Render("("+cacheLabel(result.CacheInfo.SolveHit)+", "+result.Stats.SolveTime.Round(time.Millisecond).String()+")"))
	for _, w := range result.Warnings {
		printWarning("%s", w)
	}

	outDir := opts.outDir
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	var buf bytes.Buffer
	if opts.format == formatJSON {
		err = result.Schedule.WriteJSON(&buf)
	} else {
		err = result.Schedule.WriteCSV(&buf)
	}
	if err != nil {
		return err
	}
	schedulePath := filepath.Join(outDir, "schedule."+opts.format)
	if err := writeOutput(schedulePath, buf.Bytes()); err != nil {
		return err
	}
	printFile(schedulePath)

	if opts.simInputs {
		simDir := cfg.Output.SimDir
		if !filepath.IsAbs(simDir) {
			simDir = filepath.Join(outDir, simDir)
		}
		paths, err := result.Schedule.WriteSimInputs(simDir, in.Topology)
		if err != nil {
			return err
		}
		printFile(fmt.Sprintf("%s %s", simDir, StyleDim.Render(fmt.Sprintf("(%d files)", len(paths)))))
	}

	if !opts.noArchive {
		id, err := c.archive(ctx, cfg, result)
		if err != nil {
			printWarning("Run not archived: %v", err)
			return nil
		}
		printNewline()
		printNextStep("Inspect", "nocsched inspect "+id)
	}
	return nil
}

// archive saves a scheduled result in the configured run store.
func (c *CLI) archive(ctx context.Context, cfg *config.Config, r *pipeline.Result) (string, error) {
	st, err := store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return "", err
	}
	defer st.Close()

	run := &store.Run{
		InputHash:    r.InputHash,
		SolverID:     r.SolverID,
		Hyperperiod:  r.Hyperperiod,
		NumLinks:     r.Stats.UsedLinks,
		SkippedLinks: r.Stats.SkippedLinks,
		NumPackets:   r.Stats.NumPackets,
		DZN:          string(r.DZN),
		Schedule:     r.Schedule,
		Warnings:     r.Warnings,
	}
	if err := st.Save(ctx, run); err != nil {
		return "", err
	}
	c.Logger.Debug("archived run", "id", run.ID)
	return run.ID, nil
}
