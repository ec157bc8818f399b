package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nocsched/pkg/pipeline"
	"github.com/matzehuels/nocsched/pkg/solver"
)

// modelOpts holds the command-line flags for the model command.
type modelOpts struct {
	input   inputOpts
	timing  timingOpts
	output  string // data file path, "-" for stdout
	verify  bool   // parse the written file back and compare with the model
	noCache bool
}

// modelCommand creates the model command.
func (c *CLI) modelCommand() *cobra.Command {
	var opts modelOpts

	cmd := &cobra.Command{
		Use:   "model",
		Short: "Build the occupancy model and export it as a MiniZinc data file",
		Long: `Build the occupancy model and export it as a MiniZinc data file.

The topology, application and mapping are read, every packet of one
hyperperiod is routed and the occupancy, deadline and release matrices are
written in .dzn syntax. Rows of links no packet uses are left out.`,
		Example: `  nocsched model --mesh 3x3 -a app.gml -m mapping.txt -o model.dzn
  nocsched model -t noc.gml -a app.yaml -m mapping.yaml --link-width 8 -o -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runModel(cmd.Context(), &opts)
		},
	}

	opts.input.register(cmd)
	opts.timing.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file, - for stdout (default <output dir>/model.dzn)")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "parse the exported file back and check it against the model")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runModel(ctx context.Context, opts *modelOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	in, err := opts.input.load()
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	result, err := runner.Model(ctx, in, opts.timing.options(cfg))
	if err != nil {
		return err
	}
	prog.done("Built occupancy model")

	if opts.verify {
		d, err := solver.ParseDZN(bytes.NewReader(result.DZN))
		if err != nil {
			return err
		}
		if err := d.Check(result.Model); err != nil {
			return err
		}
		c.Logger.Debug("verified data file")
	}

	if opts.output == "-" {
		_, err := os.Stdout.Write(result.DZN)
		return err
	}
	path := opts.output
	if path == "" {
		path = filepath.Join(cfg.Output.Dir, "model.dzn")
	}
	if err := writeOutput(path, result.DZN); err != nil {
		return err
	}

	printModelSummary(result)
	printFile(path)
	return nil
}

// printModelSummary prints the model dimensions.
func printModelSummary(r *pipeline.Result) {
	printSuccess("Model for %s packets over hyperperiod %s",
		StyleNumber.Render(fmt.Sprint(r.Stats.NumPackets)), StyleNumber.Render(fmt.Sprint(r.Hyperperiod)))
	printStats(r.Stats, r.CacheInfo.ExportHit)
}

// writeOutput writes data to path, creating parent directories.
func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
