package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nocsched/pkg/noc/routing"
	"github.com/matzehuels/nocsched/pkg/pipeline"
	"github.com/matzehuels/nocsched/pkg/render"
)

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		in      inputOpts
		output  string
		format  string
		route   string
		spacing float64
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Draw the topology, optionally highlighting a route",
		Example: `  nocsched render --mesh 4x4 -o noc.svg
  nocsched render -t noc.gml --route 0:15 -o route.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}
			t, err := in.loadTopology()
			if err != nil {
				return err
			}

			f, err := renderFormat(format, output)
			if err != nil {
				return err
			}

			opts := pipeline.RenderOptions{Format: f, Spacing: spacing}
			if route != "" {
				src, dst, ok := strings.Cut(route, ":")
				if !ok {
					return fmt.Errorf("invalid route %q (want SOURCE:TARGET)", route)
				}
				if opts.Highlight, err = routing.XY(t, src, dst); err != nil {
					return err
				}
			}

			runner, err := c.newRunner(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			data, hit, err := runner.RenderWithCacheInfo(ctx, t, opts)
			if err != nil {
				return err
			}
			if output == "" {
				_, err := os.Stdout.Write(data)
				return err
			}
			if err := writeOutput(output, data); err != nil {
				return err
			}
			printSuccess("Rendered %d routers %s", t.NodeCount(), StyleDim.Render("("+cacheLabel(hit)+")"))
			printFile(output)
			return nil
		},
	}

	in.registerTopology(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: svg, png, pdf, dot (default from extension, else svg)")
	cmd.Flags().StringVar(&route, "route", "", "highlight the XY route SOURCE:TARGET")
	cmd.Flags().Float64Var(&spacing, "spacing", 0, "distance between routers in inches")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// renderFormat resolves the output format from the flag or file extension.
func renderFormat(format, output string) (render.Format, error) {
	if format != "" {
		return render.ParseFormat(format)
	}
	if i := strings.LastIndex(output, "."); i >= 0 && i < len(output)-1 {
		if f, err := render.ParseFormat(strings.ToLower(output[i+1:])); err == nil {
			return f, nil
		}
	}
	return render.FormatSVG, nil
}
