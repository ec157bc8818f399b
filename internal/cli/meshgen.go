package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	nocio "github.com/matzehuels/nocsched/pkg/io"
	"github.com/matzehuels/nocsched/pkg/noc"
)

// meshgenCommand creates the meshgen command.
func (c *CLI) meshgenCommand() *cobra.Command {
	var (
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "meshgen COLSxROWS",
		Short: "Generate a 2D mesh topology file",
		Long: `Generate a 2D mesh topology file.

Routers are numbered row-major from the top-left corner and every pair of
neighbours is connected by one link in each direction.`,
		Example: `  nocsched meshgen 4x4 -o noc.gml
  nocsched meshgen 3 -f yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, rows, err := parseMeshSize(args[0])
			if err != nil {
				return err
			}
			t, err := noc.NewMesh(cols, rows)
			if err != nil {
				return err
			}

			f := nocio.FormatGML
			switch {
			case format != "":
				f, err = nocio.ParseFormat(format)
			case output != "":
				f, err = nocio.FormatFromPath(output)
			}
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := nocio.WriteTopology(&buf, t, f); err != nil {
				return err
			}
			if output == "" {
				_, err := os.Stdout.Write(buf.Bytes())
				return err
			}
			if err := writeOutput(output, buf.Bytes()); err != nil {
				return err
			}
			printSuccess("Generated %s mesh (%d routers, %d links)",
				StyleHighlight.Render(fmt.Sprintf("%dx%d", cols, rows)), t.NodeCount(), t.LinkCount())
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: gml, yaml, json (default from extension, else gml)")

	return cmd
}
