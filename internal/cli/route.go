package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nocsched/pkg/noc/routing"
)

// routeCommand creates the route command.
func (c *CLI) routeCommand() *cobra.Command {
	var (
		in     inputOpts
		timing timingOpts
		bytes  int
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "route [source] [target]",
		Short: "Show the XY route between two routers",
		Long: `Show the dimension-order (X first, then Y) route between two routers.

With --all the complete routing table of the topology is printed instead.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			t, err := in.loadTopology()
			if err != nil {
				return err
			}

			if all {
				table, err := routing.Table(t)
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(table))
				for k := range table {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Printf("%-12s %s\n", k, strings.Join(table[k].Labels(), " "))
				}
				return nil
			}

			path, err := routing.XY(t, args[0], args[1])
			if err != nil {
				return err
			}
			printKeyValue("Route", path.String())
			printKeyValue("Links", strings.Join(path.Labels(), " "))
			printKeyValue("Hops", fmt.Sprint(len(path)))
			if shortest := t.ShortestHops(args[0], args[1]); shortest >= 0 && shortest < len(path) {
				printWarning("A shorter path of %d hops exists; the topology is not a full mesh", shortest)
			}
			if bytes > 0 {
				p := timing.params(cfg)
				printKeyValue("Flits", fmt.Sprint(p.Flits(bytes)))
				printKeyValue("Occupancy", fmt.Sprint(p.Occupancy(bytes, len(path))))
			}
			return nil
		},
	}

	in.registerTopology(cmd)
	timing.register(cmd)
	cmd.Flags().IntVar(&bytes, "bytes", 0, "also show flits and link occupancy for a payload of this size")
	cmd.Flags().BoolVar(&all, "all", false, "print the routing table for every pair of routers")

	return cmd
}
