package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nocsched/pkg/config"
	nocio "github.com/matzehuels/nocsched/pkg/io"
	"github.com/matzehuels/nocsched/pkg/noc"
	"github.com/matzehuels/nocsched/pkg/occupancy"
	"github.com/matzehuels/nocsched/pkg/pipeline"
	"github.com/matzehuels/nocsched/pkg/traffic"
)

// inputOpts holds the flags that select the scheduling inputs.
type inputOpts struct {
	topology string // topology file (.gml, .yaml, .json)
	mesh     string // generated mesh "COLSxROWS", alternative to topology
	app      string // application file
	mapping  string // task to node mapping file
}

func (o *inputOpts) registerTopology(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.topology, "topology", "t", "", "topology file (.gml, .yaml, .json)")
	cmd.Flags().StringVar(&o.mesh, "mesh", "", "generate a COLSxROWS mesh instead of reading a topology")
	cmd.MarkFlagsMutuallyExclusive("topology", "mesh")
}

func (o *inputOpts) register(cmd *cobra.Command) {
	o.registerTopology(cmd)
	cmd.Flags().StringVarP(&o.app, "app", "a", "", "application file (.gml, .yaml, .json)")
	cmd.Flags().StringVarP(&o.mapping, "mapping", "m", "", "task to node mapping file")
	_ = cmd.MarkFlagRequired("app")
	_ = cmd.MarkFlagRequired("mapping")
}

// loadTopology reads the topology file or generates the mesh.
func (o *inputOpts) loadTopology() (*noc.Topology, error) {
	switch {
	case o.topology != "":
		return nocio.ImportTopology(o.topology)
	case o.mesh != "":
		cols, rows, err := parseMeshSize(o.mesh)
		if err != nil {
			return nil, err
		}
		return noc.NewMesh(cols, rows)
	default:
		return nil, fmt.Errorf("either --topology or --mesh is required")
	}
}

// load reads all three inputs.
func (o *inputOpts) load() (pipeline.Input, error) {
	t, err := o.loadTopology()
	if err != nil {
		return pipeline.Input{}, err
	}
	app, err := nocio.ImportApplication(o.app)
	if err != nil {
		return pipeline.Input{}, err
	}
	m, err := nocio.ImportMapping(o.mapping)
	if err != nil {
		return pipeline.Input{}, err
	}
	return pipeline.Input{Topology: t, Application: app, Mapping: m}, nil
}

// parseMeshSize parses "COLSxROWS" or a single number for a square mesh.
func parseMeshSize(s string) (cols, rows int, err error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) == 1 {
		parts = append(parts, parts[0])
	}
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid mesh size %q (want COLSxROWS)", s)
	}
	if cols, err = strconv.Atoi(parts[0]); err != nil || cols <= 0 {
		return 0, 0, fmt.Errorf("invalid mesh size %q: columns must be a positive integer", s)
	}
	if rows, err = strconv.Atoi(parts[1]); err != nil || rows <= 0 {
		return 0, 0, fmt.Errorf("invalid mesh size %q: rows must be a positive integer", s)
	}
	return cols, rows, nil
}

// timingOpts holds the flags that override the [timing] config table.
type timingOpts struct {
	linkWidth   int
	headerFlits int
	routingTime int
	workers     int
	pad         int
}

func (o *timingOpts) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.linkWidth, "link-width", 0, "payload bytes per flit (default from config, 4)")
	cmd.Flags().IntVar(&o.headerFlits, "header-flits", -1, "header flits per packet (default from config, 1)")
	cmd.Flags().IntVar(&o.routingTime, "routing-time", -1, "router cycles per hop (default from config, 4)")
	cmd.Flags().IntVar(&o.workers, "workers", 0, "concurrent workers for routing and matrix fill")
	cmd.Flags().IntVar(&o.pad, "pad", 0, "column width of exported matrices (default from config, 7)")
}

// options merges config values and flag overrides into pipeline options.
func (o *timingOpts) options(cfg *config.Config) pipeline.Options {
	timing := cfg.Timing
	if o.linkWidth > 0 {
		timing.LinkWidth = o.linkWidth
	}
	if o.headerFlits >= 0 {
		timing.HeaderFlits = o.headerFlits
	}
	if o.routingTime >= 0 {
		timing.RoutingTime = o.routingTime
	}
	if o.workers > 0 {
		timing.Workers = o.workers
	}
	pad := cfg.Solver.Pad
	if o.pad > 0 {
		pad = o.pad
	}
	return pipeline.Options{Timing: timing, Pad: pad}
}

// params returns the effective timing parameters.
func (o *timingOpts) params(cfg *config.Config) occupancy.Params {
	p := o.options(cfg).Timing
	p.SetDefaults()
	return p
}

// flowLabel renders a packet's flow endpoints as "src → dst".
func flowLabel(p traffic.Packet) string {
	return p.Source + " " + arrow + " " + p.Target
}
