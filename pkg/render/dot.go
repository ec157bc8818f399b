package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/nocsched/pkg/noc"
	"github.com/matzehuels/nocsched/pkg/noc/routing"
)

// Options controls DOT generation.
type Options struct {
	// Highlight marks the links of a routed path and its end routers.
	Highlight routing.Path
	// Spacing is the distance between neighbouring routers in inches.
	// Zero means 1.5.
	Spacing float64
	// Coordinates adds "(x,y)" to router labels.
	Coordinates bool
}

const (
	defaultSpacing = 1.5
	highlightColor = "#d62728"
	endpointColor  = "#fdd0a2"
)

// ToDOT returns DOT source for t. Routers are placed with y growing
// downwards, matching the row-major numbering of generated meshes.
func ToDOT(t *noc.Topology, opts Options) string {
	spacing := opts.Spacing
	if spacing <= 0 {
		spacing = defaultSpacing
	}

	hot := make(map[string]bool, len(opts.Highlight))
	for _, l := range opts.Highlight {
		hot[l.Label] = true
	}
	var src, dst string
	if len(opts.Highlight) > 0 {
		src = opts.Highlight[0].Source
		dst = opts.Highlight[len(opts.Highlight)-1].Target
	}

	var buf bytes.Buffer
	buf.WriteString("digraph noc {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, width=0.6, height=0.6, fixedsize=true];\n")
	buf.WriteString("  edge [arrowsize=0.5, fontsize=9, color=\"#888888\"];\n")
	buf.WriteString("\n")

	for _, n := range t.Nodes() {
		attrs := []string{
			fmt.Sprintf("label=%q", nodeLabel(n, opts.Coordinates)),
			fmt.Sprintf("pos=\"%.2f,%.2f!\"", float64(n.X)*spacing, float64(-n.Y)*spacing),
		}
		if n.ID == src || n.ID == dst {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", endpointColor))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, l := range t.Links() {
		attrs := []string{fmt.Sprintf("tooltip=%q", l.Label)}
		if hot[l.Label] {
			attrs = append(attrs, fmt.Sprintf("color=%q", highlightColor), "penwidth=2.5")
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", l.Source, l.Target, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(n noc.Node, coords bool) string {
	if !coords {
		return n.ID
	}
	return fmt.Sprintf("%s\n(%d,%d)", n.ID, n.X, n.Y)
}
