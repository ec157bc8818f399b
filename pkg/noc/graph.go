package noc

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/matzehuels/nocsched/pkg/errors"
)

// Graph returns a gonum view of the mesh links. Graph node i corresponds to
// the i-th router in [Topology.Nodes]. Terminal links are not included.
func (t *Topology) Graph() *simple.DirectedGraph {
	g := simple.NewDirectedGraph()
	for i := range t.nodes {
		g.AddNode(simple.Node(int64(i)))
	}
	for _, l := range t.links {
		from := simple.Node(int64(t.byID[l.Source]))
		to := simple.Node(int64(t.byID[l.Target]))
		g.SetEdge(g.NewEdge(from, to))
	}
	return g
}

// Validate checks that every router can reach every other router over mesh
// links. Dimension-order routing cannot deliver packets on a partitioned
// network, so a topology that fails this check is rejected before routing.
func (t *Topology) Validate() error {
	if len(t.nodes) == 0 {
		return errors.New(errors.ErrCodeInvalidTopology, "topology has no nodes")
	}
	if comps := t.Components(); len(comps) > 1 {
		groups := make([]string, len(comps))
		for i, c := range comps {
			sort.Strings(c)
			groups[i] = "{" + strings.Join(c, " ") + "}"
		}
		sort.Strings(groups)
		return errors.New(errors.ErrCodeInvalidTopology,
			"topology is not strongly connected: %d components %s", len(comps), strings.Join(groups, " "))
	}
	return nil
}

// ShortestHops returns the minimum number of mesh links between two routers,
// or -1 if target is unreachable. Used to cross-check routed paths.
func (t *Topology) ShortestHops(source, target string) int {
	si, ok := t.byID[source]
	if !ok {
		return -1
	}
	ti, ok := t.byID[target]
	if !ok {
		return -1
	}
	g := t.Graph()
	tree := path.DijkstraFrom(g.Node(int64(si)), g)
	nodes, _ := tree.To(int64(ti))
	if len(nodes) == 0 {
		return -1
	}
	return len(nodes) - 1
}

// nodeIDs maps gonum nodes back to router identifiers.
func (t *Topology) nodeIDs(nodes []graph.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = t.nodes[n.ID()].ID
	}
	return out
}

// Components returns the strongly connected groups of routers, each as a
// list of node IDs. A valid mesh has exactly one component.
func (t *Topology) Components() [][]string {
	sccs := topo.TarjanSCC(t.Graph())
	out := make([][]string, len(sccs))
	for i, c := range sccs {
		out[i] = t.nodeIDs(c)
	}
	return out
}
