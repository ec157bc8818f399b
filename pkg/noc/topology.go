package noc

import (
	"fmt"

	"github.com/matzehuels/nocsched/pkg/errors"
)

// Local is the display name of the processing-element side of terminal links.
const Local = "L"

// LinkKind distinguishes router-to-router links from the synthetic terminal
// links that model packet injection and ejection.
type LinkKind int

const (
	// LinkMesh is a directed channel between two neighbouring routers.
	LinkMesh LinkKind = iota
	// LinkIngress carries packets from a node's processing element into its router.
	LinkIngress
	// LinkEgress carries packets from a router out to its processing element.
	LinkEgress
)

// String returns a short lowercase name for the kind.
func (k LinkKind) String() string {
	switch k {
	case LinkMesh:
		return "mesh"
	case LinkIngress:
		return "ingress"
	case LinkEgress:
		return "egress"
	default:
		return fmt.Sprintf("LinkKind(%d)", int(k))
	}
}

// Coord is a position on the mesh grid.
type Coord struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Node is a router on the mesh.
type Node struct {
	ID string `json:"id" yaml:"id"`
	X  int    `json:"x" yaml:"x"`
	Y  int    `json:"y" yaml:"y"`
}

// Coord returns the node's grid position.
func (n Node) Coord() Coord { return Coord{X: n.X, Y: n.Y} }

// Link is a directed channel. For terminal links one endpoint is [Local].
type Link struct {
	Source string   `json:"source" yaml:"source"`
	Target string   `json:"target" yaml:"target"`
	Label  string   `json:"label" yaml:"label"`
	Kind   LinkKind `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// IsTerminal reports whether the link is a synthetic ingress or egress link.
func (l Link) IsTerminal() bool { return l.Kind != LinkMesh }

// IngressLink returns the synthetic link from node's processing element into its router.
func IngressLink(node string) Link {
	return Link{Source: Local, Target: node, Label: Local + "-" + node, Kind: LinkIngress}
}

// EgressLink returns the synthetic link from node's router to its processing element.
func EgressLink(node string) Link {
	return Link{Source: node, Target: Local, Label: node + "-" + Local, Kind: LinkEgress}
}

// DefaultLabel returns the conventional label "{source}-{target}" for a mesh link.
func DefaultLabel(source, target string) string {
	return source + "-" + target
}

type linkKey struct{ from, to string }

// Topology is an immutable mesh network: routers with grid coordinates and
// the directed links between them, kept in their declaration order.
//
// The zero value is not usable - use [New] or [NewMesh].
type Topology struct {
	nodes  []Node
	links  []Link
	byID   map[string]int
	byXY   map[Coord]int
	byPair map[linkKey]int
}

// New builds a topology from nodes and mesh links, preserving both orders.
// Links with an empty label receive [DefaultLabel].
//
// Returns an ErrCodeInvalidTopology error for invalid or duplicate node IDs,
// duplicate coordinates, unknown link endpoints, self-loops, duplicate labels
// or parallel links between the same ordered pair of nodes.
func New(nodes []Node, links []Link) (*Topology, error) {
	t := &Topology{
		nodes:  make([]Node, 0, len(nodes)),
		links:  make([]Link, 0, len(links)),
		byID:   make(map[string]int, len(nodes)),
		byXY:   make(map[Coord]int, len(nodes)),
		byPair: make(map[linkKey]int, len(links)),
	}

	for _, n := range nodes {
		if err := errors.ValidateIdentifier("node", n.ID); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidTopology, err, "invalid node")
		}
		if _, dup := t.byID[n.ID]; dup {
			return nil, errors.New(errors.ErrCodeInvalidTopology, "duplicate node %q", n.ID)
		}
		if other, dup := t.byXY[n.Coord()]; dup {
			return nil, errors.New(errors.ErrCodeInvalidTopology,
				"nodes %q and %q share coordinates (%d,%d)", t.nodes[other].ID, n.ID, n.X, n.Y)
		}
		t.byID[n.ID] = len(t.nodes)
		t.byXY[n.Coord()] = len(t.nodes)
		t.nodes = append(t.nodes, n)
	}

	labels := make(map[string]bool, len(links))
	for _, l := range links {
		if _, ok := t.byID[l.Source]; !ok {
			return nil, errors.New(errors.ErrCodeInvalidTopology, "link %q: unknown source node %q", l.Label, l.Source)
		}
		if _, ok := t.byID[l.Target]; !ok {
			return nil, errors.New(errors.ErrCodeInvalidTopology, "link %q: unknown target node %q", l.Label, l.Target)
		}
		if l.Source == l.Target {
			return nil, errors.New(errors.ErrCodeInvalidTopology, "link %q: self-loop on node %q", l.Label, l.Source)
		}
		if l.Label == "" {
			l.Label = DefaultLabel(l.Source, l.Target)
		}
		if err := errors.ValidateLabel(l.Label); err != nil {
			return nil, err
		}
		if labels[l.Label] {
			return nil, errors.New(errors.ErrCodeInvalidTopology, "duplicate link label %q", l.Label)
		}
		key := linkKey{l.Source, l.Target}
		if _, dup := t.byPair[key]; dup {
			return nil, errors.New(errors.ErrCodeInvalidTopology, "parallel links %s->%s", l.Source, l.Target)
		}
		l.Kind = LinkMesh
		labels[l.Label] = true
		t.byPair[key] = len(t.links)
		t.links = append(t.links, l)
	}

	return t, nil
}

// Nodes returns the routers in declaration order.
// The returned slice is a copy and may be modified by the caller.
func (t *Topology) Nodes() []Node {
	out := make([]Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Links returns the mesh links in declaration order.
// The returned slice is a copy and may be modified by the caller.
func (t *Topology) Links() []Link {
	out := make([]Link, len(t.links))
	copy(out, t.links)
	return out
}

// NodeCount returns the number of routers.
func (t *Topology) NodeCount() int { return len(t.nodes) }

// LinkCount returns the number of mesh links.
func (t *Topology) LinkCount() int { return len(t.links) }

// Node returns the router with the given ID.
func (t *Topology) Node(id string) (Node, bool) {
	i, ok := t.byID[id]
	if !ok {
		return Node{}, false
	}
	return t.nodes[i], true
}

// NodeAt returns the router placed at (x, y).
func (t *Topology) NodeAt(x, y int) (Node, bool) {
	i, ok := t.byXY[Coord{X: x, Y: y}]
	if !ok {
		return Node{}, false
	}
	return t.nodes[i], true
}

// Link returns the directed mesh link from source to target.
func (t *Topology) Link(source, target string) (Link, bool) {
	i, ok := t.byPair[linkKey{source, target}]
	if !ok {
		return Link{}, false
	}
	return t.links[i], true
}

// Bounds returns the smallest and largest coordinates present.
// Both are zero for an empty topology.
func (t *Topology) Bounds() (lo, hi Coord) {
	for i, n := range t.nodes {
		if i == 0 {
			lo, hi = n.Coord(), n.Coord()
			continue
		}
		lo.X, lo.Y = min(lo.X, n.X), min(lo.Y, n.Y)
		hi.X, hi.Y = max(hi.X, n.X), max(hi.Y, n.Y)
	}
	return lo, hi
}
