// Package routing computes deterministic paths across a mesh [noc.Topology].
//
// Only static dimension-order (XY) routing is provided: a packet first
// travels along the X axis until it reaches the target column, then along the
// Y axis. For a given pair of coordinates the path is unique.
//
//	path, err := routing.XY(topo, "0", "3")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(path.Labels()) // [0-1 1-3]
package routing

import (
	"fmt"

	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/noc"
)

// Path is the ordered sequence of links a packet traverses.
type Path []noc.Link

// Labels returns the link labels in traversal order.
func (p Path) Labels() []string {
	out := make([]string, len(p))
	for i, l := range p {
		out[i] = l.Label
	}
	return out
}

// Validate checks that consecutive links share a node and that the path
// starts at source and ends at target. An empty path is valid only when
// source equals target.
func (p Path) Validate(source, target string) error {
	if len(p) == 0 {
		if source != target {
			return errors.New(errors.ErrCodeInconsistentModel, "empty path from %s to %s", source, target)
		}
		return nil
	}
	if p[0].Source != source {
		return errors.New(errors.ErrCodeInconsistentModel, "path starts at %s, want %s", p[0].Source, source)
	}
	for i := 1; i < len(p); i++ {
		if p[i-1].Target != p[i].Source {
			return errors.New(errors.ErrCodeInconsistentModel,
				"path broken between %s and %s", p[i-1].Label, p[i].Label)
		}
	}
	if last := p[len(p)-1]; last.Target != target {
		return errors.New(errors.ErrCodeInconsistentModel, "path ends at %s, want %s", last.Target, target)
	}
	return nil
}

// String renders the path as "a -> b -> c".
func (p Path) String() string {
	if len(p) == 0 {
		return "[]"
	}
	s := p[0].Source
	for _, l := range p {
		s += " -> " + l.Target
	}
	return s
}

// Hops returns the Manhattan distance between two routers, which is the
// length of every XY path between them.
func Hops(a, b noc.Node) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// XY returns the dimension-order path from source to target.
//
// At each step the router moves one column towards target.X; once the column
// matches it moves one row towards target.Y. The next router is looked up by
// coordinates and the link by the exact (current, next) pair.
//
// Errors:
//   - ErrCodeNodeNotFound if source or target is not in the topology
//   - ErrCodeInvalidTopology if an intermediate router or link is missing
func XY(t *noc.Topology, source, target string) (Path, error) {
	cur, ok := t.Node(source)
	if !ok {
		return nil, errors.New(errors.ErrCodeNodeNotFound, "source node %q not in topology", source)
	}
	dst, ok := t.Node(target)
	if !ok {
		return nil, errors.New(errors.ErrCodeNodeNotFound, "target node %q not in topology", target)
	}

	path := make(Path, 0, Hops(cur, dst))
	for steps := 0; cur.ID != dst.ID; steps++ {
		// A well-formed mesh never needs more hops than routers.
		if steps >= t.NodeCount() {
			return nil, errors.New(errors.ErrCodeInvalidTopology,
				"route %s -> %s did not converge after %d hops", source, target, steps)
		}

		next, err := step(t, cur, dst)
		if err != nil {
			return nil, err
		}
		link, ok := t.Link(cur.ID, next.ID)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidTopology,
				"route %s -> %s: no link %s -> %s", source, target, cur.ID, next.ID)
		}
		path = append(path, link)
		cur = next
	}
	return path, nil
}

// step picks the neighbour of cur one unit closer to dst, X first.
func step(t *noc.Topology, cur, dst noc.Node) (noc.Node, error) {
	x, y := cur.X, cur.Y
	switch {
	case cur.X != dst.X:
		x += sign(dst.X - cur.X)
	case cur.Y != dst.Y:
		y += sign(dst.Y - cur.Y)
	default:
		// Same coordinates but different IDs cannot happen in a valid topology.
		return dst, nil
	}
	next, ok := t.NodeAt(x, y)
	if !ok {
		return noc.Node{}, errors.New(errors.ErrCodeInvalidTopology,
			"no router at (%d,%d) between %s and %s", x, y, cur.ID, dst.ID)
	}
	return next, nil
}

// Table routes every ordered pair of distinct routers. Keys are
// "source->target". Used by the CLI to dump a full routing table.
func Table(t *noc.Topology) (map[string]Path, error) {
	nodes := t.Nodes()
	out := make(map[string]Path, len(nodes)*len(nodes))
	for _, a := range nodes {
		for _, b := range nodes {
			if a.ID == b.ID {
				continue
			}
			p, err := XY(t, a.ID, b.ID)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprintf("%s->%s", a.ID, b.ID)] = p
		}
	}
	return out, nil
}

func sign(v int) int {
	if v < 0 {
		return -1
	}
	return 1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
