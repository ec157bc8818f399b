package occupancy

import (
	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/noc"
)

// Enumerate returns the canonical row order of the model: every mesh link in
// topology order, followed by the ingress and egress terminal link of each
// node in topology order.
func Enumerate(t *noc.Topology) []noc.Link {
	nodes := t.Nodes()
	links := make([]noc.Link, 0, t.LinkCount()+2*len(nodes))
	links = append(links, t.Links()...)
	for _, n := range nodes {
		links = append(links, noc.IngressLink(n.ID), noc.EgressLink(n.ID))
	}
	return links
}

type pair struct{ from, to string }

// Index maps links to their row in an enumerated link list.
type Index struct {
	byLabel map[string]int
	mesh    map[pair]int
	ingress map[string]int
	egress  map[string]int
}

// NewIndex indexes links by label, by node pair for mesh links, and by node
// for terminal links. Duplicate labels are rejected because rows are
// identified by label in solver data.
func NewIndex(links []noc.Link) (*Index, error) {
	ix := &Index{
		byLabel: make(map[string]int, len(links)),
		mesh:    make(map[pair]int, len(links)),
		ingress: make(map[string]int),
		egress:  make(map[string]int),
	}
	for i, l := range links {
		if _, dup := ix.byLabel[l.Label]; dup {
			return nil, errors.New(errors.ErrCodeInvalidTopology, "duplicate link label %q at row %d", l.Label, i)
		}
		ix.byLabel[l.Label] = i
		switch l.Kind {
		case noc.LinkIngress:
			ix.ingress[l.Target] = i
		case noc.LinkEgress:
			ix.egress[l.Source] = i
		default:
			ix.mesh[pair{l.Source, l.Target}] = i
		}
	}
	return ix, nil
}

// Row returns the row of the link with the given label.
func (ix *Index) Row(label string) (int, bool) {
	i, ok := ix.byLabel[label]
	return i, ok
}

// Mesh returns the row of the mesh link from source to target.
func (ix *Index) Mesh(source, target string) (int, bool) {
	i, ok := ix.mesh[pair{source, target}]
	return i, ok
}

// Ingress returns the row of node's ingress terminal link.
func (ix *Index) Ingress(node string) (int, bool) {
	i, ok := ix.ingress[node]
	return i, ok
}

// Egress returns the row of node's egress terminal link.
func (ix *Index) Egress(node string) (int, bool) {
	i, ok := ix.egress[node]
	return i, ok
}

// Len returns the number of indexed rows.
func (ix *Index) Len() int { return len(ix.byLabel) }
