package occupancy

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/noc"
	"github.com/matzehuels/nocsched/pkg/noc/routing"
	"github.com/matzehuels/nocsched/pkg/traffic"
)

// Input collects everything [Build] needs. Links defaults to
// Enumerate(Topology) and Paths is computed with [Route] when nil.
type Input struct {
	Topology    *noc.Topology
	Hyperperiod int
	Links       []noc.Link
	Packets     []traffic.Packet
	Paths       []routing.Path
	Mapping     traffic.Mapping
}

// Route computes the XY path of every packet between its mapped routers.
// Paths are returned in packet order. With workers > 1 packets are routed
// concurrently.
func Route(ctx context.Context, t *noc.Topology, packets []traffic.Packet, m traffic.Mapping, workers int) ([]routing.Path, error) {
	paths := make([]routing.Path, len(packets))
	err := forEach(ctx, len(packets), workers, func(j int) error {
		src, dst, err := m.Endpoints(packets[j])
		if err != nil {
			return err
		}
		p, err := routing.XY(t, src, dst)
		if err != nil {
			return errors.Wrap(errors.GetCode(err), err, "route packet %s", packets[j].Name)
		}
		paths[j] = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// Build computes the occupancy, deadline and release matrices.
//
// Every packet marks the mesh links of its path, the ingress link of its
// mapped source router and the egress link of its mapped target router.
// Marked cells receive p.Occupancy(datasize, hops), the packet's absolute
// deadline and its release time; all other cells hold [Unused].
//
// Errors:
//   - ErrCodeInconsistentModel if paths and packets disagree in length, or a
//     path uses a link missing from Links
//   - ErrCodeUnmappedTask if a packet endpoint has no mapping
//   - ErrCodeInvalidConfig for invalid params
func Build(ctx context.Context, in Input, p Params) (*Model, error) {
	p.SetDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if in.Topology == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "topology is required")
	}
	links := in.Links
	if links == nil {
		links = Enumerate(in.Topology)
	}
	ix, err := NewIndex(links)
	if err != nil {
		return nil, err
	}

	paths := in.Paths
	if paths == nil {
		if paths, err = Route(ctx, in.Topology, in.Packets, in.Mapping, p.Workers); err != nil {
			return nil, err
		}
	}
	if len(paths) != len(in.Packets) {
		return nil, errors.New(errors.ErrCodeInconsistentModel,
			"%d paths for %d packets", len(paths), len(in.Packets))
	}

	m := &Model{
		Hyperperiod: in.Hyperperiod,
		Links:       links,
		Packets:     in.Packets,
		Occupancy:   newMatrix(len(links), len(in.Packets)),
		Deadline:    newMatrix(len(links), len(in.Packets)),
		Release:     newMatrix(len(links), len(in.Packets)),
	}

	// Each worker owns whole columns, so no cell is written twice.
	err = forEach(ctx, len(in.Packets), p.Workers, func(j int) error {
		rows, hops, err := usedRows(in, ix, paths[j], in.Packets[j])
		if err != nil {
			return err
		}
		pkt := in.Packets[j]
		occ := p.Occupancy(pkt.DataSize, hops)
		for _, i := range rows {
			m.Occupancy[i][j] = occ
			m.Deadline[i][j] = pkt.AbsDeadline
			m.Release[i][j] = pkt.MinStart
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// usedRows returns the rows packet pkt marks and the Manhattan distance
// between its endpoints.
func usedRows(in Input, ix *Index, path routing.Path, pkt traffic.Packet) ([]int, int, error) {
	src, dst, err := in.Mapping.Endpoints(pkt)
	if err != nil {
		return nil, 0, err
	}
	srcNode, ok := in.Topology.Node(src)
	if !ok {
		return nil, 0, errors.New(errors.ErrCodeNodeNotFound, "packet %s: source node %q not in topology", pkt.Name, src)
	}
	dstNode, ok := in.Topology.Node(dst)
	if !ok {
		return nil, 0, errors.New(errors.ErrCodeNodeNotFound, "packet %s: target node %q not in topology", pkt.Name, dst)
	}
	if err := path.Validate(src, dst); err != nil {
		return nil, 0, errors.Wrap(errors.ErrCodeInconsistentModel, err, "packet %s", pkt.Name)
	}

	rows := make([]int, 0, len(path)+2)
	for _, l := range path {
		i, ok := ix.Mesh(l.Source, l.Target)
		if !ok {
			return nil, 0, errors.New(errors.ErrCodeInconsistentModel,
				"packet %s: link %s is not an enumerated row", pkt.Name, l.Label)
		}
		rows = append(rows, i)
	}
	ingress, ok := ix.Ingress(src)
	if !ok {
		return nil, 0, errors.New(errors.ErrCodeInconsistentModel, "packet %s: no ingress row for node %s", pkt.Name, src)
	}
	egress, ok := ix.Egress(dst)
	if !ok {
		return nil, 0, errors.New(errors.ErrCodeInconsistentModel, "packet %s: no egress row for node %s", pkt.Name, dst)
	}
	rows = append(rows, ingress, egress)
	return rows, routing.Hops(srcNode, dstNode), nil
}

// forEach calls fn for 0..n-1, on up to workers goroutines. The first error
// cancels the remaining calls.
func forEach(ctx context.Context, n, workers int, fn func(int) error) error {
	if workers <= 1 {
		for j := 0; j < n; j++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(j); err != nil {
				return err
			}
		}
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for j := 0; j < n; j++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(j)
		})
	}
	return g.Wait()
}
