// Package noc models the mesh Network-on-Chip that packets travel across.
//
// # Overview
//
// A [Topology] is a directed graph of routers ([Node]) placed on an integer
// (X, Y) grid and connected by [Link] values. Every physical channel between
// two neighbouring routers is represented as two directed links, one per
// direction, each carrying a unique label such as "0-1".
//
// Besides mesh links, the scheduling model tracks two synthetic terminal links
// per node: an ingress link from the node's processing element into the
// router ("L-{node}") and an egress link back out ("{node}-L"). Terminal links
// are never stored in the topology itself; they are produced on demand by
// [IngressLink] and [EgressLink] and identified by [Link.Kind].
//
// # Construction
//
// Build a topology from explicit records with [New], or generate a full
// rectangular mesh with [NewMesh]:
//
//	t, err := noc.NewMesh(4, 4)
//	if err != nil {
//	    return err
//	}
//	n, _ := t.Node("5")   // X=1, Y=1
//	l, _ := t.Link("5", "6")
//
// [New] rejects duplicate node IDs, duplicate coordinates, duplicate labels
// and links whose endpoints are unknown. [Topology.Validate] additionally
// checks that every router can reach every other one, which is required for
// dimension-order routing to succeed.
//
// Topologies are immutable after construction and safe for concurrent reads.
package noc
