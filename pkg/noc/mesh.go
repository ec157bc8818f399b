package noc

import (
	"strconv"

	"github.com/matzehuels/nocsched/pkg/errors"
)

// MaxMeshDim bounds each dimension of a generated mesh.
const MaxMeshDim = 256

// MeshNodeID returns the identifier [NewMesh] assigns to the router at (x, y)
// in a mesh that is cols routers wide.
func MeshNodeID(x, y, cols int) string {
	return strconv.Itoa(x + y*cols)
}

// NewMesh generates a cols×rows mesh. Routers are numbered row-major
// (id = x + y*cols) and every pair of horizontal or vertical neighbours is
// joined by two directed links labelled "{a}-{b}" and "{b}-{a}".
//
// Links are emitted row by row for the horizontal channels first, then
// column by column for the vertical ones; this order becomes the row order of
// the occupancy matrices.
func NewMesh(cols, rows int) (*Topology, error) {
	if cols < 1 || rows < 1 || cols > MaxMeshDim || rows > MaxMeshDim {
		return nil, errors.New(errors.ErrCodeInvalidTopology,
			"mesh dimensions must be within 1..%d, got %dx%d", MaxMeshDim, cols, rows)
	}

	nodes := make([]Node, 0, cols*rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			nodes = append(nodes, Node{ID: MeshNodeID(x, y, cols), X: x, Y: y})
		}
	}

	links := make([]Link, 0, 2*((cols-1)*rows+(rows-1)*cols))
	pair := func(a, b string) {
		links = append(links,
			Link{Source: a, Target: b, Label: DefaultLabel(a, b)},
			Link{Source: b, Target: a, Label: DefaultLabel(b, a)})
	}
	for y := 0; y < rows; y++ {
		for x := 0; x+1 < cols; x++ {
			pair(MeshNodeID(x, y, cols), MeshNodeID(x+1, y, cols))
		}
	}
	for x := 0; x < cols; x++ {
		for y := 0; y+1 < rows; y++ {
			pair(MeshNodeID(x, y, cols), MeshNodeID(x, y+1, cols))
		}
	}

	return New(nodes, links)
}
