// Package occupancy builds the link × packet matrices handed to the solver.
//
// # Rows and Columns
//
// Rows are links in the order produced by [Enumerate]: mesh links first,
// then an ingress ("L-{node}") and egress ("{node}-L") terminal link per node.
// Columns are packets in expansion order (see traffic.Expand).
//
// # Matrices
//
// A [Model] carries three matrices of identical shape:
//
//   - Occupancy: slots the packet holds the link ([Params.Occupancy])
//   - Deadline: the packet's absolute deadline
//   - Release: the packet's earliest release time
//
// A cell is either used in all three matrices or holds [Unused] in all three.
// A packet uses every mesh link on its XY route, the ingress link of its
// source router and the egress link of its target router.
//
// Rows no packet uses are kept in the model so row indexes stay stable; the
// exporter omits them and [Model.SkippedRows] reports how many there are.
package occupancy

import (
	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/noc"
	"github.com/matzehuels/nocsched/pkg/traffic"
)

// Unused marks a cell whose packet does not traverse the row's link.
const Unused = -1

// Model is the complete solver input for one hyperperiod.
type Model struct {
	Hyperperiod int              `json:"hyperperiod"`
	Links       []noc.Link       `json:"links"`
	Packets     []traffic.Packet `json:"packets"`
	Occupancy   [][]int          `json:"occupancy"`
	Deadline    [][]int          `json:"deadline"`
	Release     [][]int          `json:"release"`
}

// NumLinks returns the number of rows, including unused ones.
func (m *Model) NumLinks() int { return len(m.Links) }

// NumPackets returns the number of columns.
func (m *Model) NumPackets() int { return len(m.Packets) }

// Validate checks the shape of all three matrices and that every cell is
// used in all of them or in none.
func (m *Model) Validate() error {
	rows, cols := len(m.Links), len(m.Packets)
	for name, mat := range map[string][][]int{
		"occupancy": m.Occupancy,
		"deadline":  m.Deadline,
		"release":   m.Release,
	} {
		if len(mat) != rows {
			return errors.New(errors.ErrCodeInconsistentModel, "%s has %d rows, want %d", name, len(mat), rows)
		}
		for i, row := range mat {
			if len(row) != cols {
				return errors.New(errors.ErrCodeInconsistentModel,
					"%s row %d has %d columns, want %d", name, i, len(row), cols)
			}
		}
	}

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			o, d, r := m.Occupancy[i][j], m.Deadline[i][j], m.Release[i][j]
			used := o != Unused
			if (d != Unused) != used || (r != Unused) != used {
				return errors.New(errors.ErrCodeInconsistentModel,
					"cell (%s, %s) is used in some matrices only: occupancy=%d deadline=%d release=%d",
					m.Links[i].Label, m.Packets[j].Name, o, d, r)
			}
			if used && (o < 0 || d < 0 || r < 0) {
				return errors.New(errors.ErrCodeInconsistentModel,
					"cell (%s, %s) holds a negative value", m.Links[i].Label, m.Packets[j].Name)
			}
		}
	}

	if a, b, c := CountUsed(m.Occupancy), CountUsed(m.Deadline), CountUsed(m.Release); a != b || b != c {
		return errors.New(errors.ErrCodeInconsistentModel, "used cell counts differ: %d/%d/%d", a, b, c)
	}
	return nil
}

// RowUsed reports whether any packet uses link row i.
func (m *Model) RowUsed(i int) bool {
	for _, v := range m.Occupancy[i] {
		if v != Unused {
			return true
		}
	}
	return false
}

// UsedRows returns the indexes of rows with at least one used cell.
func (m *Model) UsedRows() []int {
	var out []int
	for i := range m.Occupancy {
		if m.RowUsed(i) {
			out = append(out, i)
		}
	}
	return out
}

// SkippedRows returns the number of rows no packet uses.
func (m *Model) SkippedRows() int {
	return len(m.Links) - len(m.UsedRows())
}

// UsedCells returns the number of used cells.
func (m *Model) UsedCells() int {
	return CountUsed(m.Occupancy)
}

// Column returns the occupancy column of packet j.
func (m *Model) Column(j int) []int {
	col := make([]int, len(m.Occupancy))
	for i, row := range m.Occupancy {
		col[i] = row[j]
	}
	return col
}

// LinksOf returns the links packet j uses, in row order.
func (m *Model) LinksOf(j int) []noc.Link {
	var out []noc.Link
	for i, row := range m.Occupancy {
		if row[j] != Unused {
			out = append(out, m.Links[i])
		}
	}
	return out
}

// NetTime returns the occupancy of packet j, which is identical on every
// link it uses, or Unused if the packet uses no link.
func (m *Model) NetTime(j int) int {
	for _, row := range m.Occupancy {
		if row[j] != Unused {
			return row[j]
		}
	}
	return Unused
}

// CountUsed returns the number of non-sentinel cells in mat.
func CountUsed(mat [][]int) int {
	n := 0
	for _, row := range mat {
		for _, v := range row {
			if v != Unused {
				n++
			}
		}
	}
	return n
}

func newMatrix(rows, cols int) [][]int {
	backing := make([]int, rows*cols)
	for i := range backing {
		backing[i] = Unused
	}
	mat := make([][]int, rows)
	for i := range mat {
		mat[i] = backing[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return mat
}
