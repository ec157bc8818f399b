package solver

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/occupancy"
)

// Array names and scalar names used in solver data files.
const (
	ArrayOccupancy = "occupancy"
	ArrayDeadline  = "deadline"
	ArrayMinStart  = "min_start"

	ScalarHyperperiod = "hyperperiod_length"
	ScalarNumLinks    = "num_links"
	ScalarNumPackets  = "num_packets"
)

// DefaultPad is the width values are right-aligned to.
const DefaultPad = 7

// DZNOptions control data file layout.
type DZNOptions struct {
	// Pad is the minimum width of each value. Zero means DefaultPad.
	Pad int
}

// WriteDZN writes m as a MiniZinc data file.
//
// The file starts with the hyperperiod_length, num_links and num_packets
// scalars, followed by the occupancy, deadline and min_start arrays. Each
// array is preceded by a comment listing packet names in column order. Rows
// that no packet uses are omitted and num_links counts only the written
// rows. Every written row ends with a "%label" comment naming its link.
//
// The model is validated first; an inconsistent model is never written.
func WriteDZN(w io.Writer, m *occupancy.Model, opts DZNOptions) error {
	if err := m.Validate(); err != nil {
		return err
	}
	pad := opts.Pad
	if pad <= 0 {
		pad = DefaultPad
	}

	used := m.UsedRows()

	var b strings.Builder
	fmt.Fprintf(&b, "%s = %d;\n", ScalarHyperperiod, m.Hyperperiod)
	fmt.Fprintf(&b, "%s = %d;\n", ScalarNumLinks, len(used))
	fmt.Fprintf(&b, "%s = %d;\n", ScalarNumPackets, m.NumPackets())
	b.WriteString("\n")

	header := packetHeader(m)
	tables := []struct {
		name string
		mat  [][]int
	}{
		{ArrayOccupancy, m.Occupancy},
		{ArrayDeadline, m.Deadline},
		{ArrayMinStart, m.Release},
	}
	for i, t := range tables {
		if i > 0 {
			b.WriteString("\n")
		}
		writeTable(&b, t.name, header, t.mat, m, used, pad)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// packetHeader returns the "% p1 p2 ..." column comment.
func packetHeader(m *occupancy.Model) string {
	var b strings.Builder
	b.WriteString("% ")
	for _, p := range m.Packets {
		b.WriteString(p.Name)
		b.WriteString(" ")
	}
	return b.String()
}

func writeTable(b *strings.Builder, name, header string, mat [][]int, m *occupancy.Model, used []int, pad int) {
	b.WriteString(header)
	b.WriteString("\n")
	fmt.Fprintf(b, "%s = \n", name)
	if len(used) == 0 {
		b.WriteString("[| |];\n")
		return
	}
	for k, i := range used {
		if k == 0 {
			b.WriteString("[| ")
		} else {
			b.WriteString(" | ")
		}
		for _, v := range mat[i] {
			fmt.Fprintf(b, "%*d, ", pad, v)
		}
		b.WriteString(" %")
		b.WriteString(m.Links[i].Label)
		b.WriteString("\n")
	}
	b.WriteString("|];\n")
}

// Array is a two-dimensional array read back from a data file. Labels holds
// the trailing comment of each row, or "" if the row had none.
type Array struct {
	Labels []string
	Rows   [][]int
}

// DZN is the parsed content of a data file.
type DZN struct {
	Scalars map[string]int
	Arrays  map[string]*Array
	// Columns are the packet names from the last "% ..." header comment.
	Columns []string
}

// Scalar returns the named scalar.
func (d *DZN) Scalar(name string) (int, bool) {
	v, ok := d.Scalars[name]
	return v, ok
}

// Array returns the named array.
func (d *DZN) Array(name string) (*Array, bool) {
	a, ok := d.Arrays[name]
	return a, ok
}

// ParseDZN reads a data file in the layout produced by [WriteDZN]: integer
// scalars and two-dimensional integer arrays whose rows start with '|' and
// may end with a "%label" comment.
func ParseDZN(r io.Reader) (*DZN, error) {
	d := &DZN{
		Scalars: make(map[string]int),
		Arrays:  make(map[string]*Array),
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var (
		cur     *Array
		curName string
		lineNo  int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())

		if cur != nil {
			end, err := parseRows(cur, line)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d: array %s", lineNo, curName)
			}
			if end {
				d.Arrays[curName] = cur
				cur = nil
			}
			continue
		}

		switch {
		case line == "":
		case strings.HasPrefix(line, "%"):
			if fields := strings.Fields(strings.TrimPrefix(line, "%")); len(fields) > 0 {
				d.Columns = fields
			}
		default:
			name, rest, ok := strings.Cut(line, "=")
			if !ok {
				return nil, errors.New(errors.ErrCodeInvalidInput, "line %d: expected assignment: %q", lineNo, line)
			}
			name = strings.TrimSpace(name)
			rest = strings.TrimSpace(rest)
			if rest == "" || strings.HasPrefix(rest, "[") {
				cur, curName = &Array{}, name
				if rest == "" {
					continue
				}
				end, err := parseRows(cur, rest)
				if err != nil {
					return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d: array %s", lineNo, curName)
				}
				if end {
					d.Arrays[curName] = cur
					cur = nil
				}
				continue
			}
			v, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(rest, ";")))
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d: scalar %s", lineNo, name)
			}
			d.Scalars[name] = v
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read data file")
	}
	if cur != nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "array %s is not terminated", curName)
	}
	return d, nil
}

// parseRows consumes one line of array body and reports whether it closed
// the array.
func parseRows(a *Array, line string) (bool, error) {
	label := ""
	if i := strings.IndexByte(line, '%'); i >= 0 {
		label = strings.TrimSpace(line[i+1:])
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "[")

	end := false
	if i := strings.Index(line, "|]"); i >= 0 {
		end = true
		line = line[:i]
	}

	segments := strings.Split(line, "|")
	var rows [][]int
	for _, seg := range segments {
		var vals []int
		for _, f := range strings.Split(seg, ",") {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			v, err := strconv.Atoi(f)
			if err != nil {
				return false, fmt.Errorf("invalid value %q", f)
			}
			vals = append(vals, v)
		}
		if len(vals) > 0 {
			rows = append(rows, vals)
		}
	}
	for k, row := range rows {
		a.Rows = append(a.Rows, row)
		if k == len(rows)-1 {
			a.Labels = append(a.Labels, label)
		} else {
			a.Labels = append(a.Labels, "")
		}
	}
	return end, nil
}

// Check compares a parsed data file against the model it should describe:
// scalars, column names and the used rows of all three arrays.
func (d *DZN) Check(m *occupancy.Model) error {
	used := m.UsedRows()
	for name, want := range map[string]int{
		ScalarHyperperiod: m.Hyperperiod,
		ScalarNumLinks:    len(used),
		ScalarNumPackets:  m.NumPackets(),
	} {
		if got, ok := d.Scalars[name]; !ok || got != want {
			return errors.New(errors.ErrCodeInconsistentModel, "%s = %d, want %d", name, got, want)
		}
	}
	if len(d.Columns) != m.NumPackets() {
		return errors.New(errors.ErrCodeInconsistentModel, "%d column names, want %d", len(d.Columns), m.NumPackets())
	}
	for j, p := range m.Packets {
		if d.Columns[j] != p.Name {
			return errors.New(errors.ErrCodeInconsistentModel, "column %d is %s, want %s", j, d.Columns[j], p.Name)
		}
	}
	for name, mat := range map[string][][]int{
		ArrayOccupancy: m.Occupancy,
		ArrayDeadline:  m.Deadline,
		ArrayMinStart:  m.Release,
	} {
		a, ok := d.Arrays[name]
		if !ok {
			return errors.New(errors.ErrCodeInconsistentModel, "array %s missing", name)
		}
		if len(a.Rows) != len(used) {
			return errors.New(errors.ErrCodeInconsistentModel, "array %s has %d rows, want %d", name, len(a.Rows), len(used))
		}
		for k, i := range used {
			if a.Labels[k] != m.Links[i].Label {
				return errors.New(errors.ErrCodeInconsistentModel,
					"array %s row %d is %s, want %s", name, k, a.Labels[k], m.Links[i].Label)
			}
			if len(a.Rows[k]) != len(mat[i]) {
				return errors.New(errors.ErrCodeInconsistentModel, "array %s row %s has %d values", name, a.Labels[k], len(a.Rows[k]))
			}
			for j, v := range mat[i] {
				if a.Rows[k][j] != v {
					return errors.New(errors.ErrCodeInconsistentModel,
						"array %s cell (%s, %d) = %d, want %d", name, a.Labels[k], j, a.Rows[k][j], v)
				}
			}
		}
	}
	return nil
}
