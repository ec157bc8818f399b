package schedule

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/noc"
)

// csvRow is the flat CSV layout of an Entry.
type csvRow struct {
	Name          string `csv:"name"`
	Flow          string `csv:"flow"`
	SourceTask    string `csv:"source_task"`
	SourceNode    string `csv:"source_node"`
	TargetTask    string `csv:"target_task"`
	TargetNode    string `csv:"target_node"`
	MinStart      int    `csv:"min_start"`
	AbsDeadline   int    `csv:"abs_deadline"`
	DataSizeBytes int    `csv:"data_size_bytes"`
	NumFlits      int    `csv:"num_flits"`
	Release       int    `csv:"release"`
	NetTime       int    `csv:"net_time"`
}

// WriteCSV writes one row per entry with a header line.
func (s *Schedule) WriteCSV(w io.Writer) error {
	rows := make([]*csvRow, len(s.Entries))
	for i, e := range s.Entries {
		rows[i] = &csvRow{
			Name:          e.Name,
			Flow:          e.Flow,
			SourceTask:    e.Source.Task,
			SourceNode:    e.Source.Node,
			TargetTask:    e.Target.Task,
			TargetNode:    e.Target.Node,
			MinStart:      e.MinStart,
			AbsDeadline:   e.AbsDeadline,
			DataSizeBytes: e.DataSizeBytes,
			NumFlits:      e.NumFlits,
			Release:       e.Release,
			NetTime:       e.NetTime,
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ReadCSV reads a schedule written by WriteCSV. The hyperperiod is not part
// of the CSV layout and is left zero.
func ReadCSV(r io.Reader) (*Schedule, error) {
	var rows []*csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read schedule csv")
	}
	s := &Schedule{Entries: make([]Entry, len(rows))}
	for i, row := range rows {
		s.Entries[i] = Entry{
			Name:          row.Name,
			Flow:          row.Flow,
			Source:        Endpoint{Task: row.SourceTask, Node: row.SourceNode},
			Target:        Endpoint{Task: row.TargetTask, Node: row.TargetNode},
			MinStart:      row.MinStart,
			AbsDeadline:   row.AbsDeadline,
			DataSizeBytes: row.DataSizeBytes,
			NumFlits:      row.NumFlits,
			Release:       row.Release,
			NetTime:       row.NetTime,
		}
	}
	return s, nil
}

// WriteJSON writes the schedule as indented JSON.
func (s *Schedule) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// SimInputName returns the file name of a router's injection file.
func SimInputName(node string) string {
	return node + ".txt"
}

// WriteSimInput writes the injection lines of one router:
//
//	{release} {num_flits} {target_node} {deadline}
//
// Entries are written in the order given.
func WriteSimInput(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		fmt.Fprintf(bw, "%d %d %s %d\n", e.Release, e.NumFlits, e.Target.Node, e.AbsDeadline)
	}
	return bw.Flush()
}

// WriteSimInputs writes one injection file per router of t into dir, each
// sorted by release time. Routers that send nothing get an empty file so
// the simulator finds an input for every node. It returns the written paths
// in node order.
func (s *Schedule) WriteSimInputs(dir string, t *noc.Topology) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create %s", dir)
	}
	groups := s.BySource()
	for node := range groups {
		if _, ok := t.Node(node); !ok {
			return nil, errors.New(errors.ErrCodeNodeNotFound, "schedule source %q not in topology", node)
		}
	}

	var paths []string
	for _, n := range t.Nodes() {
		path := filepath.Join(dir, SimInputName(n.ID))
		if err := writeFile(path, groups[n.ID]); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", path)
	}
	if err := WriteSimInput(f, entries); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return f.Close()
}
