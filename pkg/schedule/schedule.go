// Package schedule assembles the solver's release times into the final
// per-packet schedule and writes it for downstream tools.
//
// # Assembly
//
// [Assemble] pairs each packet column of an occupancy.Model with its release
// time, in column order. The number of release times must match the number
// of packets exactly; a mismatch means the solver ran against a different
// model and is reported as ErrCodeInconsistentModel.
//
// # Output
//
//   - [Schedule.WriteCSV]: one row per packet, flat columns
//   - [Schedule.WriteJSON]: the Schedule value as indented JSON
//   - [Schedule.WriteSimInputs]: one "<node>.txt" injection file per router
//
// [Schedule.Check] re-derives the timing constraints from the assembled
// entries. The solver is authoritative, so violations are reported rather
// than rejected.
package schedule

import (
	"fmt"
	"sort"

	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/occupancy"
	"github.com/matzehuels/nocsched/pkg/traffic"
)

// Endpoint is a task together with the router it is mapped to.
type Endpoint struct {
	Task string `json:"task"`
	Node string `json:"node"`
}

// Entry is the schedule of one packet.
type Entry struct {
	Name          string   `json:"name"`
	Flow          string   `json:"flow"`
	Source        Endpoint `json:"source"`
	Target        Endpoint `json:"target"`
	MinStart      int      `json:"min_start"`
	AbsDeadline   int      `json:"abs_deadline"`
	DataSizeBytes int      `json:"data_size_bytes"`
	NumFlits      int      `json:"num_flits"`
	Release       int      `json:"release"`
	NetTime       int      `json:"net_time"`
}

// Finish returns the time the packet's last flit leaves the network.
func (e Entry) Finish() int { return e.Release + e.NetTime }

// Schedule is the assembled result for one hyperperiod.
type Schedule struct {
	Hyperperiod int     `json:"hyperperiod"`
	Entries     []Entry `json:"entries"`
}

// Assemble builds the schedule from a model, the mapping used to build it,
// the timing parameters and one release time per packet.
func Assemble(m *occupancy.Model, mapping traffic.Mapping, p occupancy.Params, releases []int) (*Schedule, error) {
	if len(releases) != m.NumPackets() {
		return nil, errors.New(errors.ErrCodeInconsistentModel,
			"solver returned %d release times for %d packets", len(releases), m.NumPackets())
	}
	p.SetDefaults()

	s := &Schedule{Hyperperiod: m.Hyperperiod, Entries: make([]Entry, len(m.Packets))}
	for j, pkt := range m.Packets {
		src, dst, err := mapping.Endpoints(pkt)
		if err != nil {
			return nil, err
		}
		s.Entries[j] = Entry{
			Name:          pkt.Name,
			Flow:          pkt.Flow,
			Source:        Endpoint{Task: pkt.Source, Node: src},
			Target:        Endpoint{Task: pkt.Target, Node: dst},
			MinStart:      pkt.MinStart,
			AbsDeadline:   pkt.AbsDeadline,
			DataSizeBytes: pkt.DataSize,
			NumFlits:      p.Flits(pkt.DataSize),
			Release:       releases[j],
			NetTime:       m.NetTime(j),
		}
	}
	return s, nil
}

// Violation describes an entry whose timing does not satisfy its window.
type Violation struct {
	Entry  string
	Reason string
}

func (v Violation) String() string { return v.Entry + ": " + v.Reason }

// Check returns the entries released before their MinStart or finishing
// after their AbsDeadline.
func (s *Schedule) Check() []Violation {
	var out []Violation
	for _, e := range s.Entries {
		if e.Release < e.MinStart {
			out = append(out, Violation{e.Name, fmt.Sprintf("released at %d before min start %d", e.Release, e.MinStart)})
		}
		if e.NetTime != occupancy.Unused && e.Finish() > e.AbsDeadline {
			out = append(out, Violation{e.Name, fmt.Sprintf("finishes at %d after deadline %d", e.Finish(), e.AbsDeadline)})
		}
	}
	return out
}

// BySource groups entries by source router, each group sorted by release
// time and then by name.
func (s *Schedule) BySource() map[string][]Entry {
	groups := make(map[string][]Entry)
	for _, e := range s.Entries {
		groups[e.Source.Node] = append(groups[e.Source.Node], e)
	}
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool {
			if g[i].Release != g[j].Release {
				return g[i].Release < g[j].Release
			}
			return g[i].Name < g[j].Name
		})
	}
	return groups
}

// Entry returns the entry for the named packet.
func (s *Schedule) Entry(name string) (Entry, bool) {
	for _, e := range s.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}
