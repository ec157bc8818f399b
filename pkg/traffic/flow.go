// Package traffic describes periodic application traffic and expands it into
// the concrete packet instances of one hyperperiod.
//
// # Flows and Packets
//
// A [Flow] is a periodic message between two tasks: every Period time units a
// payload of DataSize bytes is sent and must arrive within Deadline time
// units. [Expand] turns a set of flows into the ordered list of [Packet]
// instances released during one hyperperiod (the least common multiple of
// all periods, see [Hyperperiod]).
//
// Packet order is significant: it defines the column order of the occupancy
// matrices and therefore the order in which the solver reports release times.
// Flows are always processed sorted by name, then by instance index.
//
// # Mapping
//
// Flows reference tasks, not routers. A [Mapping] places tasks on routers and
// is consulted whenever a packet has to be routed.
package traffic

import (
	"fmt"
	"math"
	"sort"

	"github.com/matzehuels/nocsched/pkg/errors"
)

// MaxPackets bounds the number of packets a single expansion may produce.
const MaxPackets = 1 << 20

// Flow is a periodic message between two tasks.
type Flow struct {
	Name     string `json:"name" yaml:"name"`
	Source   string `json:"source" yaml:"source"`
	Target   string `json:"target" yaml:"target"`
	Period   int    `json:"period" yaml:"period"`
	DataSize int    `json:"datasize" yaml:"datasize"`
	Deadline int    `json:"deadline" yaml:"deadline"`
}

// Validate checks a single flow in isolation.
func (f Flow) Validate() error {
	if err := errors.ValidateIdentifier("flow", f.Name); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFlow, err, "invalid flow name")
	}
	if f.Source == "" || f.Target == "" {
		return errors.New(errors.ErrCodeInvalidFlow, "flow %s: source and target task are required", f.Name)
	}
	if f.Period <= 0 {
		return errors.New(errors.ErrCodeInvalidFlow, "flow %s: period must be positive, got %d", f.Name, f.Period)
	}
	if f.Deadline < 0 {
		return errors.New(errors.ErrCodeInvalidFlow, "flow %s: deadline must not be negative, got %d", f.Name, f.Deadline)
	}
	if f.DataSize < 0 {
		return errors.New(errors.ErrCodeInvalidFlow, "flow %s: datasize must not be negative, got %d", f.Name, f.DataSize)
	}
	return nil
}

// Packet is one instance of a flow, released at MinStart.
type Packet struct {
	Name        string `json:"name"`
	Flow        string `json:"flow"`
	Source      string `json:"source"`
	Target      string `json:"target"`
	Index       int    `json:"index"`
	MinStart    int    `json:"min_start"`
	AbsDeadline int    `json:"abs_deadline"`
	DataSize    int    `json:"datasize"`
}

// PacketName returns the conventional "{flow}:{index}" packet name.
func PacketName(flow string, index int) string {
	return fmt.Sprintf("%s:%d", flow, index)
}

// Application is the task graph: the declared tasks and the flows between them.
type Application struct {
	Tasks []string `json:"tasks,omitempty" yaml:"tasks,omitempty"`
	Flows []Flow   `json:"flows" yaml:"flows"`
}

// Validate checks every flow and, when tasks are declared, that each flow
// endpoint is one of them.
func (a Application) Validate() error {
	if err := validateFlows(a.Flows); err != nil {
		return err
	}
	if len(a.Tasks) == 0 {
		return nil
	}
	known := make(map[string]bool, len(a.Tasks))
	for _, t := range a.Tasks {
		known[t] = true
	}
	for _, f := range a.Flows {
		for _, task := range []string{f.Source, f.Target} {
			if !known[task] {
				return errors.New(errors.ErrCodeInvalidFlow, "flow %s references undeclared task %q", f.Name, task)
			}
		}
	}
	return nil
}

// Hyperperiod returns the least common multiple of all flow periods.
//
// Returns an ErrCodeInvalidFlow error if there are no flows, a period is not
// positive, or the result does not fit in an int.
func Hyperperiod(flows []Flow) (int, error) {
	if len(flows) == 0 {
		return 0, errors.New(errors.ErrCodeInvalidFlow, "no flows")
	}
	hp := 1
	for _, f := range flows {
		if f.Period <= 0 {
			return 0, errors.New(errors.ErrCodeInvalidFlow, "flow %s: period must be positive, got %d", f.Name, f.Period)
		}
		next, ok := lcm(hp, f.Period)
		if !ok {
			return 0, errors.New(errors.ErrCodeInvalidFlow, "hyperperiod overflows at flow %s (period %d)", f.Name, f.Period)
		}
		hp = next
	}
	return hp, nil
}

// Expand returns the packets released by flows within one hyperperiod.
// Flows are processed sorted by name; for each flow packets are emitted at
// MinStart = 0, Period, 2*Period, ... while MinStart < hyperperiod.
// The input slice is not modified.
func Expand(flows []Flow, hyperperiod int) ([]Packet, error) {
	if hyperperiod <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidFlow, "hyperperiod must be positive, got %d", hyperperiod)
	}
	if err := validateFlows(flows); err != nil {
		return nil, err
	}

	sorted := SortedFlows(flows)

	counts := make([]int, len(sorted))
	total := 0
	for k, f := range sorted {
		n := packetCount(hyperperiod, f.Period)
		if n > MaxPackets-total {
			return nil, errors.New(errors.ErrCodeInvalidFlow,
				"expansion exceeds %d packets (hyperperiod %d)", MaxPackets, hyperperiod)
		}
		counts[k] = n
		total += n
	}

	packets := make([]Packet, 0, total)
	for k, f := range sorted {
		for i := 0; i < counts[k]; i++ {
			start := i * f.Period
			packets = append(packets, Packet{
				Name:        PacketName(f.Name, i),
				Flow:        f.Name,
				Source:      f.Source,
				Target:      f.Target,
				Index:       i,
				MinStart:    start,
				AbsDeadline: start + f.Deadline,
				DataSize:    f.DataSize,
			})
		}
	}
	return packets, nil
}

// packetCount returns ceil(hyperperiod/period) without overflowing.
func packetCount(hyperperiod, period int) int {
	n := hyperperiod / period
	if hyperperiod%period != 0 {
		n++
	}
	return n
}

// ExpandAll computes the hyperperiod of flows and expands them over it.
func ExpandAll(flows []Flow) (int, []Packet, error) {
	if err := validateFlows(flows); err != nil {
		return 0, nil, err
	}
	hp, err := Hyperperiod(flows)
	if err != nil {
		return 0, nil, err
	}
	packets, err := Expand(flows, hp)
	if err != nil {
		return 0, nil, err
	}
	return hp, packets, nil
}

// SortedFlows returns a copy of flows sorted by name.
func SortedFlows(flows []Flow) []Flow {
	out := make([]Flow, len(flows))
	copy(out, flows)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func validateFlows(flows []Flow) error {
	seen := make(map[string]bool, len(flows))
	for _, f := range flows {
		if err := f.Validate(); err != nil {
			return err
		}
		if seen[f.Name] {
			return errors.New(errors.ErrCodeInvalidFlow, "duplicate flow %q", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// lcm returns the least common multiple of two positive ints and false on overflow.
func lcm(a, b int) (int, bool) {
	q := a / gcd(a, b)
	if q > math.MaxInt/b {
		return 0, false
	}
	return q * b, true
}
