package traffic

import (
	"sort"

	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/noc"
)

// Mapping places tasks onto routers (task ID -> node ID).
type Mapping map[string]string

// Resolve returns the router a task is placed on.
// An unmapped task is an ErrCodeUnmappedTask error.
func (m Mapping) Resolve(task string) (string, error) {
	node, ok := m[task]
	if !ok || node == "" {
		return "", errors.New(errors.ErrCodeUnmappedTask, "task %q is not mapped to a node", task)
	}
	return node, nil
}

// Endpoints resolves the source and target routers of a packet.
func (m Mapping) Endpoints(p Packet) (source, target string, err error) {
	if source, err = m.Resolve(p.Source); err != nil {
		return "", "", errors.Wrap(errors.ErrCodeUnmappedTask, err, "packet %s", p.Name)
	}
	if target, err = m.Resolve(p.Target); err != nil {
		return "", "", errors.Wrap(errors.ErrCodeUnmappedTask, err, "packet %s", p.Name)
	}
	return source, target, nil
}

// Tasks returns the mapped task IDs in sorted order.
func (m Mapping) Tasks() []string {
	out := make([]string, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Check verifies that every flow endpoint is mapped and that every mapped
// node exists in the topology.
func (m Mapping) Check(flows []Flow, t *noc.Topology) error {
	for _, f := range flows {
		for _, task := range []string{f.Source, f.Target} {
			if _, err := m.Resolve(task); err != nil {
				return errors.Wrap(errors.ErrCodeUnmappedTask, err, "flow %s", f.Name)
			}
		}
	}
	for _, task := range m.Tasks() {
		if _, ok := t.Node(m[task]); !ok {
			return errors.New(errors.ErrCodeNodeNotFound, "task %q mapped to unknown node %q", task, m[task])
		}
	}
	return nil
}
