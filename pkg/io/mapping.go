package io

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/traffic"
)

// ReadMapping decodes a task-to-node mapping. A document whose first
// significant line contains ':' or starts with '{' is read as a YAML (or
// JSON) object; anything else as "task node" lines.
func ReadMapping(r io.Reader) (traffic.Mapping, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read mapping")
	}
	if isStructuredMapping(data) {
		return readYAMLMapping(data)
	}
	return readLineMapping(data)
}

// ImportMapping reads the mapping file at path.
func ImportMapping(path string) (traffic.Mapping, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ReadMapping(f)
	if err != nil {
		return nil, annotate(err, path)
	}
	return m, nil
}

// WriteMapping writes m as "task node" lines sorted by task.
func WriteMapping(w io.Writer, m traffic.Mapping) error {
	bw := bufio.NewWriter(w)
	for _, task := range m.Tasks() {
		fmt.Fprintf(bw, "%s %s\n", task, m[task])
	}
	return bw.Flush()
}

func isStructuredMapping(data []byte) bool {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return strings.HasPrefix(line, "{") || strings.Contains(line, ":")
	}
	return false
}

func readYAMLMapping(data []byte) (traffic.Mapping, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode mapping")
	}
	m := make(traffic.Mapping, len(raw))
	tasks := make([]string, 0, len(raw))
	for task := range raw {
		tasks = append(tasks, task)
	}
	sort.Strings(tasks)
	for _, task := range tasks {
		switch v := raw[task].(type) {
		case string, int:
			m[task] = fmt.Sprint(v)
		default:
			return nil, errors.New(errors.ErrCodeInvalidInput, "task %q: node must be a string or integer, got %v", task, v)
		}
	}
	return m, nil
}

func readLineMapping(data []byte) (traffic.Mapping, error) {
	m := make(traffic.Mapping)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "line %d: expected \"task node\", got %q", n, strings.TrimSpace(line))
		}
		if prev, dup := m[fields[0]]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "line %d: task %q already mapped to %q", n, fields[0], prev)
		}
		m[fields[0]] = fields[1]
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read mapping")
	}
	return m, nil
}
