package solver

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/nocsched/pkg/errors"
)

// MiniZinc output separators and status markers.
const (
	SolutionSeparator = "----------"
	SearchComplete    = "=========="
)

var failureMarkers = []string{
	"=====UNSATISFIABLE=====",
	"=====UNSATorUNBOUNDED=====",
	"=====UNBOUNDED=====",
	"=====UNKNOWN=====",
	"=====ERROR=====",
}

// ReleaseArrays are the array names searched first, in order, when the
// solution block contains several arrays.
var ReleaseArrays = []string{"release", "releases", "start", "start_time"}

var (
	arrayRe = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(?:array1d\([^,]*,\s*)?\[([^\]]*)\]`)
	intRe   = regexp.MustCompile(`-?\d+`)
)

// ParseOutput extracts per-packet release times from solver output.
//
// Only the last solution block is considered. Inside it a named integer array
// (preferring the names in [ReleaseArrays], then any array with numPackets
// elements) wins; otherwise every integer in the block is taken in order.
//
// Errors:
//   - ErrCodeSolverFailed if the solver reported an unsatisfiable, unknown or
//     error status
//   - ErrCodeSolverOutput if no solution or no integers were found
//   - ErrCodeInconsistentModel if the number of values differs from numPackets
func ParseOutput(out []byte, numPackets int) ([]int, error) {
	text := string(out)
	for _, marker := range failureMarkers {
		if strings.Contains(text, marker) {
			return nil, errors.New(errors.ErrCodeSolverFailed, "solver reported %s", strings.Trim(marker, "="))
		}
	}

	block := lastSolution(text)
	if strings.TrimSpace(block) == "" {
		return nil, errors.New(errors.ErrCodeSolverOutput, "solver produced no solution")
	}

	values, err := pickArray(block, numPackets)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values, err = parseInts(intRe.FindAllString(block, -1))
		if err != nil {
			return nil, err
		}
	}
	if len(values) == 0 {
		return nil, errors.New(errors.ErrCodeSolverOutput, "no release times in solver output")
	}
	if len(values) != numPackets {
		return nil, errors.New(errors.ErrCodeInconsistentModel,
			"solver returned %d release times for %d packets", len(values), numPackets)
	}
	return values, nil
}

// lastSolution returns the text of the last block terminated by a solution
// separator, with comment lines removed. Output without separators is
// treated as a single block.
func lastSolution(text string) string {
	var blocks []string
	var cur []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == SolutionSeparator:
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		case trimmed == SearchComplete, strings.HasPrefix(trimmed, "%"):
		default:
			cur = append(cur, line)
		}
	}
	if len(blocks) == 0 {
		return strings.Join(cur, "\n")
	}
	return blocks[len(blocks)-1]
}

// pickArray returns the preferred array in block, or nil if there is none.
func pickArray(block string, numPackets int) ([]int, error) {
	matches := arrayRe.FindAllStringSubmatch(block, -1)
	if len(matches) == 0 {
		return nil, nil
	}
	byName := make(map[string]string, len(matches))
	for _, m := range matches {
		if _, dup := byName[m[1]]; !dup {
			byName[m[1]] = m[2]
		}
	}
	for _, name := range ReleaseArrays {
		if body, ok := byName[name]; ok {
			return parseInts(intRe.FindAllString(body, -1))
		}
	}
	for _, m := range matches {
		vals, err := parseInts(intRe.FindAllString(m[2], -1))
		if err != nil {
			return nil, err
		}
		if len(vals) == numPackets {
			return vals, nil
		}
	}
	return parseInts(intRe.FindAllString(matches[0][2], -1))
}

func parseInts(fields []string) ([]int, error) {
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeSolverOutput, err, "invalid integer %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}
