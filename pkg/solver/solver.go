// Package solver is the boundary to the external constraint solver.
//
// # Data Files
//
// [WriteDZN] serializes an occupancy.Model into MiniZinc data syntax and
// [ParseDZN] reads such a file back, so exported models can be inspected
// and verified without a solver installed.
//
// # Solving
//
// A [Solver] takes data file content and returns the raw solver output.
// [MiniZinc] runs the minizinc command line tool; [Func] adapts a plain
// function, which is mostly useful in tests; [Cached] stores outputs in a
// cache.Cache keyed by the data file hash.
//
// [ParseOutput] turns raw output into one release time per packet, in the
// column order of the model.
//
//	var buf bytes.Buffer
//	if err := solver.WriteDZN(&buf, model, solver.DZNOptions{}); err != nil {
//	    return err
//	}
//	out, err := mzn.Solve(ctx, buf.Bytes())
//	if err != nil {
//	    return err
//	}
//	releases, err := solver.ParseOutput(out, model.NumPackets())
package solver

import (
	"context"

	"github.com/matzehuels/nocsched/pkg/cache"
)

// Solver submits a data file to a constraint solver and returns its raw output.
type Solver interface {
	Solve(ctx context.Context, dzn []byte) ([]byte, error)
}

// Identifier is implemented by solvers whose output depends on more than the
// data file, such as the model file and backend. [Cached] includes the ID in
// cache keys.
type Identifier interface {
	ID() string
}

// Func adapts an ordinary function to the [Solver] interface.
type Func func(ctx context.Context, dzn []byte) ([]byte, error)

// Solve calls f(ctx, dzn).
func (f Func) Solve(ctx context.Context, dzn []byte) ([]byte, error) {
	return f(ctx, dzn)
}

// Static returns a solver that always answers with out. It is used for
// replaying a saved solver run. Its ID is derived from out, so a replay
// never shares cache entries with a real solver or another replay.
func Static(out []byte) Solver {
	return static(out)
}

type static []byte

func (s static) Solve(ctx context.Context, _ []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s static) ID() string {
	return "replay:" + cache.Hash(s)[:16]
}
