package solver

import (
	"context"
	"time"

	"github.com/matzehuels/nocsched/pkg/cache"
	"github.com/matzehuels/nocsched/pkg/observability"
)

// Cached wraps a Solver and stores its outputs in a cache. Only successful
// runs are stored. Solvers that are not an [Identifier] are run uncached,
// since their outputs cannot be told apart.
type Cached struct {
	Solver Solver
	Cache  cache.Cache
	Keyer  cache.Keyer
	TTL    time.Duration
	// Refresh bypasses lookups but still stores fresh outputs.
	Refresh bool
}

// NewCached returns s backed by c with the default keyer and TTL.
func NewCached(s Solver, c cache.Cache) *Cached {
	return &Cached{Solver: s, Cache: c, Keyer: cache.NewDefaultKeyer(), TTL: cache.TTLSolve}
}

// ID forwards the wrapped solver's ID.
func (c *Cached) ID() string {
	return IDOf(c.Solver)
}

// Solve returns the cached output for dzn or runs the wrapped solver.
func (c *Cached) Solve(ctx context.Context, dzn []byte) ([]byte, error) {
	out, _, err := c.SolveWithCacheInfo(ctx, dzn)
	return out, err
}

// SolveWithCacheInfo is Solve that also reports whether the output came from
// the cache.
func (c *Cached) SolveWithCacheInfo(ctx context.Context, dzn []byte) ([]byte, bool, error) {
	id, ok := c.Solver.(Identifier)
	if !ok {
		out, err := c.Solver.Solve(ctx, dzn)
		return out, false, err
	}
	key := c.Keyer.SolveKey(cache.Hash(dzn), id.ID())
	hooks := observability.Cache()

	if !c.Refresh {
		if data, hit, err := c.Cache.Get(ctx, key); err == nil && hit {
			hooks.OnCacheHit(ctx, "solve")
			return data, true, nil
		}
		hooks.OnCacheMiss(ctx, "solve")
	}

	out, err := c.Solver.Solve(ctx, dzn)
	if err != nil {
		return nil, false, err
	}
	if err := c.Cache.Set(ctx, key, out, c.TTL); err == nil {
		hooks.OnCacheSet(ctx, "solve", len(out))
	}
	return out, false, nil
}

// IDOf returns the ID of s, or "anonymous" if s is not an [Identifier].
func IDOf(s Solver) string {
	if id, ok := s.(Identifier); ok {
		return id.ID()
	}
	return "anonymous"
}
