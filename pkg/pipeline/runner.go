package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nocsched/pkg/cache"
	"github.com/matzehuels/nocsched/pkg/noc/routing"
	"github.com/matzehuels/nocsched/pkg/observability"
	"github.com/matzehuels/nocsched/pkg/occupancy"
	"github.com/matzehuels/nocsched/pkg/schedule"
	"github.com/matzehuels/nocsched/pkg/solver"
	"github.com/matzehuels/nocsched/pkg/traffic"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete pipeline: it builds the model, solves it and
// assembles the schedule.
func (r *Runner) Execute(ctx context.Context, in Input, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForSolve(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result, err := r.Model(ctx, in, opts)
	if err != nil {
		return nil, err
	}
	if err := r.SolveResult(ctx, in, result, opts); err != nil {
		return nil, err
	}
	return result, nil
}

// Model runs the expand, route, build and export stages.
func (r *Runner) Model(ctx context.Context, in Input, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	result := &Result{InputHash: in.Hash()}
	result.Stats.NumFlows = len(in.Application.Flows)

	// Stage 1: Expand
	err := r.stage(ctx, StageExpand, &result.Stats.ExpandTime, func() error {
		hp, packets, err := traffic.ExpandAll(in.Application.Flows)
		result.Hyperperiod, result.Packets = hp, packets
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("expand: %w", err)
	}
	result.Stats.NumPackets = len(result.Packets)
	opts.Logger.Info("expanded flows",
		"flows", result.Stats.NumFlows,
		"packets", result.Stats.NumPackets,
		"hyperperiod", result.Hyperperiod,
		"duration", result.Stats.ExpandTime)

	// Stage 2: Route
	err = r.stage(ctx, StageRoute, &result.Stats.RouteTime, func() error {
		paths, err := occupancy.Route(ctx, in.Topology, result.Packets, in.Mapping, opts.Timing.Workers)
		result.Paths = paths
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("route: %w", err)
	}
	opts.Logger.Debug("routed packets", "packets", len(result.Paths), "duration", result.Stats.RouteTime)

	// Stage 3: Build
	err = r.stage(ctx, StageBuild, &result.Stats.BuildTime, func() error {
		m, err := occupancy.Build(ctx, occupancy.Input{
			Topology:    in.Topology,
			Hyperperiod: result.Hyperperiod,
			Packets:     result.Packets,
			Paths:       result.Paths,
			Mapping:     in.Mapping,
		}, opts.Timing)
		result.Model = m
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	result.Stats.NumLinks = result.Model.NumLinks()
	result.Stats.UsedLinks = len(result.Model.UsedRows())
	result.Stats.SkippedLinks = result.Model.SkippedRows()
	result.Stats.UsedCells = result.Model.UsedCells()
	opts.Logger.Info("built occupancy model",
		"links", result.Stats.NumLinks,
		"used", result.Stats.UsedLinks,
		"skipped", result.Stats.SkippedLinks,
		"duration", result.Stats.BuildTime)

	// Stage 4: Export
	err = r.stage(ctx, StageExport, &result.Stats.ExportTime, func() error {
		dzn, hit, err := r.ExportWithCacheInfo(ctx, result.Model, result.InputHash, opts)
		result.DZN, result.CacheInfo.ExportHit = dzn, hit
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	opts.Logger.Debug("exported model", "bytes", len(result.DZN), "cached", result.CacheInfo.ExportHit)

	return result, nil
}

// SolveResult runs the solve and assemble stages on a result produced by
// [Runner.Model] for the same input.
func (r *Runner) SolveResult(ctx context.Context, in Input, result *Result, opts Options) error {
	r.applyLogger(&opts)
	if err := opts.ValidateForSolve(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	// Stage 5: Solve
	result.SolverID = solver.IDOf(opts.Solver)
	err := r.stage(ctx, StageSolve, &result.Stats.SolveTime, func() error {
		hooks := observability.Pipeline()
		hooks.OnSolveStart(ctx, result.SolverID, result.Model.NumPackets())
		start := time.Now()
		out, hit, err := r.SolveWithCacheInfo(ctx, result.DZN, opts)
		hooks.OnSolveComplete(ctx, result.SolverID, time.Since(start), err)
		if err != nil {
			return err
		}
		result.SolverOutput, result.CacheInfo.SolveHit = out, hit
		result.Releases, err = solver.ParseOutput(out, result.Model.NumPackets())
		return err
	})
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}
	opts.Logger.Info("solved schedule",
		"solver", result.SolverID,
		"cached", result.CacheInfo.SolveHit,
		"duration", result.Stats.SolveTime)

	// Stage 6: Assemble
	err = r.stage(ctx, StageAssemble, &result.Stats.AssembleTime, func() error {
		s, err := schedule.Assemble(result.Model, in.Mapping, opts.Timing, result.Releases)
		result.Schedule = s
		return err
	})
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}
	for _, v := range result.Schedule.Check() {
		result.Warnings = append(result.Warnings, v.String())
		opts.Logger.Warn("timing violation", "packet", v.Entry, "reason", v.Reason)
	}
	return nil
}

// ExportWithCacheInfo serializes m with caching and returns cache hit info.
// inputHash identifies the inputs m was built from.
func (r *Runner) ExportWithCacheInfo(ctx context.Context, m *occupancy.Model, inputHash string, opts Options) ([]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.ModelKey(inputHash, opts.ModelKeyOpts())
	hooks := observability.Cache()

	if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
		hooks.OnCacheHit(ctx, "model")
		return data, true, nil
	}
	hooks.OnCacheMiss(ctx, "model")

	var buf bytes.Buffer
	if err := solver.WriteDZN(&buf, m, solver.DZNOptions{Pad: opts.Pad}); err != nil {
		return nil, false, err
	}
	if err := r.Cache.Set(ctx, cacheKey, buf.Bytes(), cache.TTLModel); err == nil {
		hooks.OnCacheSet(ctx, "model", buf.Len())
	}
	return buf.Bytes(), false, nil
}

// Export is a convenience wrapper that calls ExportWithCacheInfo and discards the cache hit info.
func (r *Runner) Export(ctx context.Context, m *occupancy.Model, inputHash string, opts Options) ([]byte, error) {
	dzn, _, err := r.ExportWithCacheInfo(ctx, m, inputHash, opts)
	return dzn, err
}

// SolveWithCacheInfo runs opts.Solver on dzn with caching and returns cache hit info.
func (r *Runner) SolveWithCacheInfo(ctx context.Context, dzn []byte, opts Options) ([]byte, bool, error) {
	if err := opts.ValidateForSolve(); err != nil {
		return nil, false, err
	}
	cached := &solver.Cached{
		Solver:  opts.Solver,
		Cache:   r.Cache,
		Keyer:   r.Keyer,
		TTL:     cache.TTLSolve,
		Refresh: opts.Refresh,
	}
	return cached.SolveWithCacheInfo(ctx, dzn)
}

// Solve is a convenience wrapper that calls SolveWithCacheInfo and discards the cache hit info.
func (r *Runner) Solve(ctx context.Context, dzn []byte, opts Options) ([]byte, error) {
	out, _, err := r.SolveWithCacheInfo(ctx, dzn, opts)
	return out, err
}

// Route computes the XY path of a single pair of routers.
func (r *Runner) Route(in Input, source, target string) (routing.Path, error) {
	if in.Topology == nil {
		return nil, fmt.Errorf("route: topology is required")
	}
	return routing.XY(in.Topology, source, target)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// stage times fn, stores the duration in *d and reports it to the pipeline hooks.
func (r *Runner) stage(ctx context.Context, name string, d *time.Duration, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, name)
	start := time.Now()
	err := fn()
	*d = time.Since(start)
	hooks.OnStageComplete(ctx, name, *d, err)
	return err
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
