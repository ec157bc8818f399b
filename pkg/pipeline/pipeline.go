// Package pipeline provides the scheduling pipeline for nocsched.
//
// This package implements the complete expand → route → build → export →
// solve → assemble pipeline used by the CLI and the HTTP API. Centralizing
// it keeps caching, logging and error handling identical across entry points.
//
// # Architecture
//
// The pipeline consists of six stages:
//
//  1. Expand: Unroll periodic flows into packets over the hyperperiod
//  2. Route: Compute the XY path of every packet
//  3. Build: Fill the occupancy, deadline and release matrices
//  4. Export: Serialize the model as a MiniZinc data file
//  5. Solve: Run the constraint solver on the data file
//  6. Assemble: Pair packets with release times into a schedule
//
// Stages 1-4 are pure and fast. Stage 5 is the only blocking step and its
// output is cached by the hash of the exact data file.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{Solver: solver.NewMiniZinc("CM.mzn")}
//	result, err := runner.Execute(ctx, pipeline.Input{
//	    Topology:    topo,
//	    Application: app,
//	    Mapping:     mapping,
//	}, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result.Schedule.WriteCSV(os.Stdout)
//
// Build the model without solving:
//
//	result, err := runner.Model(ctx, input, opts)
//	os.WriteFile("model.dzn", result.DZN, 0o644)
package pipeline

import (
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nocsched/pkg/cache"
	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/noc"
	"github.com/matzehuels/nocsched/pkg/noc/routing"
	"github.com/matzehuels/nocsched/pkg/occupancy"
	"github.com/matzehuels/nocsched/pkg/schedule"
	"github.com/matzehuels/nocsched/pkg/solver"
	"github.com/matzehuels/nocsched/pkg/traffic"
)

// =============================================================================
// Stage Names
// =============================================================================

const (
	StageExpand   = "expand"
	StageRoute    = "route"
	StageBuild    = "build"
	StageExport   = "export"
	StageSolve    = "solve"
	StageAssemble = "assemble"
)

// =============================================================================
// Input
// =============================================================================

// Input is what a pipeline run schedules.
type Input struct {
	Topology    *noc.Topology
	Application *traffic.Application
	Mapping     traffic.Mapping
}

// Validate checks that all parts are present and consistent with each other.
func (in Input) Validate() error {
	if in.Topology == nil {
		return errors.New(errors.ErrCodeInvalidInput, "topology is required")
	}
	if err := in.Topology.Validate(); err != nil {
		return err
	}
	if in.Application == nil {
		return errors.New(errors.ErrCodeInvalidInput, "application is required")
	}
	if err := in.Application.Validate(); err != nil {
		return err
	}
	return in.Mapping.Check(in.Application.Flows, in.Topology)
}

// canonicalInput is the hashed form of an Input. Flows are sorted so that
// declaration order does not change the hash, matching the expansion order.
type canonicalInput struct {
	Nodes   []noc.Node        `json:"nodes"`
	Links   []noc.Link        `json:"links"`
	Flows   []traffic.Flow    `json:"flows"`
	Mapping map[string]string `json:"mapping"`
}

// Hash returns a content hash of the input.
func (in Input) Hash() string {
	c := canonicalInput{Mapping: in.Mapping}
	if in.Topology != nil {
		c.Nodes, c.Links = in.Topology.Nodes(), in.Topology.Links()
	}
	if in.Application != nil {
		c.Flows = traffic.SortedFlows(in.Application.Flows)
	}
	data, _ := json.Marshal(c)
	return cache.Hash(data)
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Timing parameters baked into occupancy values.
	Timing occupancy.Params `json:"timing"`

	// Pad is the column width of exported matrices.
	Pad int `json:"pad,omitempty"`

	// Refresh bypasses cached solver outputs.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger   `json:"-"`
	Solver solver.Solver `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks the options and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.Timing.SetDefaults()
	if err := o.Timing.Validate(); err != nil {
		return err
	}
	if o.Pad == 0 {
		o.Pad = solver.DefaultPad
	}
	if o.Pad < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "pad must not be negative, got %d", o.Pad)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// ValidateForSolve additionally requires a solver.
func (o *Options) ValidateForSolve() error {
	if err := o.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if o.Solver == nil {
		return errors.New(errors.ErrCodeInvalidConfig, "no solver configured")
	}
	return nil
}

// ModelKeyOpts returns cache key options for the exported data file.
func (o *Options) ModelKeyOpts() cache.ModelKeyOpts {
	return cache.ModelKeyOpts{
		LinkWidth:   o.Timing.LinkWidth,
		HeaderFlits: o.Timing.HeaderFlits,
		RoutingTime: o.Timing.RoutingTime,
		Pad:         o.Pad,
	}
}

// =============================================================================
// Result
// =============================================================================

// Result contains the outputs of a pipeline run. Fields of stages that did
// not run are zero.
type Result struct {
	InputHash   string
	Hyperperiod int
	Packets     []traffic.Packet
	Paths       []routing.Path
	Model       *occupancy.Model

	// DZN is the exported solver data file.
	DZN []byte

	// SolverOutput is the raw output the releases were parsed from.
	SolverOutput []byte
	SolverID     string
	Releases     []int

	Schedule *schedule.Schedule

	// Warnings lists schedule entries that violate their timing window.
	Warnings []string

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NumFlows     int
	NumPackets   int
	NumLinks     int // enumerated rows, including unused ones
	UsedLinks    int
	SkippedLinks int
	UsedCells    int

	ExpandTime   time.Duration
	RouteTime    time.Duration
	BuildTime    time.Duration
	ExportTime   time.Duration
	SolveTime    time.Duration
	AssembleTime time.Duration
}

// CacheInfo tracks cache hits for each cached stage.
type CacheInfo struct {
	ExportHit bool // Whether the data file came from cache
	SolveHit  bool // Whether the solver output came from cache
}

// LinkUsage is the number of packets crossing one link.
type LinkUsage struct {
	Label   string
	Packets int
}

// Usage returns the per-link packet counts of the model, busiest first.
func (r *Result) Usage() []LinkUsage {
	if r.Model == nil {
		return nil
	}
	var out []LinkUsage
	for i, l := range r.Model.Links {
		n := 0
		for _, v := range r.Model.Occupancy[i] {
			if v != occupancy.Unused {
				n++
			}
		}
		if n > 0 {
			out = append(out, LinkUsage{Label: l.Label, Packets: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Packets > out[j].Packets })
	return out
}
