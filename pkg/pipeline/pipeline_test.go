package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/nocsched/pkg/cache"
	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/noc"
	"github.com/matzehuels/nocsched/pkg/observability"
	"github.com/matzehuels/nocsched/pkg/render"
	"github.com/matzehuels/nocsched/pkg/solver"
	"github.com/matzehuels/nocsched/pkg/traffic"
)

func testInput(t *testing.T) Input {
	t.Helper()
	topo, err := noc.NewMesh(3, 3)
	if err != nil {
		t.Fatal(err)
	}
	return Input{
		Topology: topo,
		Application: &traffic.Application{Flows: []traffic.Flow{
			{Name: "b", Source: "dsp", Target: "cpu", Period: 6, Deadline: 100, DataSize: 8},
			{Name: "a", Source: "cam", Target: "dsp", Period: 4, Deadline: 100, DataSize: 16},
		}},
		Mapping: traffic.Mapping{"cam": "0", "dsp": "4", "cpu": "8"},
	}
}

// isolate returns t without the mesh links touching node.
func isolate(t *testing.T, topo *noc.Topology, node string) *noc.Topology {
	t.Helper()
	var links []noc.Link
	for _, l := range topo.Links() {
		if l.Source != node && l.Target != node {
			links = append(links, l)
		}
	}
	out, err := noc.New(topo.Nodes(), links)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestRunnerModelRejectsPartitionedTopology(t *testing.T) {
	in := testInput(t)
	in.Topology = isolate(t, in.Topology, "8")

	_, err := NewRunner(nil, nil, nil).Model(context.Background(), in, Options{})
	if !errors.Is(err, errors.ErrCodeInvalidTopology) {
		t.Fatalf("Model() error = %v, want INVALID_TOPOLOGY", err)
	}
	if !strings.Contains(err.Error(), "{8}") {
		t.Errorf("error %q should name the isolated router", err)
	}
}

// countingSolver answers with fixed releases and counts its invocations.
type countingSolver struct {
	mu    sync.Mutex
	calls int
	out   string
}

func (s *countingSolver) Solve(ctx context.Context, dzn []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if !strings.Contains(string(dzn), "num_packets = 5;") {
		return nil, errors.New(errors.ErrCodeSolverFailed, "unexpected data file")
	}
	return []byte(s.out), nil
}

func (s *countingSolver) ID() string { return "counting" }

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Timing.LinkWidth != 4 || opts.Timing.RoutingTime != 4 || opts.Timing.HeaderFlits != 1 {
		t.Errorf("Timing = %+v, want defaults", opts.Timing)
	}
	if opts.Pad != solver.DefaultPad {
		t.Errorf("Pad = %d, want %d", opts.Pad, solver.DefaultPad)
	}
	if opts.Logger == nil {
		t.Error("Logger not defaulted")
	}

	// Idempotent.
	opts.Pad = -1
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Errorf("second call error: %v", err)
	}

	bad := Options{Pad: -1}
	if err := bad.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("negative pad error = %v, want INVALID_CONFIG", err)
	}

	var noSolver Options
	if err := noSolver.ValidateForSolve(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("ValidateForSolve() error = %v, want INVALID_CONFIG", err)
	}
}

func TestInputValidate(t *testing.T) {
	in := testInput(t)
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Input)
		code   errors.Code
	}{
		{"no topology", func(in *Input) { in.Topology = nil }, errors.ErrCodeInvalidInput},
		{"no application", func(in *Input) { in.Application = nil }, errors.ErrCodeInvalidInput},
		{"unmapped task", func(in *Input) { in.Mapping = traffic.Mapping{"cam": "0"} }, errors.ErrCodeUnmappedTask},
		{"partitioned topology", func(in *Input) { in.Topology = isolate(t, in.Topology, "8") }, errors.ErrCodeInvalidTopology},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testInput(t)
			tt.modify(&in)
			if err := in.Validate(); !errors.Is(err, tt.code) {
				t.Errorf("Validate() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestInputHashIgnoresFlowOrder(t *testing.T) {
	a := testInput(t)
	b := testInput(t)
	b.Application.Flows[0], b.Application.Flows[1] = b.Application.Flows[1], b.Application.Flows[0]
	if a.Hash() != b.Hash() {
		t.Error("Hash() depends on flow declaration order")
	}
	b.Mapping = traffic.Mapping{"cam": "1", "dsp": "4", "cpu": "8"}
	if a.Hash() == b.Hash() {
		t.Error("Hash() ignores the mapping")
	}
}

func TestRunnerModel(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Model(context.Background(), testInput(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Hyperperiod != 12 {
		t.Errorf("Hyperperiod = %d, want 12", res.Hyperperiod)
	}
	if res.Stats.NumFlows != 2 || res.Stats.NumPackets != 5 {
		t.Errorf("Stats = %+v, want 2 flows, 5 packets", res.Stats)
	}
	if res.Packets[0].Name != "a:0" {
		t.Errorf("first packet = %s, want a:0", res.Packets[0].Name)
	}
	if len(res.Paths) != 5 {
		t.Errorf("len(Paths) = %d, want 5", len(res.Paths))
	}
	if res.Stats.UsedLinks+res.Stats.SkippedLinks != res.Stats.NumLinks {
		t.Errorf("used %d + skipped %d != links %d", res.Stats.UsedLinks, res.Stats.SkippedLinks, res.Stats.NumLinks)
	}
	if !strings.HasPrefix(string(res.DZN), "hyperperiod_length = 12;\n") {
		t.Errorf("DZN starts with %q", string(res.DZN[:min(40, len(res.DZN))]))
	}
	if res.Schedule != nil || res.SolverOutput != nil {
		t.Error("Model() must not solve")
	}
}

func TestRunnerModelInvalidInput(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	in := testInput(t)
	in.Mapping = traffic.Mapping{"cam": "0", "dsp": "4", "cpu": "99"}
	if _, err := r.Model(context.Background(), in, Options{}); err == nil {
		t.Fatal("expected error for unknown node")
	}
}

func TestRunnerExecute(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, nil)
	defer r.Close()

	s := &countingSolver{out: "release = [0, 4, 8, 0, 6];\n----------\n==========\n"}
	opts := Options{Solver: s}

	res, err := r.Execute(context.Background(), testInput(t), opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.SolverID != "counting" {
		t.Errorf("SolverID = %q", res.SolverID)
	}
	if res.CacheInfo.ExportHit || res.CacheInfo.SolveHit {
		t.Errorf("first run CacheInfo = %+v, want misses", res.CacheInfo)
	}
	if len(res.Schedule.Entries) != 5 || len(res.Warnings) != 0 {
		t.Errorf("Schedule has %d entries, %d warnings", len(res.Schedule.Entries), len(res.Warnings))
	}
	e, ok := res.Schedule.Entry("b:1")
	if !ok || e.Release != 6 || e.Source.Node != "4" || e.Target.Node != "8" {
		t.Errorf("Entry(b:1) = %+v, %v", e, ok)
	}

	res, err = r.Execute(context.Background(), testInput(t), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !res.CacheInfo.ExportHit || !res.CacheInfo.SolveHit {
		t.Errorf("second run CacheInfo = %+v, want hits", res.CacheInfo)
	}
	if s.calls != 1 {
		t.Errorf("solver called %d times, want 1", s.calls)
	}

	opts.Refresh = true
	if _, err := r.Execute(context.Background(), testInput(t), opts); err != nil {
		t.Fatal(err)
	}
	if s.calls != 2 {
		t.Errorf("solver called %d times after refresh, want 2", s.calls)
	}
}

func TestRunnerExecuteWarnings(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	// a:1 released before its MinStart of 4.
	opts := Options{Solver: solver.Static([]byte("0 1 8 0 6\n"))}
	res, err := r.Execute(context.Background(), testInput(t), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "a:1") {
		t.Errorf("Warnings = %v, want one for a:1", res.Warnings)
	}
}

func TestRunnerExecuteSolverErrors(t *testing.T) {
	tests := []struct {
		name string
		s    solver.Solver
		code errors.Code
	}{
		{
			name: "unsatisfiable",
			s:    solver.Static([]byte("=====UNSATISFIABLE=====\n")),
			code: errors.ErrCodeSolverFailed,
		},
		{
			name: "wrong count",
			s:    solver.Static([]byte("1 2 3\n")),
			code: errors.ErrCodeInconsistentModel,
		},
		{
			name: "failure",
			s: solver.Func(func(context.Context, []byte) ([]byte, error) {
				return nil, errors.New(errors.ErrCodeSolverUnavailable, "no solver")
			}),
			code: errors.ErrCodeSolverUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(nil, nil, nil)
			_, err := r.Execute(context.Background(), testInput(t), Options{Solver: tt.s})
			if !errors.Is(err, tt.code) {
				t.Errorf("Execute() error = %v, want %s", err, tt.code)
			}
			if !strings.HasPrefix(err.Error(), "solve: ") {
				t.Errorf("error %q not attributed to solve stage", err)
			}
		})
	}
}

func TestRunnerExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRunner(nil, nil, nil)
	_, err := r.Execute(ctx, testInput(t), Options{Solver: solver.Static([]byte("0"))})
	if err == nil || !strings.Contains(err.Error(), context.Canceled.Error()) {
		t.Errorf("Execute() error = %v, want canceled", err)
	}
}

type stageRecorder struct {
	observability.NoopPipelineHooks
	mu     sync.Mutex
	stages []string
	solves int
}

func (h *stageRecorder) OnStageComplete(_ context.Context, stage string, _ time.Duration, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stages = append(h.stages, stage)
}

func (h *stageRecorder) OnSolveComplete(context.Context, string, time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.solves++
}

func TestRunnerHooks(t *testing.T) {
	h := &stageRecorder{}
	observability.SetPipelineHooks(h)
	defer observability.Reset()

	r := NewRunner(nil, nil, nil)
	if _, err := r.Execute(context.Background(), testInput(t), Options{Solver: solver.Static([]byte("0 4 8 0 6"))}); err != nil {
		t.Fatal(err)
	}
	want := []string{StageExpand, StageRoute, StageBuild, StageExport, StageSolve, StageAssemble}
	if strings.Join(h.stages, ",") != strings.Join(want, ",") {
		t.Errorf("stages = %v, want %v", h.stages, want)
	}
	if h.solves != 1 {
		t.Errorf("solves = %d, want 1", h.solves)
	}
}

func TestResultUsage(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Model(context.Background(), testInput(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	usage := res.Usage()
	if len(usage) != res.Stats.UsedLinks {
		t.Fatalf("len(Usage()) = %d, want %d", len(usage), res.Stats.UsedLinks)
	}
	for i := 1; i < len(usage); i++ {
		if usage[i].Packets > usage[i-1].Packets {
			t.Errorf("Usage() not sorted: %v", usage)
		}
	}
	// Router 4 receives all a packets and sends all b packets.
	counts := map[string]int{}
	for _, u := range usage {
		counts[u.Label] = u.Packets
	}
	if counts["4-L"] != 3 || counts["L-4"] != 2 {
		t.Errorf("terminal usage = %d/%d, want 3/2", counts["4-L"], counts["L-4"])
	}
	if (&Result{}).Usage() != nil {
		t.Error("Usage() of empty result should be nil")
	}
}

func TestRunnerRoute(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	p, err := r.Route(testInput(t), "0", "8")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(p.Labels(), " "); got != "0-1 1-2 2-5 5-8" {
		t.Errorf("Route(0, 8) = %s", got)
	}
	if _, err := r.Route(Input{}, "0", "8"); err == nil {
		t.Error("expected error without topology")
	}
}

func TestRunnerRenderDOT(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	in := testInput(t)
	data, hit, err := r.RenderWithCacheInfo(context.Background(), in.Topology, RenderOptions{Format: render.FormatDOT})
	if err != nil {
		t.Fatal(err)
	}
	if hit || !strings.HasPrefix(string(data), "digraph noc {") {
		t.Errorf("RenderWithCacheInfo(dot) = %q, hit %v", data[:min(20, len(data))], hit)
	}
}

func TestTopologyHash(t *testing.T) {
	a, _ := noc.NewMesh(2, 2)
	b, _ := noc.NewMesh(2, 2)
	c, _ := noc.NewMesh(2, 3)
	if TopologyHash(a) != TopologyHash(b) {
		t.Error("equal meshes hash differently")
	}
	if TopologyHash(a) == TopologyHash(c) {
		t.Error("different meshes hash equally")
	}
}
