package occupancy

import (
	"context"
	"reflect"
	"strconv"
	"testing"

	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/noc"
	"github.com/matzehuels/nocsched/pkg/noc/routing"
	"github.com/matzehuels/nocsched/pkg/traffic"
)

func TestEnumerate(t *testing.T) {
	m, _ := noc.NewMesh(2, 2)
	links := Enumerate(m)

	want := []string{
		"0-1", "1-0", "2-3", "3-2", "0-2", "2-0", "1-3", "3-1",
		"L-0", "0-L", "L-1", "1-L", "L-2", "2-L", "L-3", "3-L",
	}
	var got []string
	for _, l := range links {
		got = append(got, l.Label)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Enumerate() = %v, want %v", got, want)
	}
	if links[8].Kind != noc.LinkIngress || links[9].Kind != noc.LinkEgress {
		t.Errorf("terminal kinds = %v, %v", links[8].Kind, links[9].Kind)
	}
}

func TestIndex(t *testing.T) {
	m, _ := noc.NewMesh(2, 2)
	ix, err := NewIndex(Enumerate(m))
	if err != nil {
		t.Fatal(err)
	}
	if ix.Len() != 16 {
		t.Errorf("Len() = %d, want 16", ix.Len())
	}
	if i, ok := ix.Mesh("1", "3"); !ok || i != 6 {
		t.Errorf("Mesh(1, 3) = %d, %v, want 6", i, ok)
	}
	if i, ok := ix.Ingress("2"); !ok || i != 12 {
		t.Errorf("Ingress(2) = %d, %v, want 12", i, ok)
	}
	if i, ok := ix.Egress("2"); !ok || i != 13 {
		t.Errorf("Egress(2) = %d, %v, want 13", i, ok)
	}
	if i, ok := ix.Row("3-L"); !ok || i != 15 {
		t.Errorf("Row(3-L) = %d, %v, want 15", i, ok)
	}
	if _, ok := ix.Row("nope"); ok {
		t.Error("Row(nope) should miss")
	}
}

func TestIndexDuplicateLabel(t *testing.T) {
	links := []noc.Link{{Source: "a", Target: "b", Label: "x"}, {Source: "b", Target: "a", Label: "x"}}
	if _, err := NewIndex(links); !errors.Is(err, errors.ErrCodeInvalidTopology) {
		t.Errorf("NewIndex() error = %v, want INVALID_TOPOLOGY", err)
	}
}

func TestParams(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		bytes, hops, flits, occ int
	}{
		{0, 0, 1, 6},
		{1, 0, 2, 7},
		{4, 1, 2, 11},
		{5, 1, 3, 12},
		{64, 1, 17, 26},
		{64, 3, 17, 34},
	}
	for _, tt := range tests {
		if got := p.Flits(tt.bytes); got != tt.flits {
			t.Errorf("Flits(%d) = %d, want %d", tt.bytes, got, tt.flits)
		}
		if got := p.Occupancy(tt.bytes, tt.hops); got != tt.occ {
			t.Errorf("Occupancy(%d, %d) = %d, want %d", tt.bytes, tt.hops, got, tt.occ)
		}
	}
}

func TestParamsValidate(t *testing.T) {
	bad := []Params{
		{LinkWidth: 0},
		{LinkWidth: 4, HeaderFlits: -1},
		{LinkWidth: 4, RoutingTime: -1},
		{LinkWidth: 4, Workers: -2},
	}
	for _, p := range bad {
		if err := p.Validate(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
			t.Errorf("Validate(%+v) = %v, want INVALID_CONFIG", p, err)
		}
	}

	var p Params
	p.SetDefaults()
	if p != DefaultParams() {
		t.Errorf("SetDefaults() = %+v, want %+v", p, DefaultParams())
	}
}

// scenario2x2 is a 2×2 mesh with a single flow between adjacent nodes 0 and 1.
func scenario2x2(t *testing.T) Input {
	t.Helper()
	topo, err := noc.NewMesh(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	flows := []traffic.Flow{{Name: "f1", Source: "task0", Target: "task1", Period: 10, Deadline: 5, DataSize: 64}}
	hp, packets, err := traffic.ExpandAll(flows)
	if err != nil {
		t.Fatal(err)
	}
	return Input{
		Topology:    topo,
		Hyperperiod: hp,
		Packets:     packets,
		Mapping:     traffic.Mapping{"task0": "0", "task1": "1"},
	}
}

func TestBuildEndToEnd2x2(t *testing.T) {
	in := scenario2x2(t)
	if in.Hyperperiod != 10 || len(in.Packets) != 1 {
		t.Fatalf("hyperperiod = %d, packets = %d, want 10, 1", in.Hyperperiod, len(in.Packets))
	}
	pkt := in.Packets[0]
	if pkt.MinStart != 0 || pkt.AbsDeadline != 5 {
		t.Errorf("packet window = [%d, %d], want [0, 5]", pkt.MinStart, pkt.AbsDeadline)
	}

	m, err := Build(context.Background(), in, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	used := map[string]bool{"0-1": true, "L-0": true, "1-L": true}
	for i, l := range m.Links {
		o, d, r := m.Occupancy[i][0], m.Deadline[i][0], m.Release[i][0]
		if used[l.Label] {
			if o != 26 || d != 5 || r != 0 {
				t.Errorf("row %s = (%d, %d, %d), want (26, 5, 0)", l.Label, o, d, r)
			}
			continue
		}
		if o != Unused || d != Unused || r != Unused {
			t.Errorf("row %s = (%d, %d, %d), want unused", l.Label, o, d, r)
		}
	}

	if got := m.UsedRows(); !reflect.DeepEqual(got, []int{0, 8, 11}) {
		t.Errorf("UsedRows() = %v, want [0 8 11]", got)
	}
	if got := m.SkippedRows(); got != 13 {
		t.Errorf("SkippedRows() = %d, want 13", got)
	}
	if got := m.NetTime(0); got != 26 {
		t.Errorf("NetTime(0) = %d, want 26", got)
	}
	var labels []string
	for _, l := range m.LinksOf(0) {
		labels = append(labels, l.Label)
	}
	if !reflect.DeepEqual(labels, []string{"0-1", "L-0", "1-L"}) {
		t.Errorf("LinksOf(0) = %v", labels)
	}
}

func TestBuildSentinelInvariant(t *testing.T) {
	topo, _ := noc.NewMesh(3, 3)
	flows := []traffic.Flow{
		{Name: "a", Source: "t0", Target: "t8", Period: 4, Deadline: 3, DataSize: 32},
		{Name: "b", Source: "t5", Target: "t3", Period: 6, Deadline: 6, DataSize: 8},
		{Name: "c", Source: "t4", Target: "t4", Period: 12, Deadline: 12, DataSize: 0},
	}
	mapping := traffic.Mapping{"t0": "0", "t8": "8", "t5": "5", "t3": "3", "t4": "4"}
	hp, packets, err := traffic.ExpandAll(flows)
	if err != nil {
		t.Fatal(err)
	}

	m, err := Build(context.Background(), Input{Topology: topo, Hyperperiod: hp, Packets: packets, Mapping: mapping}, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}

	for i := range m.Links {
		for j := range m.Packets {
			used := m.Occupancy[i][j] != Unused
			if (m.Deadline[i][j] != Unused) != used || (m.Release[i][j] != Unused) != used {
				t.Errorf("cell (%d, %d) breaks sentinel invariant", i, j)
			}
		}
	}
	if a, b, c := CountUsed(m.Occupancy), CountUsed(m.Deadline), CountUsed(m.Release); a != b || b != c {
		t.Errorf("used counts = %d/%d/%d", a, b, c)
	}

	// a: 4 hops + 2 terminal cells per packet, 3 packets; b: 2 hops + 2, 2 packets; c: 0 + 2, 1 packet.
	if got, want := m.UsedCells(), 3*6+2*4+1*2; got != want {
		t.Errorf("UsedCells() = %d, want %d", got, want)
	}
	if got, want := m.SkippedRows(), m.NumLinks()-len(m.UsedRows()); got != want {
		t.Errorf("SkippedRows() = %d, want %d", got, want)
	}
}

func TestBuildWorkersMatchSequential(t *testing.T) {
	topo, _ := noc.NewMesh(4, 4)
	var flows []traffic.Flow
	mapping := traffic.Mapping{}
	for i := 0; i < 16; i++ {
		src, dst := "s"+strconv.Itoa(i), "d"+strconv.Itoa(i)
		mapping[src] = noc.MeshNodeID(i%4, i/4, 4)
		mapping[dst] = noc.MeshNodeID(3-i%4, 3-i/4, 4)
		flows = append(flows, traffic.Flow{
			Name: "f" + strconv.Itoa(i), Source: src, Target: dst,
			Period: 2 + i%3, Deadline: 2, DataSize: 4 * i,
		})
	}
	hp, packets, err := traffic.ExpandAll(flows)
	if err != nil {
		t.Fatal(err)
	}
	in := Input{Topology: topo, Hyperperiod: hp, Packets: packets, Mapping: mapping}

	seq, err := Build(context.Background(), in, Params{LinkWidth: 4, HeaderFlits: 1, RoutingTime: 4, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	par, err := Build(context.Background(), in, Params{LinkWidth: 4, HeaderFlits: 1, RoutingTime: 4, Workers: 8})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(seq, par) {
		t.Error("parallel build differs from sequential build")
	}
}

func TestBuildErrors(t *testing.T) {
	ctx := context.Background()

	in := scenario2x2(t)
	in.Mapping = traffic.Mapping{"task0": "0"}
	if _, err := Build(ctx, in, DefaultParams()); !errors.Is(err, errors.ErrCodeUnmappedTask) {
		t.Errorf("unmapped error = %v, want UNMAPPED_TASK", err)
	}

	in = scenario2x2(t)
	in.Paths = []routing.Path{}
	if _, err := Build(ctx, in, DefaultParams()); !errors.Is(err, errors.ErrCodeInconsistentModel) {
		t.Errorf("path count error = %v, want INCONSISTENT_MODEL", err)
	}

	in = scenario2x2(t)
	in.Paths = []routing.Path{{{Source: "0", Target: "2", Label: "0-2"}}}
	if _, err := Build(ctx, in, DefaultParams()); !errors.Is(err, errors.ErrCodeInconsistentModel) {
		t.Errorf("wrong path error = %v, want INCONSISTENT_MODEL", err)
	}

	in = scenario2x2(t)
	in.Mapping = traffic.Mapping{"task0": "0", "task1": "7"}
	if _, err := Build(ctx, in, DefaultParams()); !errors.Is(err, errors.ErrCodeNodeNotFound) {
		t.Errorf("unknown node error = %v, want NODE_NOT_FOUND", err)
	}

	in = scenario2x2(t)
	if _, err := Build(ctx, in, Params{LinkWidth: -1}); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("params error = %v, want INVALID_CONFIG", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := Build(cancelled, scenario2x2(t), DefaultParams()); err == nil {
		t.Error("Build with cancelled context should fail")
	}
}

func TestModelValidateDetectsMismatch(t *testing.T) {
	m, err := Build(context.Background(), scenario2x2(t), DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	m.Deadline[0][0] = Unused
	if err := m.Validate(); !errors.Is(err, errors.ErrCodeInconsistentModel) {
		t.Errorf("Validate() = %v, want INCONSISTENT_MODEL", err)
	}

	m2, _ := Build(context.Background(), scenario2x2(t), DefaultParams())
	m2.Release = m2.Release[:3]
	if err := m2.Validate(); !errors.Is(err, errors.ErrCodeInconsistentModel) {
		t.Errorf("Validate() shape = %v, want INCONSISTENT_MODEL", err)
	}
}

func TestColumn(t *testing.T) {
	m, _ := Build(context.Background(), scenario2x2(t), DefaultParams())
	col := m.Column(0)
	if len(col) != 16 || col[0] != 26 || col[1] != Unused {
		t.Errorf("Column(0) = %v", col)
	}
}
