package traffic

import (
	"math"
	"reflect"
	"testing"

	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/noc"
)

func TestHyperperiod(t *testing.T) {
	tests := []struct {
		periods []int
		want    int
	}{
		{[]int{10}, 10},
		{[]int{4, 6}, 12},
		{[]int{6, 4}, 12},
		{[]int{2, 3, 5}, 30},
		{[]int{8, 8, 8}, 8},
		{[]int{1, 7}, 7},
	}
	for _, tt := range tests {
		flows := make([]Flow, len(tt.periods))
		for i, p := range tt.periods {
			flows[i] = Flow{Name: string(rune('a' + i)), Source: "s", Target: "t", Period: p}
		}
		got, err := Hyperperiod(flows)
		if err != nil {
			t.Fatalf("Hyperperiod(%v) error: %v", tt.periods, err)
		}
		if got != tt.want {
			t.Errorf("Hyperperiod(%v) = %d, want %d", tt.periods, got, tt.want)
		}
	}
}

func TestHyperperiodErrors(t *testing.T) {
	tests := []struct {
		name  string
		flows []Flow
	}{
		{"empty", nil},
		{"zero period", []Flow{{Name: "f", Period: 0}}},
		{"negative period", []Flow{{Name: "f", Period: -3}}},
		{"overflow", []Flow{
			{Name: "a", Period: math.MaxInt / 2},
			{Name: "b", Period: math.MaxInt/2 - 1},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Hyperperiod(tt.flows); !errors.Is(err, errors.ErrCodeInvalidFlow) {
				t.Errorf("Hyperperiod() error = %v, want INVALID_FLOW", err)
			}
		})
	}
}

func TestExpandPeriods4And6(t *testing.T) {
	flows := []Flow{
		{Name: "f2", Source: "t0", Target: "t1", Period: 6, Deadline: 3, DataSize: 8},
		{Name: "f1", Source: "t1", Target: "t2", Period: 4, Deadline: 2, DataSize: 16},
	}

	hp, packets, err := ExpandAll(flows)
	if err != nil {
		t.Fatal(err)
	}
	if hp != 12 {
		t.Errorf("hyperperiod = %d, want 12", hp)
	}

	var names []string
	var starts []int
	for _, p := range packets {
		names = append(names, p.Name)
		starts = append(starts, p.MinStart)
	}
	if want := []string{"f1:0", "f1:1", "f1:2", "f2:0", "f2:1"}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
	if want := []int{0, 4, 8, 0, 6}; !reflect.DeepEqual(starts, want) {
		t.Errorf("min_start = %v, want %v", starts, want)
	}

	for _, p := range packets {
		f := flows[0]
		if p.Flow == "f1" {
			f = flows[1]
		}
		if p.AbsDeadline != p.MinStart+f.Deadline {
			t.Errorf("%s abs_deadline = %d, want %d", p.Name, p.AbsDeadline, p.MinStart+f.Deadline)
		}
		if p.DataSize != f.DataSize || p.Source != f.Source || p.Target != f.Target {
			t.Errorf("%s did not inherit flow fields: %+v", p.Name, p)
		}
	}

	// Input order untouched.
	if flows[0].Name != "f2" {
		t.Error("Expand must not reorder its input")
	}
}

func TestExpandPartialPeriod(t *testing.T) {
	// 10 does not divide 25: starts 0, 10, 20.
	packets, err := Expand([]Flow{{Name: "f", Source: "a", Target: "b", Period: 10}}, 25)
	if err != nil {
		t.Fatal(err)
	}
	if len(packets) != 3 || packets[2].MinStart != 20 {
		t.Errorf("packets = %+v", packets)
	}
}

func TestExpandErrors(t *testing.T) {
	valid := Flow{Name: "f", Source: "a", Target: "b", Period: 4}
	tests := []struct {
		name  string
		flows []Flow
		hp    int
	}{
		{"zero hyperperiod", []Flow{valid}, 0},
		{"zero period", []Flow{{Name: "f", Source: "a", Target: "b"}}, 4},
		{"negative deadline", []Flow{{Name: "f", Source: "a", Target: "b", Period: 4, Deadline: -1}}, 4},
		{"negative datasize", []Flow{{Name: "f", Source: "a", Target: "b", Period: 4, DataSize: -1}}, 4},
		{"duplicate name", []Flow{valid, valid}, 4},
		{"missing target", []Flow{{Name: "f", Source: "a", Period: 4}}, 4},
		{"colon in name", []Flow{{Name: "f:1", Source: "a", Target: "b", Period: 4}}, 4},
		{"too many packets", []Flow{{Name: "f", Source: "a", Target: "b", Period: 1}}, MaxPackets + 1},
		{"hyperperiod near max int", []Flow{
			{Name: "a", Source: "x", Target: "y", Period: math.MaxInt},
			{Name: "b", Source: "x", Target: "y", Period: 7},
		}, math.MaxInt},
		{"total overflows", []Flow{
			{Name: "a", Source: "x", Target: "y", Period: 1},
			{Name: "b", Source: "x", Target: "y", Period: 1},
		}, MaxPackets},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Expand(tt.flows, tt.hp); !errors.Is(err, errors.ErrCodeInvalidFlow) {
				t.Errorf("Expand() error = %v, want INVALID_FLOW", err)
			}
		})
	}
}

func TestExpandAllHugeHyperperiod(t *testing.T) {
	flows := []Flow{
		{Name: "a", Source: "x", Target: "y", Period: math.MaxInt},
		{Name: "b", Source: "x", Target: "y", Period: 7},
	}
	if _, _, err := ExpandAll(flows); !errors.Is(err, errors.ErrCodeInvalidFlow) {
		t.Errorf("ExpandAll() error = %v, want INVALID_FLOW", err)
	}
}

func TestExpandLargePeriods(t *testing.T) {
	hp := math.MaxInt - math.MaxInt%3
	packets, err := Expand([]Flow{{Name: "a", Source: "x", Target: "y", Period: hp / 3}}, hp)
	if err != nil {
		t.Fatal(err)
	}
	if len(packets) != 3 || packets[2].MinStart != 2*(hp/3) {
		t.Errorf("Expand() = %+v, want 3 packets", packets)
	}
}

func TestApplicationValidate(t *testing.T) {
	app := Application{
		Tasks: []string{"a", "b"},
		Flows: []Flow{{Name: "f", Source: "a", Target: "c", Period: 1}},
	}
	if err := app.Validate(); !errors.Is(err, errors.ErrCodeInvalidFlow) {
		t.Errorf("Validate() = %v, want INVALID_FLOW", err)
	}
	app.Flows[0].Target = "b"
	if err := app.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestMapping(t *testing.T) {
	m := Mapping{"task0": "0", "task1": "1"}

	src, dst, err := m.Endpoints(Packet{Name: "f1:0", Source: "task0", Target: "task1"})
	if err != nil {
		t.Fatal(err)
	}
	if src != "0" || dst != "1" {
		t.Errorf("Endpoints() = %s, %s, want 0, 1", src, dst)
	}

	if _, _, err := m.Endpoints(Packet{Name: "f1:0", Source: "task0", Target: "task9"}); !errors.Is(err, errors.ErrCodeUnmappedTask) {
		t.Errorf("unmapped error = %v, want UNMAPPED_TASK", err)
	}

	if got := m.Tasks(); !reflect.DeepEqual(got, []string{"task0", "task1"}) {
		t.Errorf("Tasks() = %v", got)
	}
}

func TestMappingCheck(t *testing.T) {
	topo, _ := noc.NewMesh(2, 2)
	flows := []Flow{{Name: "f", Source: "a", Target: "b", Period: 1}}

	if err := (Mapping{"a": "0", "b": "3"}).Check(flows, topo); err != nil {
		t.Errorf("Check() = %v, want nil", err)
	}
	if err := (Mapping{"a": "0"}).Check(flows, topo); !errors.Is(err, errors.ErrCodeUnmappedTask) {
		t.Errorf("Check() = %v, want UNMAPPED_TASK", err)
	}
	if err := (Mapping{"a": "0", "b": "7"}).Check(flows, topo); !errors.Is(err, errors.ErrCodeNodeNotFound) {
		t.Errorf("Check() = %v, want NODE_NOT_FOUND", err)
	}
}
