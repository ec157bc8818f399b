package solver

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
	"time"

	"github.com/matzehuels/nocsched/pkg/errors"
)

// fakeMiniZinc writes a shell script standing in for the minizinc binary.
func fakeMiniZinc(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "minizinc")
	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"--version\" ]; then echo 'MiniZinc to FlatZinc converter, version 2.8.3'; exit 0; fi\n" +
		body
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func modelFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.mzn")
	if err := os.WriteFile(path, []byte("% model\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMiniZincSolve(t *testing.T) {
	bin := fakeMiniZinc(t, `test "$1" = "--solver" || exit 3
test "$2" = "Gecode" || exit 4
test -f "$4" || exit 5
grep -q "num_packets = 2;" "$4" || exit 6
echo "release = [3, 7];"
echo "----------"
echo "=========="
`)
	mzn := &MiniZinc{Binary: bin, ModelPath: modelFile(t)}

	out, err := mzn.Solve(context.Background(), []byte("num_packets = 2;\n"))
	if err != nil {
		t.Fatalf("Solve() error: %v", err)
	}
	releases, err := ParseOutput(out, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(releases, []int{3, 7}) {
		t.Errorf("releases = %v, want [3 7]", releases)
	}
}

func TestMiniZincFailure(t *testing.T) {
	bin := fakeMiniZinc(t, "echo 'type error' >&2\nexit 1\n")
	mzn := &MiniZinc{Binary: bin, ModelPath: modelFile(t)}

	_, err := mzn.Solve(context.Background(), nil)
	if !errors.Is(err, errors.ErrCodeSolverFailed) {
		t.Errorf("Solve() error = %v, want SOLVER_FAILED", err)
	}
	if !errors.IsExternal(err) {
		t.Error("solver failure should be external")
	}
}

func TestMiniZincTimeout(t *testing.T) {
	bin := fakeMiniZinc(t, "exec sleep 5\n")
	mzn := &MiniZinc{Binary: bin, ModelPath: modelFile(t), Timeout: 50 * time.Millisecond}

	_, err := mzn.Solve(context.Background(), nil)
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("Solve() error = %v, want TIMEOUT", err)
	}
}

func TestMiniZincUnavailable(t *testing.T) {
	mzn := &MiniZinc{Binary: "nocsched-no-such-minizinc", ModelPath: modelFile(t)}
	if _, err := mzn.Solve(context.Background(), nil); !errors.Is(err, errors.ErrCodeSolverUnavailable) {
		t.Errorf("Solve() error = %v, want SOLVER_UNAVAILABLE", err)
	}
	if _, err := mzn.Version(context.Background()); !errors.Is(err, errors.ErrCodeSolverUnavailable) {
		t.Errorf("Version() error = %v, want SOLVER_UNAVAILABLE", err)
	}
}

func TestMiniZincMissingModel(t *testing.T) {
	mzn := &MiniZinc{ModelPath: filepath.Join(t.TempDir(), "missing.mzn")}
	if _, err := mzn.Solve(context.Background(), nil); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Solve() error = %v, want FILE_NOT_FOUND", err)
	}
	if _, err := (&MiniZinc{}).Solve(context.Background(), nil); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Solve() without model error = %v, want INVALID_CONFIG", err)
	}
}

func TestMiniZincVersion(t *testing.T) {
	mzn := &MiniZinc{Binary: fakeMiniZinc(t, "exit 1\n")}
	v, err := mzn.Version(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v != "MiniZinc to FlatZinc converter, version 2.8.3" {
		t.Errorf("Version() = %q", v)
	}
}

func TestMiniZincArgsAndID(t *testing.T) {
	model := modelFile(t)
	mzn := &MiniZinc{Backend: "Chuffed", ModelPath: model}
	want := []string{"--solver", "Chuffed", model, "data.dzn"}
	if got := mzn.Args("data.dzn"); !reflect.DeepEqual(got, want) {
		t.Errorf("Args() = %v, want %v", got, want)
	}

	id := mzn.ID()
	if err := os.WriteFile(model, []byte("% changed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if mzn.ID() == id {
		t.Error("ID() should change with model content")
	}
}
