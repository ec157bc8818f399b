package solver

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/matzehuels/nocsched/pkg/cache"
	"github.com/matzehuels/nocsched/pkg/errors"
)

// MiniZinc defaults.
const (
	DefaultBinary  = "minizinc"
	DefaultBackend = "Gecode"
	DefaultTimeout = 10 * time.Minute

	// waitDelay bounds how long output pipes are drained after the solver is killed.
	waitDelay = 5 * time.Second
)

// MiniZinc runs the minizinc command line tool:
//
//	minizinc --solver <Backend> <ModelPath> <data.dzn>
//
// The data file is written to a temporary file for the duration of the call.
type MiniZinc struct {
	Binary    string        // executable name or path, default "minizinc"
	Backend   string        // solver backend, default "Gecode"
	ModelPath string        // scheduling model (.mzn), required
	Timeout   time.Duration // zero means DefaultTimeout, negative disables
}

// NewMiniZinc returns a runner for model with default binary, backend and timeout.
func NewMiniZinc(model string) *MiniZinc {
	return &MiniZinc{ModelPath: model}
}

func (m *MiniZinc) binary() string {
	if m.Binary == "" {
		return DefaultBinary
	}
	return m.Binary
}

func (m *MiniZinc) backend() string {
	if m.Backend == "" {
		return DefaultBackend
	}
	return m.Backend
}

func (m *MiniZinc) timeout() time.Duration {
	if m.Timeout == 0 {
		return DefaultTimeout
	}
	return m.Timeout
}

// ID identifies the backend and model content, so cached outputs are not
// reused after the model changes.
func (m *MiniZinc) ID() string {
	id := "minizinc:" + m.backend()
	if data, err := os.ReadFile(m.ModelPath); err == nil {
		id += ":" + cache.Hash(data)[:16]
	}
	return id
}

// Args returns the command line used for a data file at dznPath.
func (m *MiniZinc) Args(dznPath string) []string {
	return []string{"--solver", m.backend(), m.ModelPath, dznPath}
}

// Solve runs the solver on dzn and returns its standard output.
//
// Errors:
//   - ErrCodeFileNotFound if the model file does not exist
//   - ErrCodeSolverUnavailable if the binary cannot be found
//   - ErrCodeTimeout if the run exceeds the timeout
//   - ErrCodeSolverFailed if the process exits with a non-zero status
func (m *MiniZinc) Solve(ctx context.Context, dzn []byte) ([]byte, error) {
	if m.ModelPath == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "solver model path is required")
	}
	if _, err := os.Stat(m.ModelPath); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "solver model %s", m.ModelPath)
	}
	bin, err := exec.LookPath(m.binary())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSolverUnavailable, err, "locate %s", m.binary())
	}

	f, err := os.CreateTemp("", "nocsched-*.dzn")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create data file")
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(dzn); err != nil {
		f.Close()
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "write data file")
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "write data file")
	}

	if d := m.timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, m.Args(f.Name())...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "solver did not finish within %s", m.timeout())
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return nil, errors.Wrap(errors.ErrCodeSolverFailed, err, "solver exited with status %d: %s",
				exitErr.ExitCode(), lastLine(stderr.String()))
		}
		return nil, errors.Wrap(errors.ErrCodeSolverUnavailable, err, "run %s", bin)
	}
	return stdout.Bytes(), nil
}

// Version returns the first line of `minizinc --version`.
func (m *MiniZinc) Version(ctx context.Context) (string, error) {
	bin, err := exec.LookPath(m.binary())
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeSolverUnavailable, err, "locate %s", m.binary())
	}
	out, err := exec.CommandContext(ctx, bin, "--version").Output()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeSolverUnavailable, err, "%s --version", bin)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", errors.New(errors.ErrCodeSolverUnavailable, "%s --version printed nothing", bin)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
