package errors

import (
	"strings"
	"testing"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid numeric", "12", false},
		{"valid symbolic", "cpu_0", false},
		{"valid with dash", "task-a", false},
		{"valid with dot", "f1.hi", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 200), true},
		{"space", "task a", true},
		{"tab", "task\ta", true},
		{"newline", "task\na", true},
		{"percent", "f%1", true},
		{"pipe", "f|1", true},
		{"semicolon", "f;1", true},
		{"comma", "f,1", true},
		{"colon", "f1:0", true},
		{"slash", "a/b", true},
		{"backslash", "a\\b", true},
		{"control char", "foo\x01bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier("task", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIdentifier(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidateIdentifier(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateLabel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"mesh link", "0-1", false},
		{"ingress", "L-3", false},
		{"with spaces", "north 0 1", false},

		{"empty", "", true},
		{"newline", "0-1\n", true},
		{"carriage return", "0\r1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLabel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLabel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidTopology) {
				t.Errorf("ValidateLabel(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "sim/0.txt", false},
		{"valid nested", "out/run-1/packets/3.txt", false},
		{"valid filename only", "app.dzn", false},
		{"valid with dots", "v1.2.3/model.dzn", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 600)), true},
		{"absolute path", "/etc/passwd", true},
		{"path traversal", "../../../etc/passwd", true},
		{"path traversal middle", "foo/../bar", true},
		{"null byte", "foo\x00bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidatePath(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidConfig,
		ErrCodeInvalidTopology,
		ErrCodeInvalidFlow,
		ErrCodeUnmappedTask,
		ErrCodeNodeNotFound,
		ErrCodeFileNotFound,
		ErrCodeNotFound,
		ErrCodeSolverUnavailable,
		ErrCodeSolverFailed,
		ErrCodeSolverOutput,
		ErrCodeTimeout,
		ErrCodeInconsistentModel,
		ErrCodeInternal,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
