package errors

import (
	"strings"
	"unicode"
)

// maxIdentifierLength bounds node, task and flow identifiers.
const maxIdentifierLength = 128

// ValidateIdentifier validates a node, task or flow identifier.
//
// Identifiers end up inside solver comments, packet names and file names, so
// the rules are conservative:
//   - No empty names
//   - No whitespace or control characters
//   - No characters that break the solver data format (% | ; ,)
//   - No ':' (reserved as the packet index separator)
//   - No path separators
//   - Maximum length of 128 characters
func ValidateIdentifier(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "%s identifier cannot be empty", kind)
	}
	if len(id) > maxIdentifierLength {
		return New(ErrCodeInvalidInput, "%s identifier too long (max %d characters)", kind, maxIdentifierLength)
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s identifier %q contains whitespace or control characters", kind, id)
		}
	}
	if strings.ContainsAny(id, "%|;,:/\\") {
		return New(ErrCodeInvalidInput, "%s identifier %q contains reserved characters", kind, id)
	}
	return nil
}

// ValidateLabel validates a link label. Labels are written verbatim as
// trailing comments in solver input, so they must fit on one line.
func ValidateLabel(label string) error {
	if label == "" {
		return New(ErrCodeInvalidTopology, "link label cannot be empty")
	}
	for _, r := range label {
		if r == '\n' || r == '\r' || unicode.IsControl(r) {
			return New(ErrCodeInvalidTopology, "link label %q contains control characters", label)
		}
	}
	return nil
}

// ValidatePath validates a relative file path supplied through the API.
// It prevents path traversal and rejects absolute paths.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidInput, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidInput, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidInput, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidInput, "path cannot contain backslashes")
	}

	return nil
}
