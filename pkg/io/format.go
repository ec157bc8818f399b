package io

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/nocsched/pkg/errors"
)

// Format is an input file format.
type Format string

const (
	FormatGML  Format = "gml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath returns the format implied by the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gml":
		return FormatGML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidInput, "unsupported file type %q (use .gml, .yaml, .yml or .json)", filepath.Ext(path))
	}
}

// ParseFormat validates a format name such as "gml" or "yml".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "gml":
		return FormatGML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidInput, "unknown format %q", name)
	}
}

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	return f, nil
}

// annotate prefixes err with the file it came from, keeping its code.
func annotate(err error, path string) error {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInvalidInput
	}
	return errors.Wrap(code, err, "%s", path)
}
