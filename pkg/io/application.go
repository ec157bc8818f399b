package io

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/traffic"
)

// ReadApplication decodes an application in the given format and validates
// its flows.
func ReadApplication(r io.Reader, format Format) (*traffic.Application, error) {
	var app traffic.Application
	switch format {
	case FormatGML:
		g, err := parseGML(r)
		if err != nil {
			return nil, err
		}
		a, err := applicationFromGML(g)
		if err != nil {
			return nil, err
		}
		app = *a
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&app); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode application")
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&app); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode application")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown format %q", format)
	}
	if err := app.Validate(); err != nil {
		return nil, err
	}
	return &app, nil
}

// ImportApplication reads the application file at path, choosing the format
// by extension.
func ImportApplication(path string) (*traffic.Application, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	app, err := ReadApplication(f, format)
	if err != nil {
		return nil, annotate(err, path)
	}
	return app, nil
}

func applicationFromGML(g gmlList) (*traffic.Application, error) {
	ids, tasks, _, err := gmlNodes(g, "task")
	if err != nil {
		return nil, err
	}
	app := &traffic.Application{Tasks: tasks}
	for i, e := range g.All("edge") {
		if !e.IsList {
			return nil, errors.New(errors.ErrCodeInvalidInput, "edge %d is not a list", i)
		}
		src, dst, err := gmlEdgeEnds(e.List, ids)
		if err != nil {
			return nil, err
		}
		f := traffic.Flow{Source: src, Target: dst}
		if f.Name, _ = e.List.String("label"); f.Name == "" {
			return nil, errors.New(errors.ErrCodeInvalidFlow, "edge %s->%s has no label", src, dst)
		}
		fields := []struct {
			key string
			ptr *int
		}{{"period", &f.Period}, {"datasize", &f.DataSize}, {"deadline", &f.Deadline}}
		for _, fd := range fields {
			v, ok, err := e.List.Int(fd.key)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFlow, err, "flow %s", f.Name)
			}
			if !ok {
				return nil, errors.New(errors.ErrCodeInvalidFlow, "flow %s has no %s", f.Name, fd.key)
			}
			*fd.ptr = v
		}
		app.Flows = append(app.Flows, f)
	}
	return app, nil
}

// WriteApplication encodes app in the given format.
func WriteApplication(w io.Writer, app *traffic.Application, format Format) error {
	switch format {
	case FormatGML:
		return writeApplicationGML(w, app)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(app)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(app); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown format %q", format)
	}
}

func writeApplicationGML(w io.Writer, app *traffic.Application) error {
	tasks := app.Tasks
	if len(tasks) == 0 {
		seen := make(map[string]bool)
		for _, f := range app.Flows {
			for _, t := range []string{f.Source, f.Target} {
				if !seen[t] {
					seen[t] = true
					tasks = append(tasks, t)
				}
			}
		}
	}

	g := newGMLWriter(w)
	g.open("graph")
	g.int("directed", 1)
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		index[t] = i
		g.open("node")
		g.int("id", i)
		g.str("label", t)
		g.close()
	}
	for _, f := range app.Flows {
		g.open("edge")
		g.int("source", index[f.Source])
		g.int("target", index[f.Target])
		g.str("label", f.Name)
		g.int("period", f.Period)
		g.int("datasize", f.DataSize)
		g.int("deadline", f.Deadline)
		g.close()
	}
	g.close()
	return g.flush()
}
