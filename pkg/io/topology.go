package io

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/noc"
)

// topologyDoc is the YAML/JSON layout of a topology.
type topologyDoc struct {
	Nodes []noc.Node `json:"nodes" yaml:"nodes"`
	Links []linkDoc  `json:"links" yaml:"links"`
}

type linkDoc struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
}

// ReadTopology decodes a topology in the given format.
func ReadTopology(r io.Reader, format Format) (*noc.Topology, error) {
	var doc topologyDoc
	switch format {
	case FormatGML:
		g, err := parseGML(r)
		if err != nil {
			return nil, err
		}
		return topologyFromGML(g)
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode topology")
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode topology")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown format %q", format)
	}

	links := make([]noc.Link, len(doc.Links))
	for i, l := range doc.Links {
		links[i] = noc.Link{Source: l.Source, Target: l.Target, Label: l.Label}
	}
	return noc.New(doc.Nodes, links)
}

// ImportTopology reads the topology file at path, choosing the format by
// extension.
func ImportTopology(path string) (*noc.Topology, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadTopology(f, format)
	if err != nil {
		return nil, annotate(err, path)
	}
	return t, nil
}

func topologyFromGML(g gmlList) (*noc.Topology, error) {
	ids, names, lists, err := gmlNodes(g, "node")
	if err != nil {
		return nil, err
	}
	nodes := make([]noc.Node, len(names))
	for i, l := range lists {
		x, okX, err := l.Int("X")
		if err != nil {
			return nil, err
		}
		y, okY, err := l.Int("Y")
		if err != nil {
			return nil, err
		}
		if !okX || !okY {
			return nil, errors.New(errors.ErrCodeInvalidTopology, "node %s has no X/Y coordinates", names[i])
		}
		nodes[i] = noc.Node{ID: names[i], X: x, Y: y}
	}

	var links []noc.Link
	for _, e := range g.All("edge") {
		if !e.IsList {
			return nil, errors.New(errors.ErrCodeInvalidInput, "edge is not a list")
		}
		src, dst, err := gmlEdgeEnds(e.List, ids)
		if err != nil {
			return nil, err
		}
		label, _ := e.List.String("label")
		links = append(links, noc.Link{Source: src, Target: dst, Label: label})
	}
	return noc.New(nodes, links)
}

// WriteTopology encodes t in the given format.
func WriteTopology(w io.Writer, t *noc.Topology, format Format) error {
	switch format {
	case FormatGML:
		return writeTopologyGML(w, t)
	case FormatYAML, FormatJSON:
		doc := topologyDoc{Nodes: t.Nodes()}
		for _, l := range t.Links() {
			doc.Links = append(doc.Links, linkDoc{Source: l.Source, Target: l.Target, Label: l.Label})
		}
		if format == FormatJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown format %q", format)
	}
}

// writeTopologyGML writes t with numeric ids in node order and the node IDs
// as labels, which [ReadTopology] maps back to the same topology.
func writeTopologyGML(w io.Writer, t *noc.Topology) error {
	g := newGMLWriter(w)
	g.open("graph")
	g.int("directed", 1)
	g.str("routing_algorithm", "XY")

	index := make(map[string]int, t.NodeCount())
	for i, n := range t.Nodes() {
		index[n.ID] = i
		g.open("node")
		g.int("id", i)
		g.str("label", n.ID)
		g.int("X", n.X)
		g.int("Y", n.Y)
		g.close()
	}
	for _, l := range t.Links() {
		g.open("edge")
		g.int("source", index[l.Source])
		g.int("target", index[l.Target])
		g.str("label", l.Label)
		g.close()
	}
	g.close()
	return g.flush()
}
