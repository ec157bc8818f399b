// Package io reads and writes the input files of the scheduler: mesh
// topologies, application task graphs and task-to-node mappings.
//
// # Formats
//
// Topologies and applications are accepted in three formats, selected by file
// extension (see [FormatFromPath]):
//
//   - GML (.gml), as produced by graph tools such as networkx
//   - YAML (.yaml, .yml)
//   - JSON (.json)
//
// A GML topology lists routers with grid coordinates and directed links:
//
//	graph [
//	  directed 1
//	  node [ id 0 label "0" X 0 Y 0 ]
//	  node [ id 1 label "1" X 1 Y 0 ]
//	  edge [ source 0 target 1 label "0-1" ]
//	  edge [ source 1 target 0 label "1-0" ]
//	]
//
// Node identity follows networkx: a node's label is its ID and the numeric
// GML id is only used to resolve edge endpoints. A GML application uses
// nodes as tasks and edges as flows:
//
//	edge [ source 0 target 1 label "f1" period 10 datasize 64 deadline 5 ]
//
// The YAML and JSON layouts mirror the Go types:
//
//	nodes: [{id: "0", x: 0, y: 0}, ...]
//	links: [{source: "0", target: "1", label: "0-1"}, ...]
//
//	tasks: [cam, dsp]
//	flows: [{name: f1, source: cam, target: dsp, period: 10, datasize: 64, deadline: 5}]
//
// # Mappings
//
// [ReadMapping] accepts either a YAML (or JSON) object of task to node, or
// plain lines of "task node" pairs with '#' comments.
//
// # Errors
//
// Files that cannot be opened yield ErrCodeFileNotFound; malformed content
// yields ErrCodeInvalidInput. Semantic checks (duplicate nodes, invalid
// flows) are left to the noc and traffic constructors and keep their codes.
package io
