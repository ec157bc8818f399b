// Package render draws mesh topologies.
//
// # Overview
//
// [ToDOT] turns a noc.Topology into Graphviz DOT source with every router
// pinned at its grid coordinates, so the picture keeps the mesh shape
// regardless of layout heuristics. A routed path can be highlighted:
//
//	path, _ := routing.XY(topo, "6", "2")
//	dot := render.ToDOT(topo, render.Options{Highlight: path})
//	svg, err := render.RenderSVG(ctx, dot)
//
// # Formats
//
//   - [RenderSVG] and [RenderPNG] render in-process with go-graphviz
//   - [ToPDF] converts SVG through the external rsvg-convert tool
//
// [Render] dispatches on a [Format] name and also accepts "dot", which
// returns the source unchanged.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz], a WebAssembly build of
// Graphviz, so no system installation is required for SVG and PNG.
package render
