// Package pkg provides the core libraries of nocsched, a real-time packet
// scheduler for 2D mesh Networks-on-Chip.
//
// # Overview
//
// An application is a set of tasks exchanging periodic flows. Tasks are
// mapped onto routers of a mesh, every flow is routed with deterministic XY
// routing, and each packet of one hyperperiod reserves the links on its path
// for a fixed number of cycles. nocsched turns this into per-link occupancy,
// deadline and release matrices, hands them to a MiniZinc constraint model
// and reads back one conflict-free release time per packet.
//
// # Architecture
//
// The typical data flow:
//
//	topology + application + mapping
//	         ↓
//	    [traffic] package (flows → packets over the hyperperiod)
//	         ↓
//	    [noc/routing] package (XY path per packet)
//	         ↓
//	    [occupancy] package (link × packet matrices)
//	         ↓
//	    [solver] package (.dzn export, MiniZinc, output parsing)
//	         ↓
//	    [schedule] package (release times, CSV/JSON, simulator inputs)
//
// [pipeline] runs these stages with caching and logging and is shared by the
// CLI and the HTTP API.
//
// # Quick Start
//
//	topo, _ := noc.NewMesh(3, 3)
//	app, _ := nocio.ImportApplication("app.gml")
//	mapping, _ := nocio.ImportMapping("mapping.txt")
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Input{
//	    Topology:    topo,
//	    Application: app,
//	    Mapping:     mapping,
//	}, pipeline.Options{Solver: solver.NewMiniZinc("CM.mzn")})
//	if err != nil {
//	    return err
//	}
//	result.Schedule.WriteCSV(os.Stdout)
//
// # Main Packages
//
// ## Domain
//
// [noc] - Mesh topologies: routers with grid coordinates and directed links.
// Connectivity checks run on a gonum graph.
//
// [noc/routing] - Dimension-ordered XY routing and all-pairs route tables.
//
// [traffic] - Flows, hyperperiod computation, packet expansion and
// task-to-router mappings.
//
// [occupancy] - Link enumeration including the terminal ingress and egress
// links, timing parameters and the occupancy model.
//
// [solver] - MiniZinc data files, the minizinc runner and solver output
// parsing.
//
// [schedule] - Pairs packets with release times, checks timing windows and
// writes schedules and per-router simulator inputs.
//
// ## Input and Output
//
// [io] - GML, YAML and JSON readers and writers for topologies and
// applications, and mapping files.
//
// [render] - Graphviz rendering of topologies with highlighted routes.
//
// ## Infrastructure
//
// [pipeline] - The staged scheduling pipeline used by CLI and API.
//
// [cache] - File, Redis and null caches for models, solver outputs and
// renders.
//
// [store] - Archive of scheduling runs in memory, on disk or in MongoDB.
//
// [config] - The TOML configuration file.
//
// [errors] - Error codes shared by all packages.
//
// [observability] - Hooks for pipeline stages, cache accesses and HTTP
// requests.
//
// # Testing
//
//	go test ./...              # All tests
//	go test ./pkg/occupancy    # Specific package
//	go test -run Example ./... # Examples only
//
// [noc]: https://pkg.go.dev/github.com/matzehuels/nocsched/pkg/noc
// [noc/routing]: https://pkg.go.dev/github.com/matzehuels/nocsched/pkg/noc/routing
// [traffic]: https://pkg.go.dev/github.com/matzehuels/nocsched/pkg/traffic
// [occupancy]: https://pkg.go.dev/github.com/matzehuels/nocsched/pkg/occupancy
// [solver]: https://pkg.go.dev/github.com/matzehuels/nocsched/pkg/solver
// [schedule]: https://pkg.go.dev/github.com/matzehuels/nocsched/pkg/schedule
// [io]: https://pkg.go.dev/github.com/matzehuels/nocsched/pkg/io
// [render]: https://pkg.go.dev/github.com/matzehuels/nocsched/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/nocsched/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/nocsched/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/nocsched/pkg/store
// [config]: https://pkg.go.dev/github.com/matzehuels/nocsched/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/nocsched/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/nocsched/pkg/observability
package pkg
