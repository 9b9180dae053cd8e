// Package pkg provides the core libraries of titleplot, a batch plotter that
// finds title blocks in CAD drawings and prints each one as its own page.
//
// # Overview
//
// A batch run walks a list of drawings. For each drawing it finds the block
// references whose names match the configured title blocks, sorts them into a
// reading order, plots every region to a PDF artifact and remembers which
// drawing state produced it. The pkg directory is organized into four areas:
//
//  1. Host model - [drawing], [drawing/jsondoc], [geom]
//  2. Layout - [region], [pagesetup], [plotconfig]
//  3. Plotting - [plot], [batch], [merge]
//  4. Infrastructure - [fingerprint], [report], [settings], [fslock], [poll],
//     [retry], [observability], [errors], [buildinfo]
//
// # Architecture
//
// The data flow of one drawing:
//
//	drawing document
//	         ↓
//	    [region] package (scan title blocks + sort)
//	         ↓
//	    [pagesetup] package (media, scale, offset per region)
//	         ↓
//	    [plot] package (engine lifecycle, artifact wait)
//	         ↓
//	    [fingerprint] package (record source revision)
//	         ↓
//	PDF artifacts, merged PDF, run report
//
// # Quick Start
//
// Plot a directory of drawings:
//
//	cfg := plotconfig.Defaults()
//	cfg.BlockNames = "A3_TITLE"
//	store := fingerprint.NewStore(outDir, fingerprint.NewFileBackend(nil), nil)
//	orch := batch.NewOrchestrator(backend, store, plot.Options{}, nil)
//	sum, _ := orch.Run(ctx, batch.NewCandidates(paths...), cfg)
//
// # Main Packages
//
// [drawing] - The capabilities titleplot needs from a CAD host: open
// documents, layouts, block references, plot settings and a plot engine.
// [drawing/jsondoc] implements them for drawings exported as JSON.
//
// [region] - Title block scanning, grouping tolerance and the horizontal or
// vertical reading order of the regions in a layout.
//
// [plot] - Drives one plot through begin, page and end calls and waits for
// the artifact. [plot/chromeengine] prints pages with headless Chrome.
//
// [batch] - The orchestrator that plots many drawings, reports progress and
// builds a run summary.
//
// [fingerprint] - Artifact records with file, memory and Redis backends.
//
// [report] - Run summaries written to disk or MongoDB.
//
// [drawing]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/drawing
// [drawing/jsondoc]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/drawing/jsondoc
// [geom]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/geom
// [region]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/region
// [pagesetup]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/pagesetup
// [plotconfig]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/plotconfig
// [plot]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/plot
// [plot/chromeengine]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/plot/chromeengine
// [batch]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/batch
// [merge]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/merge
// [fingerprint]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/fingerprint
// [report]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/report
// [settings]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/settings
// [fslock]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/fslock
// [poll]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/poll
// [retry]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/retry
// [observability]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/titleplot/pkg/buildinfo
package pkg
