// Package buildinfo carries the version stamped into the titleplot binary.
//
// Release builds set the variables with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/titleplot/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/titleplot/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/titleplot/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/titleplot
package buildinfo

import "fmt"

var (
	// Version is the release tag of the binary (e.g., "v0.3.0").
	// Set via ldflags: -X github.com/matzehuels/titleplot/pkg/buildinfo.Version=...
	Version = "dev"

	// Commit is the short git commit the binary was built from.
	// Set via ldflags: -X github.com/matzehuels/titleplot/pkg/buildinfo.Commit=...
	Commit = "none"

	// Date is the UTC build timestamp.
	// Set via ldflags: -X github.com/matzehuels/titleplot/pkg/buildinfo.Date=...
	Date = "unknown"
)

// String returns the build information on three lines, as printed by
// diagnostics and the status server.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template returns the version template for the root cobra command. The
// output starts with the binary name so scripts can match on it.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
