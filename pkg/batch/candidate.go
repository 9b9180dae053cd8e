// Package batch plots title blocks for a list of drawings.
//
// The Orchestrator processes candidates strictly one after another. For
// each selected drawing it opens the document, holds its exclusive lock for
// the whole drawing, scans and sorts the title blocks, configures and plots
// one page per block and records every produced artifact in the
// fingerprint store of the output directory.
//
// No per-drawing failure stops the batch. Every drawing ends with a
// FileResult and every attempted page with a PageResult; Run returns the
// complete Summary even when the context is cancelled between drawings.
package batch

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Outcome is the tri-state result of a candidate.
type Outcome int

const (
	// Pending means the candidate was not processed in this run.
	Pending Outcome = iota
	// Succeeded means every page of the drawing was plotted.
	Succeeded
	// Failed means the drawing or at least one page failed.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "succeeded":
		*o = Succeeded
	case "failed":
		*o = Failed
	case "pending", "":
		*o = Pending
	default:
		return fmt.Errorf("unknown outcome %q", b)
	}
	return nil
}

// Candidate is one drawing entry of a batch. The orchestrator updates it
// in place as work proceeds, so a UI holding the same pointers can render
// progress.
type Candidate struct {
	Path        string
	Selected    bool
	Outdated    bool
	Fingerprint string
	Status      string
	Outcome     Outcome
}

// NewCandidates returns selected candidates for paths, in order.
func NewCandidates(paths ...string) []*Candidate {
	out := make([]*Candidate, len(paths))
	for i, p := range paths {
		out[i] = &Candidate{Path: p, Selected: true}
	}
	return out
}

// Source is the file name recorded as the artifact source.
func (c *Candidate) Source() string { return filepath.Base(c.Path) }

// Basename is the file name without extension, the artifact name prefix.
func (c *Candidate) Basename() string {
	name := c.Source()
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Selected returns the selected candidates.
func Selected(cs []*Candidate) []*Candidate {
	var out []*Candidate
	for _, c := range cs {
		if c.Selected {
			out = append(out, c)
		}
	}
	return out
}

// ArtifactName returns the artifact file name of page n (1-based).
func ArtifactName(basename string, n int) string {
	return fmt.Sprintf("%s_%02d.pdf", basename, n)
}
