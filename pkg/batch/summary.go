package batch

import (
	"time"
)

// PageResult is the outcome of one attempted page.
type PageResult struct {
	Artifact string        `json:"artifact"`
	Block    string        `json:"block"`
	Handle   string        `json:"handle"`
	Media    string        `json:"media,omitempty"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Duration time.Duration `json:"duration"`
}

// FileResult is the outcome of one drawing.
type FileResult struct {
	Path      string        `json:"path"`
	Outcome   Outcome       `json:"outcome"`
	Regions   int           `json:"regions"`
	Pages     int           `json:"pages"`
	Artifacts []string      `json:"artifacts,omitempty"`
	Message   string        `json:"message"`
	Code      string        `json:"code,omitempty"`
	PageList  []PageResult  `json:"page_results,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Success reports whether every page of the drawing was plotted.
func (r FileResult) Success() bool { return r.Outcome == Succeeded }

// Summary is the report of one batch run.
type Summary struct {
	RunID     string       `json:"run_id"`
	OutDir    string       `json:"out_dir"`
	Started   time.Time    `json:"started"`
	Finished  time.Time    `json:"finished"`
	Processed int          `json:"processed"`
	Pages     int          `json:"pages"`
	Canceled  bool         `json:"canceled"`
	Results   []FileResult `json:"results"`
}

// Failed returns the number of drawings that did not fully succeed.
func (s *Summary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if !r.Success() {
			n++
		}
	}
	return n
}

// Duration returns the wall time of the run.
func (s *Summary) Duration() time.Duration { return s.Finished.Sub(s.Started) }
