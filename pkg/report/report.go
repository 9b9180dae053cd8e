// Package report persists batch summaries.
//
// A Sink receives every finished Summary. The file sink keeps one JSON
// document per run next to the artifacts; the Mongo sink inserts the same
// document into a collection so runs from several machines can be queried
// together. Both also implement Archive, which the status server reads.
package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/titleplot/pkg/batch"
	perrors "github.com/matzehuels/titleplot/pkg/errors"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Sink stores finished batch summaries.
type Sink interface {
	Write(ctx context.Context, s *batch.Summary) error
	Close(ctx context.Context) error
}

// Archive lists and loads stored runs.
type Archive interface {
	List(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, runID string) (*batch.Summary, error)
}

// Entry is the listing view of a run.
type Entry struct {
	RunID     string    `json:"run_id" bson:"_id"`
	Started   time.Time `json:"started" bson:"started"`
	Finished  time.Time `json:"finished" bson:"finished"`
	Processed int       `json:"processed" bson:"processed"`
	Pages     int       `json:"pages" bson:"pages"`
	Failed    int       `json:"failed" bson:"failed"`
	Canceled  bool      `json:"canceled" bson:"canceled"`
}

// EntryOf returns the listing view of s.
func EntryOf(s *batch.Summary) Entry {
	return Entry{
		RunID:     s.RunID,
		Started:   s.Started,
		Finished:  s.Finished,
		Processed: s.Processed,
		Pages:     s.Pages,
		Failed:    s.Failed(),
		Canceled:  s.Canceled,
	}
}

// NopSink discards summaries.
type NopSink struct{}

func (NopSink) Write(context.Context, *batch.Summary) error { return nil }
func (NopSink) Close(context.Context) error                 { return nil }

// validateRunID rejects ids that are not UUIDs, which also keeps them safe
// to use as file names.
func validateRunID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "invalid run id %q", id)
	}
	return nil
}
