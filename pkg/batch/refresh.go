package batch

import (
	"context"
	"sync"
	"time"

	perrors "github.com/matzehuels/titleplot/pkg/errors"
)

// Refresh updates Outdated on every candidate. With onlyChanged, Selected
// is set to Outdated so a following Run plots exactly the changed drawings.
// A drawing that cannot be inspected counts as outdated.
func (o *Orchestrator) Refresh(ctx context.Context, candidates []*Candidate, onlyChanged bool) error {
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return perrors.Wrap(perrors.ErrCodeCanceled, err, "refresh canceled")
		}
		outdated, err := o.Outdated(ctx, c)
		switch {
		case err != nil:
			o.Logger.Warn("cannot check drawing", "drawing", c.Source(), "err", err)
			c.Status = perrors.UserMessage(err)
		case outdated:
			c.Status = "changed"
		default:
			c.Status = "up to date"
		}
		c.Outdated = outdated
		if onlyChanged {
			c.Selected = outdated
		}
		o.progress(c)
	}
	return nil
}

// Outdated reports whether c has no recorded artifacts or any of them is
// stale. The drawing is opened only when a record exists; its fingerprint
// is read at most once and only when a timestamp differs.
func (o *Orchestrator) Outdated(ctx context.Context, c *Candidate) (bool, error) {
	names, err := o.Store.ArtifactsFor(ctx, c.Source())
	if err != nil {
		return true, err
	}
	if len(names) == 0 {
		return true, nil
	}

	doc, err := o.Backend.Open(ctx, c.Path)
	if err != nil {
		return true, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "open %s", c.Source())
	}
	defer doc.Close()

	ts, err := doc.Timestamp()
	if err != nil {
		return true, err
	}
	fp := sync.OnceValues(func() (string, error) {
		v, err := doc.Fingerprint(ctx)
		if err == nil {
			c.Fingerprint = v
		}
		return v, err
	})

	for _, name := range names {
		stale, err := o.Store.IsStale(ctx, name, c.Source(), ts, fp)
		if err != nil {
			return true, err
		}
		if stale {
			o.Logger.Debug("artifact stale", "artifact", name, "modified", ts.Format(time.RFC3339))
			return true, nil
		}
	}
	return false, nil
}
