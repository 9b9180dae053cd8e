package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/titleplot/pkg/drawing"
	perrors "github.com/matzehuels/titleplot/pkg/errors"
	"github.com/matzehuels/titleplot/pkg/fingerprint"
	"github.com/matzehuels/titleplot/pkg/observability"
	"github.com/matzehuels/titleplot/pkg/pagesetup"
	"github.com/matzehuels/titleplot/pkg/plot"
	"github.com/matzehuels/titleplot/pkg/plotconfig"
	"github.com/matzehuels/titleplot/pkg/region"
)

// Orchestrator runs batches against one output directory. The output
// directory is the directory of its fingerprint store.
type Orchestrator struct {
	Backend drawing.Backend
	Store   *fingerprint.Store
	Scanner *region.Scanner
	Builder *pagesetup.Builder
	Driver  *plot.Driver
	Logger  *log.Logger

	// OnProgress, when set, is called after each candidate changes.
	OnProgress func(c *Candidate)
}

// NewOrchestrator wires an orchestrator with default scanner, builder and
// a driver using opts. A nil logger uses log.Default().
func NewOrchestrator(backend drawing.Backend, store *fingerprint.Store, opts plot.Options, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		Backend: backend,
		Store:   store,
		Scanner: region.NewScanner(logger),
		Builder: pagesetup.NewBuilder(logger),
		Driver:  plot.NewDriver(opts, logger),
		Logger:  logger,
	}
}

// OutDir returns the artifact directory.
func (o *Orchestrator) OutDir() string { return o.Store.Dir() }

// Run plots every selected candidate in order. It returns an error only
// when cfg is invalid; all drawing and page failures are reported in the
// Summary and on the candidates. Cancellation is checked before each
// drawing; a drawing in progress always completes.
func (o *Orchestrator) Run(ctx context.Context, candidates []*Candidate, cfg plotconfig.Config) (*Summary, error) {
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	names := cfg.Names()

	sum := &Summary{
		RunID:   uuid.NewString(),
		OutDir:  o.OutDir(),
		Started: time.Now(),
	}
	o.Logger.Info("batch started",
		"run", sum.RunID,
		"drawings", len(Selected(candidates)),
		"out", sum.OutDir,
		"blocks", names)

	for _, c := range candidates {
		if !c.Selected {
			continue
		}
		if ctx.Err() != nil {
			sum.Canceled = true
			c.Status = "canceled"
			o.progress(c)
			continue
		}

		c.Outcome = Pending
		c.Status = "plotting"
		o.progress(c)

		res := o.plotDrawing(context.WithoutCancel(ctx), c, cfg, names)
		sum.Results = append(sum.Results, res)
		sum.Processed++
		sum.Pages += res.Pages

		c.Outcome = res.Outcome
		c.Status = res.Message
		if res.Success() {
			c.Outdated = false
		}
		o.progress(c)
	}

	sum.Canceled = ctx.Err() != nil
	sum.Finished = time.Now()
	o.Logger.Info("batch finished",
		"run", sum.RunID,
		"processed", sum.Processed,
		"pages", sum.Pages,
		"failed", sum.Failed(),
		"canceled", sum.Canceled,
		"duration", sum.Duration().Round(time.Millisecond))
	return sum, nil
}

func (o *Orchestrator) progress(c *Candidate) {
	if o.OnProgress != nil {
		o.OnProgress(c)
	}
}

// plotDrawing handles one drawing. It never panics on backend errors; the
// plot driver recovers lifecycle panics itself.
func (o *Orchestrator) plotDrawing(ctx context.Context, c *Candidate, cfg plotconfig.Config, names []string) (res FileResult) {
	start := time.Now()
	hooks := observability.Batch()
	hooks.OnDrawingStart(ctx, c.Path)
	logger := o.Logger.With("drawing", c.Source())

	res = FileResult{Path: c.Path, Outcome: Failed}
	var runErr error
	defer func() {
		res.Duration = time.Since(start)
		if runErr != nil {
			res.Message = perrors.UserMessage(runErr)
			res.Code = string(perrors.GetCode(runErr))
			logger.Error("drawing failed", "err", runErr)
		}
		hooks.OnDrawingComplete(ctx, c.Path, res.Pages, res.Duration, runErr)
	}()

	doc, err := o.Backend.Open(ctx, c.Path)
	if err != nil {
		code := perrors.ErrCodeLayout
		if errors.Is(err, os.ErrNotExist) {
			code = perrors.ErrCodeFileNotFound
		}
		runErr = perrors.Wrap(code, err, "open %s", c.Source())
		return res
	}
	defer func() {
		if err := doc.Close(); err != nil {
			logger.Warn("close drawing", "err", err)
		}
	}()

	release, err := doc.Lock(ctx)
	if err != nil {
		runErr = perrors.Wrap(perrors.ErrCodeLockFailed, err, "lock %s", c.Source())
		return res
	}
	defer func() {
		if err := release(); err != nil {
			logger.Warn("release drawing lock", "err", err)
		}
	}()

	fp, err := doc.Fingerprint(ctx)
	if err != nil {
		logger.Warn("fingerprint unavailable", "err", err)
	}
	c.Fingerprint = fp
	ts, err := doc.Timestamp()
	if err != nil {
		logger.Warn("timestamp unavailable", "err", err)
	}

	scan, err := o.Scanner.Scan(ctx, doc, names)
	if err != nil {
		runErr = err
		return res
	}
	if len(scan.Regions) == 0 {
		runErr = perrors.New(perrors.ErrCodeNoRegions, "no title blocks named %v in %s", names, scan.Space)
		return res
	}
	regions := region.Sort(scan.Regions, cfg.Order, cfg.GroupTolerance)
	res.Regions = len(regions)
	logger.Info("title blocks found",
		"space", scan.Space,
		"model", scan.Model,
		"regions", len(regions),
		"skipped", scan.Skipped)

	engine := doc.Engine()
	var (
		produced []string
		failures []string
		aborted  bool
	)
	for i, r := range regions {
		name := ArtifactName(c.Basename(), i+1)
		pr := o.plotPage(ctx, doc, engine, scan.Space, r, cfg, name)
		res.PageList = append(res.PageList, pr.page)
		hooks.OnPageComplete(ctx, name, pr.page.Status, pr.page.Duration)

		if pr.ok {
			if err := o.Store.Put(ctx, name, c.Source(), fp, ts); err != nil {
				logger.Warn("record artifact", "artifact", name, "err", err)
			}
			produced = append(produced, name)
			continue
		}

		failures = append(failures, fmt.Sprintf("%s: %s", name, pr.page.Error))
		if pr.plotted {
			// The driver removed the previous artifact before plotting.
			o.forget(ctx, logger, name)
		}
		if pr.abort {
			aborted = true
			runErr = perrors.Wrap(perrors.GetCode(pr.err), pr.err,
				"%s aborted after %d of %d page(s)", name, len(produced), len(regions))
			break
		}
	}

	if !aborted {
		o.forgetOthers(ctx, logger, c.Source(), produced)
	}

	res.Pages = len(produced)
	res.Artifacts = produced
	switch {
	case aborted:
		// runErr set; Message comes from it.
	case len(failures) == 0:
		res.Outcome = Succeeded
		res.Message = fmt.Sprintf("%d page(s) plotted", res.Pages)
	default:
		res.Message = fmt.Sprintf("%d of %d page(s) plotted; %s", res.Pages, len(regions), failures[0])
		if len(failures) > 1 {
			res.Message += fmt.Sprintf(" (+%d more)", len(failures)-1)
		}
	}
	logger.Info("drawing done",
		"pages", res.Pages,
		"regions", len(regions),
		"outcome", res.Outcome,
		"duration", time.Since(start).Round(time.Millisecond))
	return res
}

type pageOutcome struct {
	page    PageResult
	ok      bool
	plotted bool // the driver was invoked
	abort   bool
	err     error
}

func (o *Orchestrator) plotPage(ctx context.Context, doc drawing.Document, engine drawing.Engine, layout string, r region.Region, cfg plotconfig.Config, name string) pageOutcome {
	out := pageOutcome{page: PageResult{Artifact: name, Block: r.Name, Handle: r.Handle}}

	page, err := o.Builder.Build(ctx, doc, layout, r, cfg)
	if err != nil {
		out.page.Status = plot.Failed.String()
		out.page.Error = perrors.UserMessage(err)
		out.err = err
		return out
	}
	out.page.Media = page.Media.Label
	for _, w := range page.Warnings {
		out.page.Warnings = append(out.page.Warnings, w.Error())
	}

	res := o.Driver.PlotPage(ctx, engine, page, filepath.Join(o.OutDir(), name))
	out.plotted = res.Status != plot.Skipped
	out.page.Status = res.Status.String()
	out.page.Duration = res.Duration
	if res.Err != nil {
		out.page.Error = perrors.UserMessage(res.Err)
		out.err = res.Err
	}
	out.ok = res.OK()
	out.abort = res.AbortsDrawing()
	return out
}

func (o *Orchestrator) forget(ctx context.Context, logger *log.Logger, name string) {
	if err := o.Store.Delete(ctx, name); err != nil {
		logger.Warn("delete record", "artifact", name, "err", err)
	}
}

// forgetOthers deletes records of source that this run did not produce,
// for example after a title block was removed from the drawing.
func (o *Orchestrator) forgetOthers(ctx context.Context, logger *log.Logger, source string, produced []string) {
	names, err := o.Store.ArtifactsFor(ctx, source)
	if err != nil {
		logger.Warn("list records", "err", err)
		return
	}
	for _, name := range names {
		if !slices.Contains(produced, name) {
			logger.Debug("dropping record of vanished page", "artifact", name)
			o.forget(ctx, logger, name)
		}
	}
}
