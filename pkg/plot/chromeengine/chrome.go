// Package chromeengine prints SVG pages to PDF with a headless Chrome.
//
// The printer either launches a local browser or attaches to a running one
// through its DevTools URL. Each page is loaded into a fresh browser
// context as an inline document and printed with zero margins on the exact
// paper size, so one SVG becomes one PDF page.
package chromeengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/matzehuels/titleplot/pkg/drawing/jsondoc"
	perrors "github.com/matzehuels/titleplot/pkg/errors"
)

const (
	DefaultTimeout = 30 * time.Second
	mmPerInch      = 25.4
)

// Config configures the printer.
type Config struct {
	// Timeout bounds one page. Zero means DefaultTimeout.
	Timeout time.Duration
	// RemoteURL is the DevTools websocket URL of a running browser. Empty
	// launches a local headless Chrome.
	RemoteURL string
	// NoSandbox runs Chrome without its sandbox, needed as root in
	// containers.
	NoSandbox bool
	// ExecPath overrides the Chrome binary.
	ExecPath string
}

// Printer renders SVG pages through Chrome. It is safe for concurrent use.
type Printer struct {
	cfg         Config
	logger      *log.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// New creates a printer. The browser is started lazily by the first page.
func New(cfg Config, logger *log.Logger) *Printer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	p := &Printer{cfg: cfg, logger: logger.WithPrefix("chrome")}
	if cfg.RemoteURL != "" {
		p.allocCtx, p.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		p.allocCtx, p.allocCancel = chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	}
	return p
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// Close shuts the browser down, or detaches from a remote one.
func (p *Printer) Close() error {
	p.allocCancel()
	return nil
}

// Print renders svg on a page of the given size and returns the PDF.
func (p *Printer) Print(ctx context.Context, svg []byte, spec jsondoc.PageSpec) ([]byte, error) {
	args, err := newParams(spec)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	// The browser context hangs off the allocator; ctx only bounds the run.
	tabCtx, tabCancel := chromedp.NewContext(p.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			p.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	html := document(svg, spec)
	var pdf []byte
	err = chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := args.action().Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, perrors.Wrap(perrors.ErrCodeTimeout, err, "print timed out after %s", p.cfg.Timeout)
		}
		if ctx.Err() != nil {
			return nil, perrors.Wrap(perrors.ErrCodeCanceled, err, "print canceled")
		}
		return nil, perrors.Wrap(perrors.ErrCodePlotFailed, err, "chrome print failed")
	}
	if len(pdf) == 0 {
		return nil, perrors.New(perrors.ErrCodePlotFailed, "chrome returned an empty PDF")
	}

	p.logger.Debug("page printed", "media", spec.Media, "bytes", len(pdf), "duration", time.Since(start).Round(time.Millisecond))
	return pdf, nil
}

// params holds the PrintToPDF arguments. Chrome takes inches.
type params struct {
	width, height float64
}

func newParams(spec jsondoc.PageSpec) (params, error) {
	if !(spec.Width > 0) || !(spec.Height > 0) {
		return params{}, perrors.New(perrors.ErrCodeInvalidInput, "invalid paper size %gx%g mm", spec.Width, spec.Height)
	}
	return params{width: spec.Width / mmPerInch, height: spec.Height / mmPerInch}, nil
}

// action builds the print command. Width and height already carry the
// orientation, so landscape stays off.
func (p params) action() *page.PrintToPDFParams {
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(p.width).
		WithPaperHeight(p.height).
		WithMarginTop(0).
		WithMarginRight(0).
		WithMarginBottom(0).
		WithMarginLeft(0).
		WithScale(1).
		WithLandscape(false).
		WithPreferCSSPageSize(false)
}

// document wraps svg in a page that fills the paper exactly.
func document(svg []byte, spec jsondoc.PageSpec) string {
	body := svg
	if i := bytes.Index(body, []byte("?>")); bytes.HasPrefix(body, []byte("<?xml")) && i >= 0 {
		body = bytes.TrimSpace(body[i+2:])
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<!DOCTYPE html><html><head><style>@page{size:%.2fmm %.2fmm;margin:0}", spec.Width, spec.Height)
	b.WriteString("html,body{margin:0;padding:0}svg{display:block}</style></head><body>")
	b.Write(body)
	b.WriteString("</body></html>")
	return b.String()
}

var _ jsondoc.Printer = (*Printer)(nil)
