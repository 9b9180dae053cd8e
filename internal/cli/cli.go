// Package cli implements the titleplot command-line interface.
//
// The CLI plots title blocks of drawings into PDF pages, remembers which
// drawing state produced each page, and offers tools to inspect the title
// blocks and the print order. It is built using cobra and logs through
// charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - plot: Plot every title block of the given drawings
//   - scan: List the title blocks found in a drawing, in print order
//   - order: Render the print order as DOT or SVG
//   - status: Show recorded artifacts and which drawings changed
//   - merge: Combine plotted pages into one PDF
//   - cache, config: Manage the fingerprint records and remembered options
//   - serve: Expose records and run reports over HTTP
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context so library packages log with the same
// settings.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/titleplot/pkg/buildinfo"
	"github.com/matzehuels/titleplot/pkg/drawing/jsondoc"
	perrors "github.com/matzehuels/titleplot/pkg/errors"
	"github.com/matzehuels/titleplot/pkg/fingerprint"
	"github.com/matzehuels/titleplot/pkg/plot/chromeengine"
	"github.com/matzehuels/titleplot/pkg/report"
	"github.com/matzehuels/titleplot/pkg/retry"
	"github.com/matzehuels/titleplot/pkg/settings"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "titleplot"

	// drawingExt is the extension of drawings picked up from directories.
	drawingExt = ".json"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// settingsFile is the --settings flag; empty searches the defaults.
	settingsFile string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Titleplot prints every title block of a drawing set to PDF",
		Long: `Titleplot is a batch plotter. It finds the title blocks in the active layout
of each drawing, orders them into a reading sequence and prints one PDF page
per block. Fingerprints of the printed drawings let later runs reprint only
what changed.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.settingsFile, "settings", "", "settings file (default: ./titleplot.toml or ~/.config/titleplot/titleplot.toml)")

	// Register all subcommands
	root.AddCommand(c.plotCommand())
	root.AddCommand(c.scanCommand())
	root.AddCommand(c.orderCommand())
	root.AddCommand(c.statusCommand())
	root.AddCommand(c.mergeCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runtime Factory
// =============================================================================

// runtime is what a command needs to talk to drawings, the fingerprint
// stores and the report sink. Close releases every connection it opened.
type runtime struct {
	settings *settings.Settings
	stores   *fingerprint.Registry
	backend  *jsondoc.Backend
	engine   *jsondoc.Engine
	closers  []func() error
}

// runtimeOptions selects the optional parts of a runtime.
type runtimeOptions struct {
	// printer starts a Chrome printer; without it the engine refuses jobs.
	printer bool
}

// newRuntime loads settings and connects the configured backends.
// Redis is retried since it may still be starting when a batch begins.
func (c *CLI) newRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	s, err := settings.Load(c.settingsFile)
	if err != nil {
		return nil, err
	}
	if s.File != "" {
		c.Logger.Debug("settings loaded", "file", s.File)
	}
	rt := &runtime{settings: s}

	fpBackend, err := c.newFingerprintBackend(ctx, s, rt)
	if err != nil {
		return nil, err
	}
	rt.stores = fingerprint.NewRegistry(fpBackend, c.Logger)

	var printer jsondoc.Printer
	if opts.printer {
		p := chromeengine.New(s.ChromeConfig(), c.Logger)
		rt.closers = append(rt.closers, p.Close)
		printer = p
	}
	rt.engine = jsondoc.NewEngine(printer, c.Logger)
	rt.engine.Async = s.Plot.Async
	rt.backend = jsondoc.NewBackend(newCatalog(s), rt.engine, c.Logger)
	return rt, nil
}

func (c *CLI) newFingerprintBackend(ctx context.Context, s *settings.Settings, rt *runtime) (fingerprint.Backend, error) {
	switch s.Cache.Backend {
	case settings.CacheMemory:
		return fingerprint.NewMemoryBackend(), nil
	case settings.CacheRedis:
		var rb *fingerprint.RedisBackend
		err := retry.WithBackoff(ctx, func(ctx context.Context) error {
			b, err := fingerprint.NewRedisBackend(ctx, s.Cache.Redis, c.Logger)
			if err != nil {
				c.Logger.Debug("redis not ready", "addr", s.Cache.Redis.Addr, "err", err)
				return retry.Transient(err)
			}
			rb = b
			return nil
		})
		if err != nil {
			return nil, perrors.Wrap(perrors.ErrCodeStorage, err, "connect fingerprint cache")
		}
		rt.closers = append(rt.closers, rb.Close)
		return rb, nil
	default:
		return fingerprint.NewFileBackend(c.Logger), nil
	}
}

// newSink returns the configured report sink for runs written to outDir.
func (c *CLI) newSink(ctx context.Context, s *settings.Settings, outDir string) (report.Sink, error) {
	switch s.Report.Sink {
	case settings.SinkNone:
		return report.NopSink{}, nil
	case settings.SinkMongo:
		var sink *report.MongoSink
		err := retry.WithBackoff(ctx, func(ctx context.Context) error {
			m, err := report.NewMongoSink(ctx, s.Report.Mongo)
			if err != nil {
				c.Logger.Debug("mongodb not ready", "err", err)
				return retry.Transient(err)
			}
			sink = m
			return nil
		})
		if err != nil {
			return nil, perrors.Wrap(perrors.ErrCodeStorage, err, "connect report sink")
		}
		return sink, nil
	default:
		return report.NewFileSink(outDir), nil
	}
}

// Close releases the runtime's connections, waiting for pending artifact
// writes first.
func (rt *runtime) Close() error {
	rt.engine.Wait()
	var errs []error
	for _, fn := range slices.Backward(rt.closers) {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}

// newCatalog returns the default catalog with the media and style sheets
// from the settings added to the PDF device.
func newCatalog(s *settings.Settings) *jsondoc.Catalog {
	cat := jsondoc.DefaultCatalog()
	if len(s.Catalog.Media) > 0 {
		media, _ := cat.Media(context.Background(), jsondoc.DefaultDevice)
		cat.AddDevice(jsondoc.DefaultDevice, append(media, s.Catalog.Media...)...)
	}
	for _, name := range s.Catalog.StyleSheets {
		cat.AddStyleSheet(name)
	}
	return cat
}

// =============================================================================
// Paths
// =============================================================================

// collectDrawings expands args into drawing paths. Directories contribute
// their *.json files in name order; files are taken as given. Duplicates
// are dropped and the order of first appearance is kept.
func collectDrawings(args []string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	add := func(p string) {
		key, err := filepath.Abs(p)
		if err != nil {
			key = p
		}
		if !seen[key] {
			seen[key] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "drawing %s", arg)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), drawingExt) {
				continue
			}
			add(filepath.Join(arg, name))
		}
	}
	if len(out) == 0 {
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "no drawings found in %s", strings.Join(args, ", "))
	}
	return out, nil
}

// basename returns the file name of path without its extension.
func basename(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
