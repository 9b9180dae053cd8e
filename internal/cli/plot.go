package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/titleplot/pkg/batch"
	perrors "github.com/matzehuels/titleplot/pkg/errors"
	"github.com/matzehuels/titleplot/pkg/plotconfig"
	"github.com/matzehuels/titleplot/pkg/region"
)

// plotFlags holds the flags of the plot command. cfg receives the print
// configuration flags; only the ones set on the command line override the
// last used configuration.
type plotFlags struct {
	cfg         plotconfig.Config
	order       string
	out         string
	onlyChanged bool
	interactive bool
	noSave      bool
	details     bool
}

// plotCommand creates the plot command.
func (c *CLI) plotCommand() *cobra.Command {
	flags := plotFlags{cfg: plotconfig.Defaults(), out: "."}

	cmd := &cobra.Command{
		Use:   "plot [drawing|dir]...",
		Short: "Plot every title block of the given drawings to PDF",
		Long: `Plot every title block of the given drawings to PDF.

Each block becomes one page <drawing>_NN.pdf in the output directory. Print
options not given on the command line are taken from the last successful
run; see "titleplot config show".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlot(cmd, args, &flags)
		},
	}

	addPrintFlags(cmd, &flags.cfg, &flags.order)
	cmd.Flags().StringVarP(&flags.out, "out", "o", flags.out, "output directory")
	cmd.Flags().BoolVar(&flags.onlyChanged, "only-changed", false, "plot only drawings whose artifacts are missing or stale")
	cmd.Flags().BoolVarP(&flags.interactive, "interactive", "i", false, "choose the drawings from a list")
	cmd.Flags().BoolVar(&flags.noSave, "no-save", false, "do not remember the print options")
	cmd.Flags().BoolVar(&flags.details, "details", false, "show every page result")

	return cmd
}

// registerOrderCompletion offers the page orders when completing --order.
func registerOrderCompletion(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("order",
		cobra.FixedCompletions([]string{"horizontal", "vertical"}, cobra.ShellCompDirectiveNoFileComp))
}

// addPrintFlags registers the print configuration flags on cmd. The
// defaults shown in help are the built-in ones.
func addPrintFlags(cmd *cobra.Command, cfg *plotconfig.Config, order *string) {
	f := cmd.Flags()
	f.StringVarP(&cfg.BlockNames, "blocks", "b", cfg.BlockNames, "title block names, separated by commas")
	f.StringVar(&cfg.Device, "device", cfg.Device, "output device")
	f.StringVar(&cfg.Paper, "paper", cfg.Paper, "default paper when no media matches a block")
	f.BoolVar(&cfg.ForcePaper, "force-paper", cfg.ForcePaper, "always use --paper")
	f.StringVar(&cfg.StyleSheet, "style-sheet", cfg.StyleSheet, "plot style sheet")
	f.StringVar(order, "order", cfg.Order.String(), "page order: horizontal (rows) or vertical (columns)")
	registerOrderCompletion(cmd)
	f.StringVar(&cfg.Scale, "scale", cfg.Scale, `"Fit" or a ratio such as 1:50`)
	f.BoolVar(&cfg.Center, "center", cfg.Center, "center the plot on the paper")
	f.Float64Var(&cfg.OffsetX, "offset-x", cfg.OffsetX, "plot offset in mm when not centered")
	f.Float64Var(&cfg.OffsetY, "offset-y", cfg.OffsetY, "plot offset in mm when not centered")
	f.BoolVar(&cfg.AutoRotate, "auto-rotate", cfg.AutoRotate, "rotate when block and paper orientation differ")
	f.BoolVar(&cfg.PlotStyles, "plot-styles", cfg.PlotStyles, "apply the style sheet")
	f.BoolVar(&cfg.Lineweights, "lineweights", cfg.Lineweights, "plot lineweights")
	f.BoolVar(&cfg.Transparency, "transparency", cfg.Transparency, "plot transparency")
	f.BoolVar(&cfg.ScaleLineweights, "scale-lineweights", cfg.ScaleLineweights, "scale lineweights with the plot")
	f.Float64Var(&cfg.GroupTolerance, "group-tolerance", cfg.GroupTolerance, "row/column grouping tolerance in drawing units")
	f.Float64Var(&cfg.MediaTolerance, "media-tolerance", cfg.MediaTolerance, "paper size matching tolerance in mm")
}

// mergePrintFlags applies the print flags set on cmd to base.
func mergePrintFlags(cmd *cobra.Command, flagCfg plotconfig.Config, order string, base plotconfig.Config) (plotconfig.Config, error) {
	set := cmd.Flags().Changed
	cfg := base
	for name, apply := range map[string]func(){
		"blocks":            func() { cfg.BlockNames = flagCfg.BlockNames },
		"device":            func() { cfg.Device = flagCfg.Device },
		"paper":             func() { cfg.Paper = flagCfg.Paper },
		"force-paper":       func() { cfg.ForcePaper = flagCfg.ForcePaper },
		"style-sheet":       func() { cfg.StyleSheet = flagCfg.StyleSheet },
		"scale":             func() { cfg.Scale = flagCfg.Scale },
		"center":            func() { cfg.Center = flagCfg.Center },
		"offset-x":          func() { cfg.OffsetX = flagCfg.OffsetX },
		"offset-y":          func() { cfg.OffsetY = flagCfg.OffsetY },
		"auto-rotate":       func() { cfg.AutoRotate = flagCfg.AutoRotate },
		"plot-styles":       func() { cfg.PlotStyles = flagCfg.PlotStyles },
		"lineweights":       func() { cfg.Lineweights = flagCfg.Lineweights },
		"transparency":      func() { cfg.Transparency = flagCfg.Transparency },
		"scale-lineweights": func() { cfg.ScaleLineweights = flagCfg.ScaleLineweights },
		"group-tolerance":   func() { cfg.GroupTolerance = flagCfg.GroupTolerance },
		"media-tolerance":   func() { cfg.MediaTolerance = flagCfg.MediaTolerance },
	} {
		if set(name) {
			apply()
		}
	}
	if set("order") {
		o, err := region.ParseOrder(order)
		if err != nil {
			return cfg, err
		}
		cfg.Order = o
	}
	return cfg, nil
}

// loadPrintConfig returns the last used configuration with the flags of
// cmd applied, and the path it was loaded from.
func loadPrintConfig(cmd *cobra.Command, flagCfg plotconfig.Config, order string) (plotconfig.Config, string, error) {
	path, err := plotconfig.DefaultPath()
	if err != nil {
		return plotconfig.Config{}, "", err
	}
	last, err := plotconfig.Load(path)
	if err != nil {
		loggerFromContext(cmd.Context()).Warn("ignoring last used configuration", "err", err)
	}
	cfg, err := mergePrintFlags(cmd, flagCfg, order, last)
	if err != nil {
		return cfg, path, err
	}
	return cfg, path, cfg.ValidateAndSetDefaults()
}

func (c *CLI) runPlot(cmd *cobra.Command, args []string, flags *plotFlags) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, cfgPath, err := loadPrintConfig(cmd, flags.cfg, flags.order)
	if err != nil {
		return err
	}
	paths, err := collectDrawings(args)
	if err != nil {
		return err
	}

	rt, err := c.newRuntime(ctx, runtimeOptions{printer: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("shutdown", "err", err)
		}
	}()

	out, err := filepath.Abs(flags.out)
	if err != nil {
		return err
	}
	orch := batch.NewOrchestrator(rt.backend, rt.stores.Store(out), rt.settings.PlotOptions(), logger)
	candidates := batch.NewCandidates(paths...)

	if flags.onlyChanged || flags.interactive {
		spinner := newSpinnerWithContext(ctx, "Checking drawings...")
		spinner.Start()
		err := orch.Refresh(ctx, candidates, flags.onlyChanged)
		spinner.Stop()
		if err != nil {
			return err
		}
	}
	if flags.interactive {
		ok, err := selectCandidates(ctx, candidates)
		if err != nil {
			return err
		}
		if !ok {
			printDetail("No selection made")
			return nil
		}
	}

	selected := batch.Selected(candidates)
	if len(selected) == 0 {
		printSuccess("All %d drawing(s) are up to date", len(candidates))
		return nil
	}

	if !flags.noSave {
		if err := plotconfig.Save(cfgPath, cfg); err != nil {
			logger.Warn("could not remember print options", "err", err)
		}
	}

	printInfo("Plotting %d drawing(s) into %s", len(selected), StyleHighlight.Render(out))
	sum, err := c.plotWithProgress(ctx, orch, candidates, cfg)
	if err != nil {
		return err
	}
	rt.engine.Wait()

	c.writeReport(ctx, rt, sum)
	printNewline()
	printSummary(sum, flags.details)

	switch {
	case sum.Canceled:
		return context.Canceled
	case sum.Failed() > 0:
		return perrors.New(perrors.ErrCodePlotFailed, "%d of %d drawing(s) failed", sum.Failed(), sum.Processed)
	}
	if sum.Pages > 1 {
		printNextStep("Combine the pages", fmt.Sprintf("titleplot merge -o %s set.pdf", flags.out))
	}
	return nil
}

// plotWithProgress runs the batch behind a spinner naming the current
// drawing.
func (c *CLI) plotWithProgress(ctx context.Context, orch *batch.Orchestrator, candidates []*batch.Candidate, cfg plotconfig.Config) (*batch.Summary, error) {
	selected := len(batch.Selected(candidates))
	spinner := newSpinner("Starting...")
	done := 0
	orch.OnProgress = func(cand *batch.Candidate) {
		if cand.Outcome != batch.Pending {
			done++
		}
		spinner.SetMessage("[%d/%d] %s: %s", min(done+1, selected), selected, cand.Source(), cand.Status)
	}
	spinner.Start()
	defer spinner.Stop()

	prog := newProgress(c.Logger)
	sum, err := orch.Run(ctx, candidates, cfg)
	if err != nil {
		return nil, err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Batch %s finished", sum.RunID))
	return sum, nil
}

// writeReport stores the summary in the configured sink. A failing sink
// only warns: the artifacts are already on disk.
func (c *CLI) writeReport(ctx context.Context, rt *runtime, sum *batch.Summary) {
	ctx = context.WithoutCancel(ctx)
	sink, err := c.newSink(ctx, rt.settings, sum.OutDir)
	if err != nil {
		c.Logger.Warn("run report not saved", "err", err)
		return
	}
	defer sink.Close(ctx)
	if err := sink.Write(ctx, sum); err != nil {
		c.Logger.Warn("run report not saved", "err", err)
	}
}
