package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	perrors "github.com/matzehuels/titleplot/pkg/errors"
	"github.com/matzehuels/titleplot/pkg/plotconfig"
	"github.com/matzehuels/titleplot/pkg/region"
)

// scanFlags holds the flags shared by scan and order. Block names, order
// and tolerance fall back to the last used print configuration.
type scanFlags struct {
	cfg   plotconfig.Config
	order string
}

func (f *scanFlags) register(cmd *cobra.Command) {
	f.cfg = plotconfig.Defaults()
	cmd.Flags().StringVarP(&f.cfg.BlockNames, "blocks", "b", "", "title block names, separated by commas")
	cmd.Flags().StringVar(&f.order, "order", f.cfg.Order.String(), "page order: horizontal (rows) or vertical (columns)")
	registerOrderCompletion(cmd)
	cmd.Flags().Float64Var(&f.cfg.GroupTolerance, "group-tolerance", f.cfg.GroupTolerance, "row/column grouping tolerance in drawing units")
}

// scanned is the ordered result of scanning one drawing.
type scanned struct {
	path    string
	scan    *region.ScanResult
	regions []region.Region
}

// scanDrawing opens path, scans it for the configured blocks and sorts the
// regions.
func (c *CLI) scanDrawing(ctx context.Context, rt *runtime, path string, cfg plotconfig.Config) (*scanned, error) {
	doc, err := rt.backend.Open(ctx, path)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "open %s", path)
	}
	defer doc.Close()

	res, err := region.NewScanner(c.Logger).Scan(ctx, doc, cfg.Names())
	if err != nil {
		return nil, err
	}
	return &scanned{
		path:    path,
		scan:    res,
		regions: region.Sort(res.Regions, cfg.Order, cfg.GroupTolerance),
	}, nil
}

// =============================================================================
// scan
// =============================================================================

// scanCommand creates the scan command.
func (c *CLI) scanCommand() *cobra.Command {
	var flags scanFlags
	cmd := &cobra.Command{
		Use:   "scan [drawing|dir]...",
		Short: "List the title blocks of drawings in print order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, _, err := loadPrintConfig(cmd, flags.cfg, flags.order)
			if err != nil {
				return err
			}
			paths, err := collectDrawings(args)
			if err != nil {
				return err
			}
			rt, err := c.newRuntime(ctx, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			total := 0
			for _, p := range paths {
				s, err := c.scanDrawing(ctx, rt, p, cfg)
				if err != nil {
					printError("%s: %s", p, perrors.UserMessage(err))
					continue
				}
				total += len(s.regions)
				printScan(s)
			}
			printSuccess("Found %d title block(s) in %d drawing(s)", total, len(paths))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func printScan(s *scanned) {
	fmt.Println(StyleTitle.Render(s.path) + " " + StyleDim.Render(spaceLabel(s.scan)))
	if len(s.regions) == 0 {
		printWarning("no matching title blocks")
		printNewline()
		return
	}
	rows := make([][]string, len(s.regions))
	for i, r := range s.regions {
		w, h := r.Size()
		orient := "portrait"
		if r.Landscape() {
			orient = "landscape"
		}
		rows[i] = []string{
			fmt.Sprintf("%02d", i+1),
			r.Name,
			r.Handle,
			fmt.Sprintf("%s x %s", trimFloat(w), trimFloat(h)),
			orient,
			fmt.Sprintf("(%s, %s)", trimFloat(r.Window.Min.X), trimFloat(r.Window.Min.Y)),
		}
	}
	fmt.Println(newTable("#", "Block", "Handle", "Size", "Orientation", "Window").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if col == 0 || col == 2 {
				return StyleDim
			}
			return lipgloss.NewStyle()
		}).
		Render())
	if s.scan.Skipped > 0 {
		printWarning("%d block(s) skipped: extents unavailable", s.scan.Skipped)
	}
	printNewline()
}

func spaceLabel(res *region.ScanResult) string {
	switch {
	case !res.Model:
		return "layout " + res.Space
	case res.View != nil:
		return "model space, current view"
	default:
		return "model space, world coordinates"
	}
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// =============================================================================
// order
// =============================================================================

// orderCommand creates the order command, which draws the print sequence
// of one drawing with Graphviz.
func (c *CLI) orderCommand() *cobra.Command {
	var (
		flags  scanFlags
		output string
		dot    bool
	)
	cmd := &cobra.Command{
		Use:   "order <drawing>",
		Short: "Render the print order of a drawing's title blocks",
		Long: `Render the print order of a drawing's title blocks.

Every block is drawn at its position on the sheet and arrows follow the page
sequence. The result is an SVG; --dot prints the Graphviz source instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, _, err := loadPrintConfig(cmd, flags.cfg, flags.order)
			if err != nil {
				return err
			}
			rt, err := c.newRuntime(ctx, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			s, err := c.scanDrawing(ctx, rt, args[0], cfg)
			if err != nil {
				return err
			}
			if len(s.regions) == 0 {
				return perrors.New(perrors.ErrCodeNoRegions, "no title blocks named %s in %s", cfg.BlockNames, args[0])
			}

			if dot {
				fmt.Print(region.ToDOT(s.regions))
				return nil
			}
			if output == "" {
				output = basename(args[0]) + "_order.svg"
			}
			svg, err := region.RenderOrderSVG(ctx, s.regions)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, svg, 0o644); err != nil {
				return err
			}
			printSuccess("Order of %d page(s) rendered", len(s.regions))
			printFile(output)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output SVG (default: <drawing>_order.svg)")
	cmd.Flags().BoolVar(&dot, "dot", false, "print the Graphviz DOT source to stdout")
	return cmd
}
