package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/titleplot/pkg/batch"
	"github.com/matzehuels/titleplot/pkg/plot"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for failed rows.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleBorder  = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// printNewline prints an empty line.
func printNewline() {
	fmt.Println()
}

// =============================================================================
// Tables
// =============================================================================

// newTable returns a table in the house style.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers(headers...)
}

// summaryTable renders one row per processed drawing.
func summaryTable(sum *batch.Summary) string {
	var results []batch.FileResult
	for _, r := range sum.Results {
		if r.Outcome != batch.Pending {
			results = append(results, r)
		}
	}
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{
			outcomeIcon(r.Outcome),
			r.Path,
			strconv.Itoa(r.Regions),
			strconv.Itoa(r.Pages),
			r.Duration.Round(10 * time.Millisecond).String(),
			r.Message,
		}
	}
	return newTable("", "Drawing", "Blocks", "Pages", "Time", "Result").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if col == 5 && !results[row].Success() {
				return StyleError
			}
			if col == 4 {
				return StyleDim
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// pageTable renders the page results of one drawing.
func pageTable(pages []batch.PageResult) string {
	rows := make([][]string, len(pages))
	for i, p := range pages {
		detail := p.Error
		if detail == "" && len(p.Warnings) > 0 {
			detail = fmt.Sprintf("%d warning(s): %s", len(p.Warnings), p.Warnings[0])
		}
		rows[i] = []string{p.Artifact, p.Block, p.Media, p.Status, detail}
	}
	return newTable("Artifact", "Block", "Media", "Status", "Detail").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if col == 3 && pages[row].Status != plot.Plotted.String() {
				return StyleError
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

func outcomeIcon(o batch.Outcome) string {
	switch o {
	case batch.Succeeded:
		return styleIconSuccess.Render(iconSuccess)
	case batch.Failed:
		return styleIconError.Render(iconError)
	}
	return StyleDim.Render("·")
}

// printSummary prints the result of a batch run.
func printSummary(sum *batch.Summary, verbose bool) {
	fmt.Println(summaryTable(sum))
	if verbose {
		for _, r := range sum.Results {
			if len(r.PageList) > 0 {
				printNewline()
				fmt.Println(StyleTitle.Render(r.Path))
				fmt.Println(pageTable(r.PageList))
			}
		}
	}
	printNewline()

	failed := sum.Failed()
	switch {
	case sum.Canceled:
		printWarning("Canceled after %d drawing(s), %d page(s) plotted", sum.Processed, sum.Pages)
	case failed > 0:
		printError("%d of %d drawing(s) failed, %d page(s) plotted", failed, sum.Processed, sum.Pages)
	default:
		printSuccess("Plotted %d page(s) from %d drawing(s) in %s",
			sum.Pages, sum.Processed, sum.Duration().Round(10*time.Millisecond))
	}
	printDetail("Run %s", sum.RunID)
}
