package cli

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/titleplot/pkg/batch"
	"github.com/matzehuels/titleplot/pkg/fingerprint"
)

// statusCommand creates the status command.
func (c *CLI) statusCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "status [drawing|dir]...",
		Short: "Show recorded artifacts and which drawings changed",
		Long: `Show the artifacts recorded for an output directory.

With drawings given, each one is checked against its artifacts: a drawing is
changed when it has no artifacts yet or any of them is older than the
drawing's content. Timestamps of drawings that were only touched are updated
in the record store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := c.newRuntime(ctx, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			dir, err := filepath.Abs(out)
			if err != nil {
				return err
			}
			store := rt.stores.Store(dir)
			recs, err := store.Records(ctx)
			if err != nil {
				return err
			}

			printKeyValue("Directory", dir)
			printKeyValue("Records", store.Location())
			printNewline()
			if len(recs) == 0 {
				printInfo("No artifacts recorded")
			} else {
				fmt.Println(recordTable(recs))
			}

			if len(args) == 0 {
				return nil
			}
			paths, err := collectDrawings(args)
			if err != nil {
				return err
			}
			orch := batch.NewOrchestrator(rt.backend, store, rt.settings.PlotOptions(), c.Logger)
			candidates := batch.NewCandidates(paths...)
			if err := orch.Refresh(ctx, candidates, false); err != nil {
				return err
			}

			printNewline()
			fmt.Println(candidateTable(candidates))
			changed := 0
			for _, cand := range candidates {
				if cand.Outdated {
					changed++
				}
			}
			if changed == 0 {
				printSuccess("All %d drawing(s) are up to date", len(candidates))
				return nil
			}
			printWarning("%d of %d drawing(s) need plotting", changed, len(candidates))
			printNextStep("Plot them", fmt.Sprintf("titleplot plot --only-changed -o %s %s", out, strings.Join(args, " ")))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", ".", "output directory")
	return cmd
}

func recordTable(recs map[string]fingerprint.Record) string {
	names := make([]string, 0, len(recs))
	for name := range recs {
		names = append(names, name)
	}
	slices.Sort(names)

	rows := make([][]string, len(names))
	for i, name := range names {
		r := recs[name]
		if r.Merged() {
			rows[i] = []string{name, strings.Join(r.Sources, ", "), "merged", ""}
			continue
		}
		rows[i] = []string{name, r.Source, shortFingerprint(r.Fingerprint), r.Timestamp.Local().Format(time.DateTime)}
	}
	return newTable("Artifact", "Source", "Fingerprint", "Drawing modified").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if col >= 2 {
				return StyleDim
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

func candidateTable(cs []*batch.Candidate) string {
	rows := make([][]string, len(cs))
	for i, c := range cs {
		rows[i] = []string{c.Source(), c.Status}
	}
	return newTable("Drawing", "State").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if col == 1 && cs[row].Outdated {
				return StyleWarning
			}
			if col == 1 {
				return StyleSuccess
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// shortFingerprint abbreviates content hashes; revision markers are short
// enough already.
func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
