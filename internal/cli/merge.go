package cli

import (
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	perrors "github.com/matzehuels/titleplot/pkg/errors"
	"github.com/matzehuels/titleplot/pkg/merge"
)

// mergeCommand creates the merge command.
func (c *CLI) mergeCommand() *cobra.Command {
	var (
		out     string
		sources []string
	)
	cmd := &cobra.Command{
		Use:   "merge <output.pdf> [artifact.pdf]...",
		Short: "Combine plotted pages into one PDF",
		Long: `Combine plotted pages into one PDF inside the output directory.

Artifacts are merged in the order given. With --source, every artifact
recorded for that drawing is added in page order; without artifacts or
sources, all recorded single-drawing artifacts are merged.`,
		Args: cobra.MinimumNArgs(1),
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

			inputs := slices.Clone(args[1:])
			for _, src := range sources {
				names, err := store.ArtifactsFor(ctx, filepath.Base(src))
				if err != nil {
					return err
				}
				if len(names) == 0 {
					return perrors.New(perrors.ErrCodeNotFound, "no artifacts recorded for %s", src)
				}
				inputs = append(inputs, names...)
			}
			if len(inputs) == 0 {
				recs, err := store.Records(ctx)
				if err != nil {
					return err
				}
				for name, r := range recs {
					if !r.Merged() && name != args[0] {
						inputs = append(inputs, name)
					}
				}
				slices.Sort(inputs)
			}

			res, err := merge.Merge(ctx, store, args[0], inputs, c.Logger)
			if err != nil {
				return err
			}
			printSuccess("Merged %d artifact(s) into %d page(s)", len(res.Inputs), res.Pages)
			printFile(res.Path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", ".", "output directory holding the artifacts")
	cmd.Flags().StringSliceVarP(&sources, "source", "s", nil, "merge all artifacts of a drawing (repeatable)")
	return cmd
}
