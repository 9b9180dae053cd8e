package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

// cacheCommand creates the fingerprint cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the fingerprint records of an output directory",
	}
	cmd.PersistentFlags().StringVarP(&out, "out", "o", ".", "output directory")

	cmd.AddCommand(c.cacheClearCommand(&out))
	cmd.AddCommand(c.cachePathCommand(&out))

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand(out *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget all recorded artifacts so the next run plots everything",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := c.newRuntime(ctx, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			dir, err := filepath.Abs(*out)
			if err != nil {
				return err
			}
			store := rt.stores.Store(dir)
			recs, err := store.Records(ctx)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				printInfo("Cache is empty")
				return nil
			}
			if err := store.Clear(ctx); err != nil {
				return err
			}

			printSuccess("Cleared %d record(s)", len(recs))
			printDetail("Location: %s", store.Location())
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand(out *string) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the records of the output directory are stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.newRuntime(cmd.Context(), runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			dir, err := filepath.Abs(*out)
			if err != nil {
				return err
			}
			fmt.Println(rt.stores.Store(dir).Location())
			return nil
		},
	}
}
