package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/titleplot/internal/server"
	"github.com/matzehuels/titleplot/pkg/report"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var out, input, addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve artifact records and run reports over HTTP",
		Long: `Serve artifact records and run reports of an output directory over HTTP.

  GET /api/v1/records                 all records
  GET /api/v1/records/{name}?source=  one record, with a staleness check
                                      against a drawing in --input
  GET /api/v1/runs                    stored run summaries
  GET /api/v1/runs/{id}               one run summary`,
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
			if addr == "" {
				addr = rt.settings.Server.Addr
			}

			sink, err := c.newSink(ctx, rt.settings, dir)
			if err != nil {
				return err
			}
			defer sink.Close(ctx)
			archive, _ := sink.(report.Archive)
			if archive == nil {
				c.Logger.Info("run reports disabled by settings")
			}

			cfg := server.Config{
				Store:   rt.stores.Store(dir),
				Archive: archive,
				Backend: rt.backend,
				Logger:  c.Logger,
			}
			if input != "" {
				if cfg.InputDir, err = filepath.Abs(input); err != nil {
					return err
				}
			}
			printInfo("Serving %s on %s", StyleHighlight.Render(dir), StyleHighlight.Render("http://"+addr))
			return server.New(cfg).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&input, "input", "", "drawing directory for staleness checks")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from settings)")
	return cmd
}
