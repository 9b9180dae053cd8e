package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/titleplot/pkg/plotconfig"
	"github.com/matzehuels/titleplot/pkg/settings"
)

// configCommand creates the config command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or reset the remembered print options and settings",
	}
	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configResetCommand())
	return cmd
}

func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the print options the next run starts from",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := plotconfig.DefaultPath()
			if err != nil {
				return err
			}
			cfg, err := plotconfig.Load(path)
			if err != nil {
				return err
			}
			s, err := settings.Load(c.settingsFile)
			if err != nil {
				return err
			}

			fmt.Println(StyleTitle.Render("Print options"))
			printDetail("%s", path)
			if err := toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg); err != nil {
				return err
			}

			printNewline()
			fmt.Println(StyleTitle.Render("Settings"))
			if s.File != "" {
				printDetail("%s", s.File)
			} else {
				printDetail("built-in defaults")
			}
			printKeyValue("Cache", s.Cache.Backend)
			if s.Cache.Backend == settings.CacheRedis {
				printKeyValue("Redis", s.Cache.Redis.Addr)
			}
			printKeyValue("Reports", s.Report.Sink)
			if s.Report.Sink == settings.SinkMongo {
				printKeyValue("MongoDB", s.Report.Mongo.Database+"."+s.Report.Mongo.Collection)
			}
			chrome := "local"
			if s.Chrome.RemoteURL != "" {
				chrome = s.Chrome.RemoteURL
			}
			printKeyValue("Chrome", chrome)
			printKeyValue("Poll", s.Plot.PollInterval.String()+" / "+s.Plot.PollTimeout.String())
			printKeyValue("Busy wait", s.Plot.BusyTimeout.String())
			printKeyValue("Async", strconv.FormatBool(s.Plot.Async))
			printKeyValue("Server", s.Server.Addr)
			return nil
		},
	}
}

func (c *CLI) configResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the remembered print options",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := plotconfig.DefaultPath()
			if err != nil {
				return err
			}
			if err := os.Remove(path); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					printInfo("Nothing to reset")
					return nil
				}
				return err
			}
			printSuccess("Print options reset to defaults")
			printFile(path)
			return nil
		},
	}
}
