package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vitals-sh/vitals/internal/config"
	"github.com/vitals-sh/vitals/internal/errors"
)

// configCmd prints the effective configuration after merging the config
// file with command line overrides.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the configuration vitals would run with, after merging the
config file with any command line flags.

Examples:
  vitals config
  vitals config --rate 500ms
  vitals --config ./custom.yaml config`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(exportConfig(cfg))
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrInternal,
				"Failed to render configuration",
				"This is a bug in vitals; please report it")
		}

		fmt.Printf("# %s\n%s", configSource(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	// The dashboard flags double as overrides for the printed output.
	configCmd.Flags().AddFlagSet(rootCmd.Flags())
}

// exportConfig shapes the config for display, with durations as strings
// instead of nanosecond integers.
func exportConfig(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"rate":                    cfg.Rate.String(),
		"retention":               cfg.Retention.String(),
		"window":                  cfg.Window.String(),
		"temperature":             string(cfg.Temperature),
		"case_sensitive":          cfg.CaseSensitive,
		"default_sort":            cfg.DefaultSort,
		"default_sort_descending": cfg.DefaultSortDescending,
		"tree":                    cfg.Tree,
		"group":                   cfg.Group,
		"avg_cpu":                 cfg.AvgCPU,
		"shrink_ticks":            cfg.ShrinkTicks,
	}
}

// configSource names where the base configuration came from.
func configSource() string {
	if configPathFlag != "" {
		return configPathFlag
	}
	if path := config.Path(); path != "" {
		return path + " (defaults when absent)"
	}
	return "built-in defaults"
}
