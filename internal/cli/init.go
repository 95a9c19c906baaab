package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/vitals-sh/vitals/internal/config"
	"github.com/vitals-sh/vitals/internal/errors"
)

var initForce bool

// initCmd writes a commented default config file.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long: `Write a commented default configuration to the standard location
(honoring XDG_CONFIG_HOME, typically ~/.config/vitals/config.yaml).

Examples:
  vitals init
  vitals init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(initForce)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func initConfig(force bool) error {
	path := config.Path()
	if path == "" {
		return errors.New(errors.ErrConfig,
			"Cannot determine the config directory",
			"Set XDG_CONFIG_HOME or HOME and try again")
	}

	if _, err := os.Stat(path); err == nil {
		if !force {
			var overwrite bool
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", path)).
						Value(&overwrite),
				),
			)
			if err := form.Run(); err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig,
					"Failed to get user input",
					"Try running with --force to overwrite")
			}
			if !overwrite {
				fmt.Println("Cancelled.")
				return nil
			}
		}
		if err := os.Remove(path); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to replace existing config file",
				"Check permissions on "+path)
		}
	}

	written, err := config.WriteDefault()
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", written)
	return nil
}
