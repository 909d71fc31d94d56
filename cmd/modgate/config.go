// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/modgate/internal/config"
)

// newConfigCommand creates the `modgate config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage modgate configuration",
		Long: `Manage modgate configuration.

Configuration is stored in:
  - Linux: ~/.config/modgate/config.cue
  - macOS: ~/Library/Application Support/modgate/config.cue
  - Windows: %APPDATA%\modgate\config.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				silence(cmd)
				return app.inputError(err)
			}

			source := cfg.Source
			if source == "" {
				source = "(using defaults)"
			}
			fmt.Fprintf(app.stderr, "%s: %s\n\n", nameStyle.Render("Config file"), mutedStyle.Render(source))
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, written, err := config.CreateDefaultConfig()
			if err != nil {
				return fmt.Errorf("failed to create config: %w", err)
			}
			if !written {
				fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", warnStyle.Render("!"), path)
				return nil
			}
			fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", passStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.configPath != "" {
				fmt.Fprintln(app.stdout, app.configPath)
				return nil
			}
			path, err := config.ConfigFilePath()
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	return cfgCmd
}
