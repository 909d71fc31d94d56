// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modgate",
		Short: "Pre-activation requirement gate for plug-in modules",
		Long: titleStyle.Render("modgate") + mutedStyle.Render(" - Pre-activation requirement gate for plug-in modules") + `

modgate checks a module's declared requirements (runtime and host versions,
runtime extensions, sibling modules, symbols and deployment topology) against
an environment before the module is activated. A module whose requirements are
not met is blocked and a notice lists every failed requirement.

` + mutedStyle.Render("Examples:") + `
  modgate check --manifest modgate.cue --env env.cue     Gate a module
  modgate check --manifest modgate.cue --probe           Gate against the live host
  modgate check --manifest modgate.cue --env env.toml --capture --format html
  modgate profiles                                       List built-in profiles
  modgate serve --manifest modgate.cue --probe           Start the capture endpoint`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/modgate/config.cue)")

	rootCmd.AddCommand(newCheckCommand(app))
	rootCmd.AddCommand(newProfilesCommand(app))
	rootCmd.AddCommand(newProbeCommand(app))
	rootCmd.AddCommand(newServeCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI with production dependencies and exits the process.
// This is called by main.main().
func Execute() {
	rootCmd := NewRootCommand(NewApp(Dependencies{}))

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a command error to the process exit code. Errors that do
// not carry a code come from flag parsing or argument validation, so they
// are input errors; exit 1 stays reserved for blocked modules.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitInputError
}

// silence stops cobra (and fang) from printing err again after a handler has
// already rendered it.
func silence(cmd *cobra.Command) {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.Root().SilenceErrors = true
}
