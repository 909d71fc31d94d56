// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/invowk/modgate/internal/config"
	"github.com/invowk/modgate/internal/issue"
	"github.com/invowk/modgate/internal/probe"
	"github.com/invowk/modgate/pkg/manifest"
	"github.com/invowk/modgate/pkg/requirement"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root
	// for the CLI layer: every Cobra handler receives an App reference.
	App struct {
		Config ConfigProvider
		Prober EnvironmentProber
		stdout io.Writer
		stderr io.Writer

		// Persistent flag values, bound by NewRootCommand.
		configPath string
		verbose    bool
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Prober EnvironmentProber
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// EnvironmentProber builds a live environment snapshot.
	EnvironmentProber interface {
		Snapshot(ctx context.Context, cfg config.ProbeConfig, logger *log.Logger) (*requirement.Snapshot, error)
	}

	// shellProber runs the configured probe scripts.
	shellProber struct{}
)

// NewApp creates an App, filling nil dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Prober == nil {
		deps.Prober = shellProber{}
	}

	return &App{
		Config: deps.Config,
		Prober: deps.Prober,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

// Snapshot implements EnvironmentProber.
func (shellProber) Snapshot(ctx context.Context, cfg config.ProbeConfig, logger *log.Logger) (*requirement.Snapshot, error) {
	return probe.New(cfg, probe.WithLogger(logger)).Snapshot(ctx)
}

// loadConfig loads the effective configuration honoring --config.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	return a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
}

// logger returns the CLI logger at the configured level. --verbose forces debug.
func (a *App) logger(cfg *config.Config) *log.Logger {
	level := log.InfoLevel
	if cfg != nil {
		if parsed, err := log.ParseLevel(string(cfg.LogLevel)); err == nil {
			level = parsed
		}
	}
	if a.verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix: "modgate",
		Level:  level,
	})
}

// environment resolves the snapshot from --env or --probe.
func (a *App) environment(ctx context.Context, cfg *config.Config, envPath string, useProbe bool, logger *log.Logger) (*requirement.Snapshot, error) {
	if useProbe {
		snap, err := a.Prober.Snapshot(ctx, cfg.Probe, logger)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("probe environment").
				WithSuggestion("Run 'modgate probe' to see which probe script fails").
				WithSuggestion("Adjust the probe scripts in the configuration file").
				WithSuggestion("Use --env with a snapshot file instead of --probe").
				WithIssue(issue.ProbeFailedId).
				Wrap(err).
				BuildError()
		}
		return snap, nil
	}

	snap, err := manifest.LoadEnvironment(envPath)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load environment snapshot").
			WithResource(envPath).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Generate a snapshot with 'modgate probe --format cue > env.cue'").
			WithIssue(issue.EnvironmentLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return snap, nil
}

// loadManifest loads a manifest and classifies the failure.
func loadManifest(path string) (*manifest.Manifest, error) {
	m, err := manifest.LoadManifest(path)
	if err == nil {
		return m, nil
	}

	ctx := issue.NewErrorContext().
		WithOperation("load manifest").
		WithResource(path)
	if errors.Is(err, os.ErrNotExist) {
		ctx = ctx.
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Pass the manifest with --manifest FILE").
			WithIssue(issue.ManifestNotFoundId)
	} else {
		ctx = ctx.
			WithSuggestion("Check the field named in the error against the manifest schema").
			WithSuggestion("Versions must be dotted numbers such as 5.3.2").
			WithIssue(issue.ManifestParseErrorId)
	}
	return nil, ctx.Wrap(err).BuildError()
}

// inputError prints err for the user and returns an ExitError with
// ExitInputError. Usage is not printed for input failures.
func (a *App) inputError(err error) error {
	a.printError(err)
	return &ExitError{Code: ExitInputError, Err: err}
}

// printError writes err to stderr, including suggestions and the linked
// issue page when err is an ActionableError.
func (a *App) printError(err error) {
	fmt.Fprintln(a.stderr, failStyle.Render("Error: ")+formatErrorForDisplay(err, a.verbose))

	var ae *issue.ActionableError
	if !errors.As(err, &ae) || !a.verbose {
		return
	}
	if page := ae.HelpPage(); page != nil {
		rendered, renderErr := page.Render("dark")
		if renderErr != nil {
			return
		}
		fmt.Fprint(a.stderr, rendered)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// isTerminal reports whether w is a character device.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// joinOrNone joins items or returns "(none)".
func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
