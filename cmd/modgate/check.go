// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/invowk/modgate/internal/config"
	"github.com/invowk/modgate/internal/gate"
	"github.com/invowk/modgate/internal/issue"
	"github.com/invowk/modgate/internal/notice"
	"github.com/invowk/modgate/internal/watch"
	"github.com/invowk/modgate/pkg/manifest"
	"github.com/invowk/modgate/pkg/requirement"
)

// checkOptions holds the flags of `modgate check`.
type checkOptions struct {
	manifestPath string
	envPath      string
	probe        bool
	profile      string
	capture      bool
	format       string
	watch        bool
}

// renderMarkdown renders markdown for a terminal. Tests replace it.
var renderMarkdown = glamour.Render

func newCheckCommand(app *App) *cobra.Command {
	opts := &checkOptions{}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate a module's requirements and decide whether it may activate",
		Long: `Evaluate every requirement of a module against an environment.

The module is allowed (exit 0) when all requirements are satisfied. Otherwise it
is blocked: a styled notice is printed to stderr and the exit code is 1.

With --capture, a blocked module's notice is written to stdout in the selected
format and the exit code is 0. Capture is meant for harnesses and support
requests; nothing is written to stderr.

With --watch, the module is re-checked whenever the manifest or environment
file changes, until interrupted. Blocked outcomes are reported without exiting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, app, opts)
		},
	}

	checkCmd.Flags().StringVarP(&opts.manifestPath, "manifest", "m", "", "module manifest (.cue, .json or .toml)")
	checkCmd.Flags().StringVarP(&opts.envPath, "env", "e", "", "environment snapshot file (.cue, .json or .toml)")
	checkCmd.Flags().BoolVar(&opts.probe, "probe", false, "probe the live environment with the configured scripts")
	checkCmd.Flags().StringVarP(&opts.profile, "profile", "p", "", "requirement profile, overriding the manifest and config")
	checkCmd.Flags().BoolVar(&opts.capture, "capture", false, "write a blocked module's notice to stdout instead of failing")
	checkCmd.Flags().StringVarP(&opts.format, "format", "f", "", "notice format for --capture: html, markdown, text or json (default from config)")

	checkCmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-check when the manifest or environment file changes")

	_ = checkCmd.MarkFlagRequired("manifest")
	checkCmd.MarkFlagsMutuallyExclusive("env", "probe")
	checkCmd.MarkFlagsMutuallyExclusive("watch", "capture")
	checkCmd.MarkFlagsOneRequired("env", "probe")

	return checkCmd
}

func runCheck(cmd *cobra.Command, app *App, opts *checkOptions) error {
	ctx := cmd.Context()

	cfg, err := app.loadConfig(ctx)
	if err != nil {
		silence(cmd)
		return app.inputError(err)
	}

	format := cfg.NoticeFormat
	if opts.format != "" {
		format = notice.Format(opts.format)
	}
	if err := format.Validate(); err != nil {
		silence(cmd)
		return app.inputError(err)
	}

	if !opts.watch {
		return checkOnce(cmd, app, opts, cfg, format)
	}
	return watchCheck(cmd, app, opts, cfg, format)
}

// checkOnce loads the manifest and environment and activates the gate once.
func checkOnce(cmd *cobra.Command, app *App, opts *checkOptions, cfg *config.Config, format notice.Format) error {
	ctx := cmd.Context()
	logger := app.logger(cfg)

	m, err := loadManifest(opts.manifestPath)
	if err != nil {
		silence(cmd)
		return app.inputError(err)
	}

	set, err := buildSet(m, requirement.Profile(opts.profile), cfg)
	if err != nil {
		silence(cmd)
		return app.inputError(err)
	}

	env, err := app.environment(ctx, cfg, opts.envPath, opts.probe, logger)
	if err != nil {
		silence(cmd)
		return app.inputError(err)
	}

	mode := gate.ModeBlocking
	if opts.capture {
		mode = gate.ModeCapture
	}

	d, err := gate.New(m.Module, gate.WithLogger(logger)).Activate(set, env, mode)
	if err != nil {
		var notMet *gate.RequirementsNotMetError
		if errors.As(err, &notMet) && notMet.Decision.Notice != nil {
			fmt.Fprint(app.stderr, RenderBlockedCard(*notMet.Decision.Notice))
			if app.verbose {
				if page := issue.Get(issue.RequirementsNotMetId); page != nil {
					if rendered, renderErr := page.Render("dark"); renderErr == nil {
						fmt.Fprint(app.stderr, rendered)
					}
				}
			}
		}
		silence(cmd)
		return &ExitError{Code: ExitBlocked, Err: err}
	}

	if d.Allowed() {
		if !opts.capture {
			fmt.Fprint(app.stdout, RenderAllowed(m.Module, d.Results))
		}
		return nil
	}

	return writeCapturedNotice(app.stdout, *d.Notice, format)
}

// watchCheck runs checkOnce, then again after every change to the manifest
// or environment file. Failures have already been reported by checkOnce, so
// only the exit code is dropped.
func watchCheck(cmd *cobra.Command, app *App, opts *checkOptions, cfg *config.Config, format notice.Format) error {
	ctx := cmd.Context()
	logger := app.logger(cfg)

	_ = checkOnce(cmd, app, opts, cfg, format)

	files := []string{opts.manifestPath}
	if opts.envPath != "" {
		files = append(files, opts.envPath)
	}

	w, err := watch.New(watch.Config{
		Files:  files,
		Stderr: app.stderr,
		OnChange: func(_ context.Context, changed []string) error {
			fmt.Fprintf(app.stderr, "\n%s %s\n", mutedStyle.Render("changed:"), strings.Join(changed, ", "))
			_ = checkOnce(cmd, app, opts, cfg, format)
			return nil
		},
	})
	if err != nil {
		silence(cmd)
		return app.inputError(err)
	}

	logger.Info("watching for changes", "files", files)
	if err := w.Run(ctx); err != nil {
		silence(cmd)
		return app.inputError(err)
	}
	return nil
}

// buildSet resolves the profile precedence: flag, manifest, then config.
func buildSet(m *manifest.Manifest, flagProfile requirement.Profile, cfg *config.Config) (*requirement.Set, error) {
	override := flagProfile
	if override == "" && m.Profile == "" {
		override = cfg.DefaultProfile
	}

	set, err := m.BuildSet(override)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("build requirement set").
			WithResource(m.Path).
			WithSuggestion("Run 'modgate profiles' to list valid profile names").
			WithIssue(issue.ProfileNotFoundId).
			Wrap(err).
			BuildError()
	}
	return set, nil
}

// writeCapturedNotice writes the notice document. Markdown is rendered with
// glamour when w is a terminal.
func writeCapturedNotice(w io.Writer, n notice.Notice, format notice.Format) error {
	doc, err := notice.Render(n, format)
	if err != nil {
		return err
	}
	if format == notice.FormatMarkdown && isTerminal(w) {
		if styled, renderErr := renderMarkdown(doc, "dark"); renderErr == nil {
			doc = styled
		}
	}
	if format == notice.FormatHTML {
		doc += "\n"
	}
	_, err = io.WriteString(w, doc)
	return err
}
