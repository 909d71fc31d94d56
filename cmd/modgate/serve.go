// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/invowk/modgate/internal/config"
	"github.com/invowk/modgate/internal/gate"
	"github.com/invowk/modgate/internal/issue"
	"github.com/invowk/modgate/internal/sshserver"
	"github.com/invowk/modgate/pkg/manifest"
	"github.com/invowk/modgate/pkg/requirement"
)

// serveOptions holds the flags of `modgate serve`.
type serveOptions struct {
	manifestPath string
	envPath      string
	probe        bool
	profile      string
	host         string
	port         int
	tokens       int
}

func newServeCommand(app *App) *cobra.Command {
	opts := &serveOptions{}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the SSH capture endpoint for a module",
		Long: `Run an SSH endpoint that returns a module's capture-mode notice.

Each printed token authenticates exactly one session and expires after the
configured token_ttl. The session's command selects the notice format:

  ssh -p PORT modgate@HOST html

The environment is re-read (or re-probed) for every session. The server runs
until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, app, opts)
		},
	}

	serveCmd.Flags().StringVarP(&opts.manifestPath, "manifest", "m", "", "module manifest (.cue, .json or .toml)")
	serveCmd.Flags().StringVarP(&opts.envPath, "env", "e", "", "environment snapshot file (.cue, .json or .toml)")
	serveCmd.Flags().BoolVar(&opts.probe, "probe", false, "probe the live environment with the configured scripts")
	serveCmd.Flags().StringVarP(&opts.profile, "profile", "p", "", "requirement profile, overriding the manifest and config")
	serveCmd.Flags().StringVar(&opts.host, "host", "", "address to bind (default from config)")
	serveCmd.Flags().IntVar(&opts.port, "port", -1, "port to listen on, 0 picks a free port (default from config)")
	serveCmd.Flags().IntVar(&opts.tokens, "tokens", 1, "number of single-use tokens to issue")

	_ = serveCmd.MarkFlagRequired("manifest")
	serveCmd.MarkFlagsMutuallyExclusive("env", "probe")
	serveCmd.MarkFlagsOneRequired("env", "probe")

	return serveCmd
}

func runServe(cmd *cobra.Command, app *App, opts *serveOptions) error {
	ctx := cmd.Context()

	if opts.tokens < 1 {
		silence(cmd)
		return app.inputError(fmt.Errorf("--tokens must be at least 1, got %d", opts.tokens))
	}

	cfg, err := app.loadConfig(ctx)
	if err != nil {
		silence(cmd)
		return app.inputError(err)
	}
	logger := app.logger(cfg)

	m, err := loadManifest(opts.manifestPath)
	if err != nil {
		silence(cmd)
		return app.inputError(err)
	}
	// Fail on a bad profile before the server starts.
	if _, err := buildSet(m, requirement.Profile(opts.profile), cfg); err != nil {
		silence(cmd)
		return app.inputError(err)
	}

	srv := sshserver.New(serverConfig(cfg, opts),
		newCaptureEvaluator(app, cfg, m, opts, logger),
		sshserver.WithLogger(logger.WithPrefix("ssh-server")),
	)

	if err := srv.Start(ctx); err != nil {
		silence(cmd)
		app.printError(serverError(err))
		return &ExitError{Code: ExitServerError, Err: err}
	}
	defer func() { _ = srv.Stop() }() // Best-effort; Stop is idempotent

	fmt.Fprintf(app.stdout, "%s Capture endpoint for %s listening on %s\n",
		passStyle.Render("✓"), nameStyle.Render(m.Module), srv.Address())
	for range opts.tokens {
		info, err := srv.GetConnectionInfo(m.Module)
		if err != nil {
			silence(cmd)
			app.printError(serverError(err))
			return &ExitError{Code: ExitServerError, Err: err}
		}
		fmt.Fprintf(app.stdout, "\n  %s %s\n", mutedStyle.Render("command:"), nameStyle.Render(info.Command(string(cfg.NoticeFormat))))
		fmt.Fprintf(app.stdout, "  %s %s\n", mutedStyle.Render("token:  "), info.Token)
		fmt.Fprintf(app.stdout, "  %s %s\n", mutedStyle.Render("expires:"), info.ExpireAt.Format("15:04:05"))
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down", "reason", ctx.Err())
		return srv.Stop()
	case err, ok := <-srv.Err():
		if !ok || err == nil {
			return nil
		}
		silence(cmd)
		app.printError(serverError(err))
		return &ExitError{Code: ExitServerError, Err: err}
	}
}

// serverConfig merges the diagnostics config with flag overrides.
func serverConfig(cfg *config.Config, opts *serveOptions) sshserver.Config {
	sc := sshserver.DefaultConfig()
	sc.Host = cfg.Diagnostics.Host
	sc.Port = cfg.Diagnostics.Port
	sc.TokenTTL = cfg.Diagnostics.TokenTTL
	sc.ShutdownTimeout = cfg.Diagnostics.ShutdownTimeout
	sc.DefaultFormat = cfg.NoticeFormat
	if opts.host != "" {
		sc.Host = opts.host
	}
	if opts.port >= 0 {
		sc.Port = opts.port
	}
	return sc
}

// newCaptureEvaluator returns the per-session evaluation. Every call builds a
// fresh set and environment, so sessions never share results.
func newCaptureEvaluator(app *App, cfg *config.Config, m *manifest.Manifest, opts *serveOptions, logger *log.Logger) sshserver.Evaluator {
	return func(ctx context.Context, module string) (gate.Decision, error) {
		if module != m.Module {
			return gate.Decision{}, fmt.Errorf("token was issued for %q, not %q", module, m.Module)
		}
		set, err := buildSet(m, requirement.Profile(opts.profile), cfg)
		if err != nil {
			return gate.Decision{}, err
		}
		env, err := app.environment(ctx, cfg, opts.envPath, opts.probe, logger)
		if err != nil {
			return gate.Decision{}, err
		}
		return gate.New(m.Module, gate.WithLogger(logger)).Activate(set, env, gate.ModeCapture)
	}
}

func serverError(err error) error {
	return issue.NewErrorContext().
		WithOperation("run diagnostics server").
		WithSuggestion("Check that the configured port is free, or pass --port 0").
		WithIssue(issue.DiagnosticsServerFailedId).
		Wrap(err).
		BuildError()
}
