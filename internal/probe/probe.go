// SPDX-License-Identifier: MPL-2.0

package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/invowk/modgate/internal/config"
	"github.com/invowk/modgate/pkg/requirement"
)

// ErrProbeFailed is the sentinel wrapped by ScriptError.
var ErrProbeFailed = errors.New("probe failed")

type (
	// Query names one probe script.
	Query string

	// ScriptError reports a probe script that did not complete.
	// It wraps ErrProbeFailed for errors.Is() compatibility.
	ScriptError struct {
		Query    Query
		ExitCode int
		Stderr   string
		TimedOut bool
		Err      error
	}

	// Prober runs the configured probe scripts.
	Prober struct {
		cfg    config.ProbeConfig
		env    []string
		dir    string
		logger *log.Logger
	}

	// Option configures a Prober.
	Option func(*Prober)
)

// Probe queries, one per configured script.
const (
	QueryRuntimeName    Query = "runtime_name"
	QueryRuntimeVersion Query = "runtime_version"
	QueryHostName       Query = "host_name"
	QueryHostVersion    Query = "host_version"
	QueryExtensions     Query = "extensions"
	QueryModules        Query = "modules"
	QuerySymbols        Query = "symbols"
	QueryTopology       Query = "topology"
)

// Error implements the error interface.
func (e *ScriptError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("probe %s: timed out", e.Query)
	case e.Err != nil:
		return fmt.Sprintf("probe %s: %v", e.Query, e.Err)
	default:
		msg := fmt.Sprintf("probe %s: exit status %d", e.Query, e.ExitCode)
		if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
			msg += ": " + stderr
		}
		return msg
	}
}

// Unwrap returns ErrProbeFailed for errors.Is() compatibility.
func (e *ScriptError) Unwrap() error { return ErrProbeFailed }

// WithEnv replaces the environment scripts see. The default is os.Environ().
func WithEnv(environ []string) Option {
	return func(p *Prober) { p.env = environ }
}

// WithDir sets the working directory of the scripts.
func WithDir(dir string) Option {
	return func(p *Prober) { p.dir = dir }
}

// WithLogger sets the logger for per-query debug output.
func WithLogger(logger *log.Logger) Option {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Prober for cfg.
func New(cfg config.ProbeConfig, opts ...Option) *Prober {
	p := &Prober{
		cfg:    cfg,
		logger: log.NewWithOptions(io.Discard, log.Options{Prefix: "probe"}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.env == nil {
		p.env = os.Environ()
	}
	return p
}

// Snapshot runs every configured script and assembles the answers. Scripts
// run one after another, each bounded by the configured timeout.
func (p *Prober) Snapshot(ctx context.Context) (*requirement.Snapshot, error) {
	s := &requirement.Snapshot{}

	var err error
	if s.RuntimeInfo.Name, err = p.line(ctx, QueryRuntimeName, p.cfg.RuntimeName); err != nil {
		return nil, err
	}
	if s.RuntimeInfo.Version, err = p.line(ctx, QueryRuntimeVersion, p.cfg.RuntimeVersion); err != nil {
		return nil, err
	}
	if s.HostInfo.Name, err = p.line(ctx, QueryHostName, p.cfg.HostName); err != nil {
		return nil, err
	}
	if s.HostInfo.Version, err = p.line(ctx, QueryHostVersion, p.cfg.HostVersion); err != nil {
		return nil, err
	}
	if s.Extensions, err = p.lines(ctx, QueryExtensions, p.cfg.Extensions); err != nil {
		return nil, err
	}
	if s.Symbols, err = p.lines(ctx, QuerySymbols, p.cfg.Symbols); err != nil {
		return nil, err
	}

	moduleLines, err := p.lines(ctx, QueryModules, p.cfg.Modules)
	if err != nil {
		return nil, err
	}
	s.Modules = parseModules(moduleLines)

	topology, err := p.line(ctx, QueryTopology, p.cfg.Topology)
	if err != nil {
		return nil, err
	}
	s.Mode = requirement.Topology(topology)
	if err := s.Mode.Validate(); err != nil {
		return nil, &ScriptError{Query: QueryTopology, Err: err}
	}

	return s, nil
}

// line returns the first non-empty output line of script.
func (p *Prober) line(ctx context.Context, q Query, script string) (string, error) {
	lines, err := p.lines(ctx, q, script)
	if err != nil || len(lines) == 0 {
		return "", err
	}
	return lines[0], nil
}

// lines returns the trimmed, non-empty output lines of script. An empty
// script is skipped.
func (p *Prober) lines(ctx context.Context, q Query, script string) ([]string, error) {
	if strings.TrimSpace(script) == "" {
		return nil, nil
	}
	out, err := p.Run(ctx, q, script)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

// Run executes one script and returns its stdout.
func (p *Prober) Run(ctx context.Context, q Query, script string) (string, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(script), string(q))
	if err != nil {
		return "", &ScriptError{Query: q, Err: fmt.Errorf("failed to parse script: %w", err)}
	}

	var stdout, stderr bytes.Buffer
	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(p.env...)),
		interp.StdIO(nil, &stdout, &stderr),
	}
	if p.dir != "" {
		opts = append(opts, interp.Dir(p.dir))
	}
	runner, err := interp.New(opts...)
	if err != nil {
		return "", &ScriptError{Query: q, Err: fmt.Errorf("failed to create interpreter: %w", err)}
	}

	timeout := p.cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err = runner.Run(runCtx, prog)
	p.logger.Debug("probe script finished", "query", q, "duration", time.Since(start), "err", err)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return "", &ScriptError{Query: q, TimedOut: true, Stderr: stderr.String()}
	}
	if err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return "", &ScriptError{Query: q, ExitCode: int(exitStatus), Stderr: stderr.String()}
		}
		return "", &ScriptError{Query: q, Err: err, Stderr: stderr.String()}
	}
	return stdout.String(), nil
}

// parseModules reads "id [version]" lines. Extra fields are ignored.
func parseModules(lines []string) []requirement.Module {
	modules := make([]requirement.Module, 0, len(lines))
	for _, l := range lines {
		fields := strings.Fields(l)
		m := requirement.Module{ID: fields[0]}
		if len(fields) > 1 {
			m.Version = fields[1]
		}
		modules = append(modules, m)
	}
	return modules
}
