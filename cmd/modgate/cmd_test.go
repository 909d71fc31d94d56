// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/invowk/modgate/internal/config"
	"github.com/invowk/modgate/internal/gate"
	"github.com/invowk/modgate/internal/notice"
	"github.com/invowk/modgate/pkg/requirement"
)

const (
	testManifest = `
module: "Test Module"
requires: {
	runtime: "5.3.2"
	host:    "3.8.1"
}
`
	oldHostEnv = `
runtime: {name: "PHP", version: "8.2.0"}
host:    {name: "WordPress", version: "1.0.1"}
`
	newHostEnv = `
runtime: {name: "PHP", version: "8.2.0"}
host:    {name: "WordPress", version: "10.0.1"}
`
)

type (
	staticConfig struct {
		cfg *config.Config
		err error
	}

	stubProber struct {
		snap  *requirement.Snapshot
		err   error
		calls int
	}
)

func (s staticConfig) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.cfg == nil {
		return config.DefaultConfig(), nil
	}
	return s.cfg, nil
}

func (p *stubProber) Snapshot(context.Context, config.ProbeConfig, *log.Logger) (*requirement.Snapshot, error) {
	p.calls++
	return p.snap, p.err
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// runCLI executes the root command with deps and returns captured output.
func runCLI(t *testing.T, deps Dependencies, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	return runCLIContext(t, context.Background(), deps, args...)
}

func runCLIContext(t *testing.T, ctx context.Context, deps Dependencies, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer
	deps.Stdout = &out
	deps.Stderr = &errOut
	if deps.Config == nil {
		deps.Config = staticConfig{}
	}

	root := NewRootCommand(NewApp(deps))
	root.SetArgs(args)
	err = root.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func exitCode(err error) int {
	return exitCodeFor(err)
}

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"blocked", &ExitError{Code: ExitBlocked, Err: errors.New("blocked")}, ExitBlocked},
		{"wrapped server error", fmt.Errorf("serve: %w", &ExitError{Code: ExitServerError}), ExitServerError},
		{"plain error", errors.New(`required flag(s) "manifest" not set`), ExitInputError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestServe_InvalidTokenCount(t *testing.T) {
	t.Parallel()

	manifestPath := writeTestFile(t, "modgate.cue", testManifest)
	envPath := writeTestFile(t, "env.cue", newHostEnv)

	_, stderr, err := runCLI(t, Dependencies{}, "serve", "--manifest", manifestPath, "--env", envPath, "--tokens", "0")
	if code := exitCode(err); code != ExitInputError {
		t.Errorf("exit code = %d, want %d (err: %v)", code, ExitInputError, err)
	}
	if !strings.Contains(stderr, "--tokens must be at least 1") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2025-06-15T10:00:00Z"

		want := "v1.2.3 (commit: abc1234, built: 2025-06-15T10:00:00Z)"
		if got := getVersionString(); got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestCheck_Allowed(t *testing.T) {
	t.Parallel()

	manifestPath := writeTestFile(t, "modgate.cue", testManifest)
	envPath := writeTestFile(t, "env.cue", newHostEnv)

	stdout, _, err := runCLI(t, Dependencies{}, "check", "--manifest", manifestPath, "--env", envPath)
	if err != nil {
		t.Fatalf("check error = %v, want nil", err)
	}
	if !strings.Contains(stdout, "Test Module") || !strings.Contains(stdout, "all 2 requirements satisfied") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestCheck_BlockedWithoutCapture(t *testing.T) {
	t.Parallel()

	manifestPath := writeTestFile(t, "modgate.cue", testManifest)
	envPath := writeTestFile(t, "env.cue", oldHostEnv)

	stdout, stderr, err := runCLI(t, Dependencies{}, "check", "--manifest", manifestPath, "--env", envPath)
	if code := exitCode(err); code != ExitBlocked {
		t.Fatalf("exit code = %d, want %d (err: %v)", code, ExitBlocked, err)
	}
	if !errors.Is(err, gate.ErrRequirementsNotMet) {
		t.Errorf("error = %v, want ErrRequirementsNotMet", err)
	}
	if stdout != "" {
		t.Errorf("blocked check must not write to stdout, got %q", stdout)
	}
	for _, want := range []string{"Module blocked", "Test Module", "WordPress 3.8.1+ Required, Detected 1.0.1"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr should contain %q:\n%s", want, stderr)
		}
	}
}

func TestCheck_Capture(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		check  func(t *testing.T, stdout string)
	}{
		{
			format: "html",
			check: func(t *testing.T, stdout string) {
				t.Helper()
				want := `<div class="error"><p>` + notice.Heading + ` <strong>Test Module</strong></p>` +
					`<ul><li>WordPress 3.8.1+ Required, Detected 1.0.1</li></ul></div>` + "\n"
				if stdout != want {
					t.Errorf("stdout = %q, want %q", stdout, want)
				}
			},
		},
		{
			format: "json",
			check: func(t *testing.T, stdout string) {
				t.Helper()
				var n notice.Notice
				if err := json.Unmarshal([]byte(stdout), &n); err != nil {
					t.Fatalf("stdout is not JSON: %v", err)
				}
				if len(n.Items) != 1 || n.Items[0].Requirement != "host-version" {
					t.Errorf("notice = %+v", n)
				}
			},
		},
		{
			format: "markdown",
			check: func(t *testing.T, stdout string) {
				t.Helper()
				// A buffer is not a terminal, so markdown stays unstyled.
				if !strings.HasPrefix(stdout, "# "+notice.Heading+" **Test Module**") {
					t.Errorf("stdout = %q", stdout)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			manifestPath := writeTestFile(t, "modgate.cue", testManifest)
			envPath := writeTestFile(t, "env.cue", oldHostEnv)

			stdout, stderr, err := runCLI(t, Dependencies{},
				"check", "--manifest", manifestPath, "--env", envPath, "--capture", "--format", tt.format)
			if err != nil {
				t.Fatalf("capture error = %v, want nil", err)
			}
			if stderr != "" {
				t.Errorf("capture must not write to stderr, got %q", stderr)
			}
			tt.check(t, stdout)
		})
	}
}

func TestCheck_CaptureUsesConfigFormat(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.NoticeFormat = notice.FormatHTML

	manifestPath := writeTestFile(t, "modgate.cue", testManifest)
	envPath := writeTestFile(t, "env.cue", oldHostEnv)

	stdout, _, err := runCLI(t, Dependencies{Config: staticConfig{cfg: cfg}},
		"check", "--manifest", manifestPath, "--env", envPath, "--capture")
	if err != nil {
		t.Fatalf("capture error = %v", err)
	}
	if !strings.HasPrefix(stdout, `<div class="error">`) {
		t.Errorf("stdout = %q, want HTML from config notice_format", stdout)
	}
}

func TestCheck_CaptureAllowedWritesNothing(t *testing.T) {
	t.Parallel()

	manifestPath := writeTestFile(t, "modgate.cue", testManifest)
	envPath := writeTestFile(t, "env.cue", newHostEnv)

	stdout, _, err := runCLI(t, Dependencies{}, "check", "--manifest", manifestPath, "--env", envPath, "--capture")
	if err != nil {
		t.Fatalf("check error = %v", err)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want empty", stdout)
	}
}

func TestCheck_ProfilePrecedence(t *testing.T) {
	t.Parallel()

	const minimumManifest = `
module:  "Test Module"
profile: "minimum"
`
	const bareManifest = `module: "Test Module"`

	failingDefault := config.DefaultConfig()
	failingDefault.DefaultProfile = requirement.ProfileFailing

	tests := []struct {
		name     string
		manifest string
		cfg      *config.Config
		args     []string
		want     int
	}{
		{"manifest profile", minimumManifest, nil, nil, 0},
		{"flag overrides manifest", minimumManifest, nil, []string{"--profile", "failing"}, ExitBlocked},
		{"manifest beats config default", minimumManifest, failingDefault, nil, 0},
		{"config default applies without manifest profile", bareManifest, failingDefault, nil, ExitBlocked},
		{"no profile anywhere", bareManifest, nil, nil, 0},
		{"unknown profile flag", bareManifest, nil, []string{"--profile", "legacy"}, ExitInputError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			manifestPath := writeTestFile(t, "modgate.cue", tt.manifest)
			envPath := writeTestFile(t, "env.cue", newHostEnv)
			args := append([]string{"check", "--manifest", manifestPath, "--env", envPath}, tt.args...)

			_, _, err := runCLI(t, Dependencies{Config: staticConfig{cfg: tt.cfg}}, args...)
			if code := exitCode(err); code != tt.want {
				t.Errorf("exit code = %d, want %d (err: %v)", code, tt.want, err)
			}
		})
	}
}

func TestCheck_Probe(t *testing.T) {
	t.Parallel()

	prober := &stubProber{snap: &requirement.Snapshot{
		RuntimeInfo: requirement.Component{Name: "PHP", Version: "8.2.0"},
		HostInfo:    requirement.Component{Name: "WordPress", Version: "6.4.0"},
	}}
	manifestPath := writeTestFile(t, "modgate.cue", testManifest)

	_, _, err := runCLI(t, Dependencies{Prober: prober}, "check", "--manifest", manifestPath, "--probe")
	if err != nil {
		t.Fatalf("check --probe error = %v", err)
	}
	if prober.calls != 1 {
		t.Errorf("prober called %d times, want 1", prober.calls)
	}
}

func TestCheck_InputErrors(t *testing.T) {
	t.Parallel()

	manifestPath := writeTestFile(t, "modgate.cue", testManifest)
	badManifest := writeTestFile(t, "bad.cue", `module: 42`)
	envPath := writeTestFile(t, "env.cue", newHostEnv)
	missing := filepath.Join(t.TempDir(), "missing.cue")

	tests := []struct {
		name   string
		deps   Dependencies
		args   []string
		code   int
		stderr string
	}{
		{
			name:   "missing manifest",
			args:   []string{"--manifest", missing, "--env", envPath},
			code:   ExitInputError,
			stderr: "load manifest",
		},
		{
			name:   "invalid manifest",
			args:   []string{"--manifest", badManifest, "--env", envPath},
			code:   ExitInputError,
			stderr: "module",
		},
		{
			name:   "missing environment",
			args:   []string{"--manifest", manifestPath, "--env", missing},
			code:   ExitInputError,
			stderr: "load environment snapshot",
		},
		{
			name:   "probe failure",
			deps:   Dependencies{Prober: &stubProber{err: errors.New("wp: command not found")}},
			args:   []string{"--manifest", manifestPath, "--probe"},
			code:   ExitInputError,
			stderr: "wp: command not found",
		},
		{
			name:   "invalid notice format",
			args:   []string{"--manifest", manifestPath, "--env", envPath, "--capture", "--format", "pdf"},
			code:   ExitInputError,
			stderr: `invalid notice format "pdf"`,
		},
		{
			name:   "config failure",
			deps:   Dependencies{Config: staticConfig{err: errors.New("broken config")}},
			args:   []string{"--manifest", manifestPath, "--env", envPath},
			code:   ExitInputError,
			stderr: "broken config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, stderr, err := runCLI(t, tt.deps, append([]string{"check"}, tt.args...)...)
			if code := exitCode(err); code != tt.code {
				t.Errorf("exit code = %d, want %d (err: %v)", code, tt.code, err)
			}
			if !strings.Contains(stderr, tt.stderr) {
				t.Errorf("stderr should contain %q:\n%s", tt.stderr, stderr)
			}
		})
	}
}

func TestCheck_FlagErrors(t *testing.T) {
	t.Parallel()

	manifestPath := writeTestFile(t, "modgate.cue", testManifest)
	envPath := writeTestFile(t, "env.cue", newHostEnv)

	tests := []struct {
		name string
		args []string
	}{
		{"no environment source", []string{"--manifest", manifestPath}},
		{"both environment sources", []string{"--manifest", manifestPath, "--env", envPath, "--probe"}},
		{"no manifest", []string{"--env", envPath}},
		{"invalid format", []string{"--manifest", manifestPath, "--env", envPath, "--capture", "--format", "pdf"}},
		{"watch with capture", []string{"--manifest", manifestPath, "--env", envPath, "--watch", "--capture"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := runCLI(t, Dependencies{}, append([]string{"check"}, tt.args...)...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if code := exitCode(err); code != ExitInputError {
				t.Errorf("exit code = %d, want %d (err: %v)", code, ExitInputError, err)
			}
		})
	}
}

func TestCheck_WatchReChecksOnChange(t *testing.T) {
	t.Parallel()

	manifestPath := writeTestFile(t, "modgate.cue", testManifest)
	envPath := writeTestFile(t, "env.cue", oldHostEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		time.Sleep(200 * time.Millisecond)
		if err := os.WriteFile(envPath, []byte(newHostEnv), 0o644); err != nil {
			t.Errorf("rewrite env: %v", err)
		}
	}()

	stdout, stderr, err := runCLIContext(t, ctx, Dependencies{}, "check", "--manifest", manifestPath, "--env", envPath, "--watch")
	if err != nil {
		t.Fatalf("check --watch error = %v, want nil after cancellation", err)
	}
	if !strings.Contains(stderr, "Module blocked!") {
		t.Errorf("stderr = %q, want the initial blocked card", stderr)
	}
	if !strings.Contains(stderr, "changed:") {
		t.Errorf("stderr = %q, want a change notice", stderr)
	}
	if !strings.Contains(stdout, "all 2 requirements satisfied") {
		t.Errorf("stdout = %q, want the re-check to be allowed", stdout)
	}
}

func TestProfiles(t *testing.T) {
	t.Parallel()

	stdout, _, err := runCLI(t, Dependencies{}, "profiles")
	if err != nil {
		t.Fatalf("profiles error = %v", err)
	}
	for _, p := range requirement.Profiles() {
		if !strings.Contains(stdout, string(p)) {
			t.Errorf("profiles output should list %q:\n%s", p, stdout)
		}
	}
}

func TestProfilesShow(t *testing.T) {
	t.Parallel()

	stdout, _, err := runCLI(t, Dependencies{}, "profiles", "show", "modern")
	if err != nil {
		t.Fatalf("profiles show error = %v", err)
	}
	for _, want := range []string{"runtime >= 5.5.0", "host >= 3.8.0", "extensions: mysql, mysqli"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output should contain %q:\n%s", want, stdout)
		}
	}

	_, _, err = runCLI(t, Dependencies{}, "profiles", "show", "legacy")
	if !errors.Is(err, requirement.ErrUnknownProfile) {
		t.Errorf("unknown profile error = %v, want ErrUnknownProfile", err)
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != ExitInputError {
		t.Errorf("unknown profile should be an input error, got %v", err)
	}
}

func TestProbeCommand(t *testing.T) {
	t.Parallel()

	snap := &requirement.Snapshot{
		RuntimeInfo: requirement.Component{Name: "PHP", Version: "8.2.0"},
		HostInfo:    requirement.Component{Name: "WordPress", Version: "6.4.0"},
		Extensions:  []string{"curl"},
		Mode:        requirement.TopologySingle,
	}

	tests := []struct {
		format string
		want   string
	}{
		{"toml", "[runtime]"},
		{"json", `"runtime"`},
		{"cue", "runtime:"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			stdout, _, err := runCLI(t, Dependencies{Prober: &stubProber{snap: snap}}, "probe", "--format", tt.format)
			if err != nil {
				t.Fatalf("probe error = %v", err)
			}
			if !strings.Contains(stdout, tt.want) || !strings.Contains(stdout, "8.2.0") {
				t.Errorf("stdout = %q, want it to contain %q", stdout, tt.want)
			}
		})
	}

	if _, _, err := runCLI(t, Dependencies{Prober: &stubProber{snap: snap}}, "probe", "--format", "yaml"); err == nil {
		t.Error("unsupported format should fail")
	}
}

func TestConfigShow(t *testing.T) {
	t.Parallel()

	stdout, stderr, err := runCLI(t, Dependencies{}, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(stdout, `notice_format:   "text"`) {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, "(using defaults)") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestServerConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	sc := serverConfig(cfg, &serveOptions{port: -1})
	if sc.Host != "127.0.0.1" || sc.Port != 2222 || sc.TokenTTL != cfg.Diagnostics.TokenTTL {
		t.Errorf("serverConfig() = %+v", sc)
	}

	sc = serverConfig(cfg, &serveOptions{host: "0.0.0.0", port: 0})
	if sc.Host != "0.0.0.0" || sc.Port != 0 {
		t.Errorf("overrides not applied: %+v", sc)
	}
}

func TestCaptureEvaluator(t *testing.T) {
	t.Parallel()

	envPath := writeTestFile(t, "env.cue", oldHostEnv)
	m, err := loadManifest(writeTestFile(t, "modgate.cue", testManifest))
	if err != nil {
		t.Fatal(err)
	}

	var logs bytes.Buffer
	app := NewApp(Dependencies{Config: staticConfig{}, Stdout: &logs, Stderr: &logs})
	eval := newCaptureEvaluator(app, config.DefaultConfig(), m, &serveOptions{envPath: envPath}, log.New(&logs))

	// Each session evaluates from scratch; repeated calls agree.
	for range 2 {
		d, err := eval(context.Background(), "Test Module")
		if err != nil {
			t.Fatalf("evaluator error = %v", err)
		}
		if d.Outcome != gate.OutcomeBlock || d.Notice == nil || len(d.Notice.Items) != 1 {
			t.Errorf("decision = %+v", d)
		}
	}

	if _, err := eval(context.Background(), "Other Module"); err == nil {
		t.Error("a token for another module should be refused")
	}
}

func TestRenderBlockedCard_Sections(t *testing.T) {
	t.Parallel()

	sib := requirement.NewSiblings(requirement.SiblingSpec{ID: "woocommerce"})
	sib.Check(&requirement.Snapshot{})
	n := notice.Build("Shop", requirement.NewResultSet(requirement.CheckResult{Requirement: sib}))

	card := RenderBlockedCard(n)
	for _, want := range []string{"Shop", "Failed requirements (1)", sib.Message(), "Not Found: woocommerce", "--capture"} {
		if !strings.Contains(card, want) {
			t.Errorf("card should contain %q:\n%s", want, card)
		}
	}
}
