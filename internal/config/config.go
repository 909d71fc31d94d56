// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/invowk/modgate/internal/issue"
	"github.com/invowk/modgate/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "modgate"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
)

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the modgate configuration directory using platform
// conventions: %APPDATA% on Windows, ~/Library/Application Support on macOS
// and $XDG_CONFIG_HOME (default ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string
	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(configDir, AppName), nil
}

// ConfigFilePath returns the default config file location.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	path := opts.ConfigFilePath
	if path == "" {
		dir := opts.ConfigDirPath
		if dir == "" {
			var err error
			if dir, err = ConfigDir(); err != nil {
				return nil, err
			}
		}
		path = filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
		if !fileExists(path) {
			// No config file: defaults only.
			path = ""
		}
	} else if !fileExists(path) {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Use 'modgate config init' to write a default configuration").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	}

	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Run 'modgate profiles' to list valid profile names").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	cfg.Source = path
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("default_profile", string(d.DefaultProfile))
	v.SetDefault("notice_format", string(d.NoticeFormat))
	v.SetDefault("log_level", string(d.LogLevel))
	v.SetDefault("diagnostics.host", d.Diagnostics.Host)
	v.SetDefault("diagnostics.port", d.Diagnostics.Port)
	v.SetDefault("diagnostics.token_ttl", d.Diagnostics.TokenTTL)
	v.SetDefault("diagnostics.shutdown_timeout", d.Diagnostics.ShutdownTimeout)
	v.SetDefault("probe.timeout", d.Probe.Timeout)
	v.SetDefault("probe.runtime_name", d.Probe.RuntimeName)
	v.SetDefault("probe.runtime_version", d.Probe.RuntimeVersion)
	v.SetDefault("probe.host_name", d.Probe.HostName)
	v.SetDefault("probe.host_version", d.Probe.HostVersion)
	v.SetDefault("probe.extensions", d.Probe.Extensions)
	v.SetDefault("probe.modules", d.Probe.Modules)
	v.SetDefault("probe.symbols", d.Probe.Symbols)
	v.SetDefault("probe.topology", d.Probe.Topology)
}

// loadCUEIntoViper validates the file against #Config and merges it over the
// defaults. Config fields are optional, so values need not be concrete.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := cueutil.ReadFile(path, cueutil.DefaultMaxFileSize)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.DecodeMap(configSchema, data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration to the config
// directory unless a config file already exists. It returns the file path and
// whether a file was written.
func CreateDefaultConfig() (string, bool, error) {
	cfgPath, err := ConfigFilePath()
	if err != nil {
		return "", false, err
	}
	if fileExists(cfgPath) {
		return cfgPath, false, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, true, nil
}

// GenerateCUE renders cfg as a config.cue document that loads back to the
// same values.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// modgate configuration file\n")
	sb.WriteString("// See https://github.com/invowk/modgate for documentation.\n\n")

	fmt.Fprintf(&sb, "default_profile: %q\n", cfg.DefaultProfile)
	fmt.Fprintf(&sb, "notice_format:   %q\n", cfg.NoticeFormat)
	fmt.Fprintf(&sb, "log_level:       %q\n", cfg.LogLevel)

	sb.WriteString("\ndiagnostics: {\n")
	fmt.Fprintf(&sb, "\thost:             %q\n", cfg.Diagnostics.Host)
	fmt.Fprintf(&sb, "\tport:             %d\n", cfg.Diagnostics.Port)
	fmt.Fprintf(&sb, "\ttoken_ttl:        %q\n", cfg.Diagnostics.TokenTTL.String())
	fmt.Fprintf(&sb, "\tshutdown_timeout: %q\n", cfg.Diagnostics.ShutdownTimeout.String())
	sb.WriteString("}\n")

	sb.WriteString("\n// Each probe script prints its answer on stdout. Leave a script empty to skip it.\n")
	sb.WriteString("probe: {\n")
	fmt.Fprintf(&sb, "\ttimeout:         %q\n", cfg.Probe.Timeout.String())
	fmt.Fprintf(&sb, "\truntime_name:    %q\n", cfg.Probe.RuntimeName)
	fmt.Fprintf(&sb, "\truntime_version: %q\n", cfg.Probe.RuntimeVersion)
	fmt.Fprintf(&sb, "\thost_name:       %q\n", cfg.Probe.HostName)
	fmt.Fprintf(&sb, "\thost_version:    %q\n", cfg.Probe.HostVersion)
	fmt.Fprintf(&sb, "\textensions:      %q\n", cfg.Probe.Extensions)
	fmt.Fprintf(&sb, "\tmodules:         %q\n", cfg.Probe.Modules)
	fmt.Fprintf(&sb, "\tsymbols:         %q\n", cfg.Probe.Symbols)
	fmt.Fprintf(&sb, "\ttopology:        %q\n", cfg.Probe.Topology)
	sb.WriteString("}\n")

	return sb.String()
}
