// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/invowk/modgate/internal/notice"
	"github.com/invowk/modgate/pkg/requirement"
)

const (
	// LogLevelDebug logs evaluation details.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs blocked activations and server events.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs only problems.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs only failures.
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level written by the CLI logger.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidConfigError collects every invalid field of a Config.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the effective modgate configuration.
	Config struct {
		// DefaultProfile applies when neither the command line nor the manifest
		// names a profile.
		DefaultProfile requirement.Profile `json:"default_profile" mapstructure:"default_profile"`
		// NoticeFormat is the default output format of "check --capture".
		NoticeFormat notice.Format `json:"notice_format" mapstructure:"notice_format"`
		// LogLevel is the CLI log level. --verbose forces debug.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// Diagnostics configures the SSH capture endpoint.
		Diagnostics DiagnosticsConfig `json:"diagnostics" mapstructure:"diagnostics"`
		// Probe configures the live environment probe.
		Probe ProbeConfig `json:"probe" mapstructure:"probe"`

		// Source is the file the configuration was read from, or empty when
		// only defaults apply.
		Source string `json:"-" mapstructure:"-"`
	}

	// DiagnosticsConfig configures the SSH capture endpoint.
	DiagnosticsConfig struct {
		Host            string        `json:"host" mapstructure:"host"`
		Port            int           `json:"port" mapstructure:"port"`
		TokenTTL        time.Duration `json:"token_ttl" mapstructure:"token_ttl"`
		ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	}

	// ProbeConfig holds the shell scripts the probe runs. Each script prints
	// its answer on stdout. An empty script skips that query.
	ProbeConfig struct {
		// Timeout bounds each script.
		Timeout        time.Duration `json:"timeout" mapstructure:"timeout"`
		RuntimeName    string        `json:"runtime_name" mapstructure:"runtime_name"`
		RuntimeVersion string        `json:"runtime_version" mapstructure:"runtime_version"`
		HostName       string        `json:"host_name" mapstructure:"host_name"`
		HostVersion    string        `json:"host_version" mapstructure:"host_version"`
		// Extensions prints one extension name per line.
		Extensions string `json:"extensions" mapstructure:"extensions"`
		// Modules prints one active module per line as "id [version]".
		Modules string `json:"modules" mapstructure:"modules"`
		// Symbols prints one defined symbol per line.
		Symbols string `json:"symbols" mapstructure:"symbols"`
		// Topology prints "single" or "multi".
		Topology string `json:"topology" mapstructure:"topology"`
	}
)

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Validate returns an error if the LogLevel is not one of the defined levels.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return &InvalidLogLevelError{Value: l}
	}
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks the values the CUE schema cannot: cross-package enums
// after defaults are applied and positive durations.
func (c *Config) Validate() error {
	var errs []error
	if c.DefaultProfile != "" && c.DefaultProfile != requirement.ProfileCustom {
		if _, err := requirement.NewProfileSet(c.DefaultProfile); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.NoticeFormat.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.LogLevel.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Diagnostics.Port < 0 || c.Diagnostics.Port > 65535 {
		errs = append(errs, fmt.Errorf("diagnostics.port %d out of range", c.Diagnostics.Port))
	}
	if c.Diagnostics.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("diagnostics.token_ttl must be positive, got %s", c.Diagnostics.TokenTTL))
	}
	if c.Probe.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("probe.timeout must be positive, got %s", c.Probe.Timeout))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// DefaultConfig returns the built-in configuration. The probe defaults
// target a PHP runtime hosting WordPress through WP-CLI.
func DefaultConfig() *Config {
	return &Config{
		DefaultProfile: "",
		NoticeFormat:   notice.FormatText,
		LogLevel:       LogLevelInfo,
		Diagnostics: DiagnosticsConfig{
			Host:            "127.0.0.1",
			Port:            2222,
			TokenTTL:        15 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Probe: ProbeConfig{
			Timeout:        10 * time.Second,
			RuntimeName:    "echo PHP",
			RuntimeVersion: "php -r 'echo PHP_VERSION;'",
			HostName:       "echo WordPress",
			HostVersion:    "wp core version",
			Extensions:     "php -m | grep -v '^\\['",
			Modules:        "wp plugin list --status=active --fields=name,version --format=csv | tail -n +2 | tr ',' ' '",
			Symbols:        "",
			Topology:       "wp eval 'echo is_multisite() ? \"multi\" : \"single\";'",
		},
	}
}
