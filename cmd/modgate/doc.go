// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for modgate.
//
// The root command wires configuration, logging and the environment sources
// into the check, profiles, probe, serve and config subcommands. Handlers
// write through the App's stdout/stderr so tests can capture output.
package cmd
