// SPDX-License-Identifier: MPL-2.0

// Package config loads modgate's configuration.
//
// The configuration file is CUE, validated against the embedded #Config
// schema and merged into Viper on top of the built-in defaults. Every key is
// optional.
package config
