// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and the catalog of markdown help
// pages shown when modgate cannot load its inputs or a module is blocked.
package issue
