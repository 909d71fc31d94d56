// SPDX-License-Identifier: MPL-2.0

// Package sshserver provides the capture diagnostics endpoint, an SSH server
// built on the Wish library.
//
// Capture mode lets an operator see why a module would be blocked without
// anything being written to the host's output. The server authenticates
// sessions with single-use tokens bound to one module; each authenticated
// session evaluates that module's requirement set in capture mode and writes
// the rendered notice back over the session.
package sshserver
