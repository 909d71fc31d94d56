// SPDX-License-Identifier: MPL-2.0

// Package probe builds an environment snapshot of the live system by running
// small shell scripts in the embedded mvdan/sh interpreter.
//
// Each query (runtime version, loaded extensions, active modules, ...) is one
// script from the probe configuration. Scripts print their answer on stdout;
// a non-zero exit status or a timeout fails the whole probe.
package probe
