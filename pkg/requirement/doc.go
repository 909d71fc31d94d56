// SPDX-License-Identifier: MPL-2.0

// Package requirement declares the preconditions a pluggable module needs
// before it may activate inside a host application, and evaluates them against
// an injected, read-only Environment.
//
// A Requirement reports pass/fail through Check and explains itself through
// Message. A Set groups requirements for one compatibility profile, evaluates
// every one of them in declaration order (a failing requirement never hides the
// ones after it) and caches the ordered ResultSet.
//
//	set, err := requirement.NewProfileSet(requirement.ProfileModern)
//	if err != nil {
//		return err
//	}
//	if !set.Satisfied(env) {
//		for _, r := range set.Results().Failed() {
//			fmt.Println(r.Requirement.Message())
//		}
//	}
//
// Nothing in this package performs I/O. Environments are supplied by the
// caller, either as a decoded Snapshot or as a custom implementation backed by
// the host.
package requirement
