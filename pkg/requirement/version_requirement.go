// SPDX-License-Identifier: MPL-2.0

package requirement

import "fmt"

const (
	// SubjectRuntime compares against Environment.Runtime.
	SubjectRuntime Subject = iota
	// SubjectHost compares against Environment.Host.
	SubjectHost
)

type (
	// Subject selects which environment component a VersionRequirement inspects.
	Subject int

	// VersionRequirement requires a minimum version of the runtime or the host.
	VersionRequirement struct {
		// Subject selects the component whose version is compared.
		Subject Subject
		// Minimum is the lowest accepted version. Empty means any version.
		Minimum string

		observed Component
	}
)

// NewRuntimeVersion returns a requirement on the runtime version.
func NewRuntimeVersion(minimum string) *VersionRequirement {
	return &VersionRequirement{Subject: SubjectRuntime, Minimum: minimum}
}

// NewHostVersion returns a requirement on the host application version.
func NewHostVersion(minimum string) *VersionRequirement {
	return &VersionRequirement{Subject: SubjectHost, Minimum: minimum}
}

// String returns the fallback display label for the subject.
func (s Subject) String() string {
	if s == SubjectHost {
		return "Host"
	}
	return "Runtime"
}

// Name implements Requirement.
func (r *VersionRequirement) Name() string {
	if r.Subject == SubjectHost {
		return "host-version"
	}
	return "runtime-version"
}

// Check implements Requirement.
func (r *VersionRequirement) Check(env Environment) bool {
	if r.Subject == SubjectHost {
		r.observed = env.Host()
	} else {
		r.observed = env.Runtime()
	}
	return AtLeast(r.observed.Version, r.Minimum)
}

// Message implements Requirement.
func (r *VersionRequirement) Message() string {
	return fmt.Sprintf("%s %s+ Required, Detected %s", r.label(), r.Minimum, displayVersion(r.observed.Version))
}

// Observed returns the component seen by the last Check.
func (r *VersionRequirement) Observed() Component { return r.observed }

func (r *VersionRequirement) label() string {
	if r.observed.Name != "" {
		return r.observed.Name
	}
	return r.Subject.String()
}
