// SPDX-License-Identifier: MPL-2.0

package requirement

import (
	"fmt"
	"strings"
)

const (
	sectionNotFound        = "Not Found"
	sectionVersionMismatch = "Version Mismatch"
)

type (
	// SiblingRequirement requires other modules to be active, optionally at a
	// minimum version.
	SiblingRequirement struct {
		// Siblings lists the required modules in declaration order.
		Siblings []SiblingSpec

		notFound   []string
		mismatched []string
	}

	// SiblingSpec names one required sibling module.
	SiblingSpec struct {
		// ID identifies the sibling in the host's module registry.
		ID string `json:"id" toml:"id"`
		// MinVersion is optional; empty accepts any active version.
		MinVersion string `json:"min_version,omitempty" toml:"min_version,omitempty"`
	}
)

// NewSiblings returns a requirement on the given sibling modules.
func NewSiblings(specs ...SiblingSpec) *SiblingRequirement {
	return &SiblingRequirement{Siblings: specs}
}

// Name implements Requirement.
func (r *SiblingRequirement) Name() string { return "sibling-modules" }

// Check implements Requirement. Missing siblings and siblings below their
// minimum version are tracked separately.
func (r *SiblingRequirement) Check(env Environment) bool {
	r.notFound = r.notFound[:0]
	r.mismatched = r.mismatched[:0]
	for _, spec := range r.Siblings {
		version, active := env.Sibling(spec.ID)
		if !active {
			r.notFound = append(r.notFound, spec.ID)
			continue
		}
		if spec.MinVersion != "" && !AtLeast(version, spec.MinVersion) {
			r.mismatched = append(r.mismatched,
				fmt.Sprintf("%s %s+ Required, Detected %s", spec.ID, spec.MinVersion, displayVersion(version)))
		}
	}
	return len(r.notFound) == 0 && len(r.mismatched) == 0
}

// Sections implements Sectioned. Only non-empty buckets are returned.
func (r *SiblingRequirement) Sections() []Section {
	var sections []Section
	if len(r.notFound) > 0 {
		sections = append(sections, Section{Title: sectionNotFound, Items: append([]string(nil), r.notFound...)})
	}
	if len(r.mismatched) > 0 {
		sections = append(sections, Section{Title: sectionVersionMismatch, Items: append([]string(nil), r.mismatched...)})
	}
	return sections
}

// Message implements Requirement.
func (r *SiblingRequirement) Message() string {
	sections := r.Sections()
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, s.Title+": "+strings.Join(s.Items, ", "))
	}
	return "Required Modules Not Satisfied: " + strings.Join(parts, "; ")
}
