// SPDX-License-Identifier: MPL-2.0

package requirement

import (
	"fmt"
	"strings"
)

// ExtensionRequirement requires a set of runtime extensions to be loaded.
type ExtensionRequirement struct {
	// Extensions lists the required extension names in declaration order.
	Extensions []string

	runtimeName string
	notFound    []string
}

// NewExtensions returns a requirement on the given runtime extensions.
func NewExtensions(names ...string) *ExtensionRequirement {
	return &ExtensionRequirement{Extensions: names}
}

// Name implements Requirement.
func (r *ExtensionRequirement) Name() string { return "runtime-extensions" }

// Check implements Requirement. Every extension is inspected on every call so
// that NotFound is complete, not just the first miss.
func (r *ExtensionRequirement) Check(env Environment) bool {
	r.runtimeName = env.Runtime().Name
	r.notFound = r.notFound[:0]
	for _, ext := range r.Extensions {
		if !env.HasExtension(ext) {
			r.notFound = append(r.notFound, ext)
		}
	}
	return len(r.notFound) == 0
}

// NotFound returns the extensions missing at the last Check.
func (r *ExtensionRequirement) NotFound() []string {
	return append([]string(nil), r.notFound...)
}

// Message implements Requirement.
func (r *ExtensionRequirement) Message() string {
	subject := r.runtimeName
	if subject == "" {
		subject = SubjectRuntime.String()
	}
	return fmt.Sprintf("%s Extensions Not Found: %s (Required: %s)",
		subject, strings.Join(r.notFound, ", "), strings.Join(r.Extensions, ", "))
}
