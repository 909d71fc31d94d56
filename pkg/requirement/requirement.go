// SPDX-License-Identifier: MPL-2.0

package requirement

import (
	"errors"
	"fmt"
)

const (
	// TopologySingle is a single-tenant deployment.
	TopologySingle Topology = "single"
	// TopologyMulti is a multi-tenant deployment.
	TopologyMulti Topology = "multi"
)

// ErrInvalidTopology is returned when a Topology value is not recognized.
var ErrInvalidTopology = errors.New("invalid topology")

type (
	// Requirement is a single checkable precondition.
	//
	// Check may be called any number of times; each call re-derives the
	// bookkeeping that Message reports on. Message must be called after Check
	// to describe what was observed, and never panics.
	Requirement interface {
		// Name is a short stable identifier (e.g. "runtime-version").
		Name() string
		// Check reports whether env satisfies the requirement.
		Check(env Environment) bool
		// Message explains the requirement, including both the expectation and
		// what Check observed.
		Message() string
	}

	// Sectioned is implemented by requirements that report more than one
	// failure category. Renderers present each section as a nested list.
	Sectioned interface {
		Sections() []Section
	}

	// Section is a titled group of failure details.
	Section struct {
		Title string   `json:"title"`
		Items []string `json:"items"`
	}

	// Environment answers the ambient queries requirements need. Implementations
	// must be read-only from the point of view of the requirements.
	Environment interface {
		// Runtime returns the language runtime the module runs on.
		Runtime() Component
		// Host returns the host application the module plugs into.
		Host() Component
		// HasExtension reports whether a runtime extension is loaded.
		HasExtension(name string) bool
		// Sibling returns the declared version of an active sibling module.
		Sibling(id string) (version string, active bool)
		// HasSymbol reports whether a class, function or other symbol exists.
		HasSymbol(name string) bool
		// Topology returns the deployment mode.
		Topology() Topology
	}

	// Component is a named, versioned piece of the environment.
	Component struct {
		// Name is the display name used in messages (e.g. "PHP").
		Name string `json:"name" toml:"name"`
		// Version is the dotted version string as reported by the component.
		Version string `json:"version" toml:"version"`
	}

	// Topology is the deployment mode of the host.
	Topology string

	// InvalidTopologyError is returned when a Topology value is not recognized.
	// It wraps ErrInvalidTopology for errors.Is() compatibility.
	InvalidTopologyError struct {
		Value Topology
	}
)

// Error implements the error interface.
func (e *InvalidTopologyError) Error() string {
	// Topology implements Stringer with display names; report the raw values.
	return fmt.Sprintf("invalid topology %q (valid: %s, %s)", string(e.Value), string(TopologySingle), string(TopologyMulti))
}

// Unwrap returns ErrInvalidTopology for errors.Is() compatibility.
func (e *InvalidTopologyError) Unwrap() error { return ErrInvalidTopology }

// Validate returns an error if the Topology is not one of the defined modes.
// The zero value is treated as single-tenant and is valid.
func (t Topology) Validate() error {
	switch t {
	case "", TopologySingle, TopologyMulti:
		return nil
	default:
		return &InvalidTopologyError{Value: t}
	}
}

// IsMulti reports whether the topology is multi-tenant.
func (t Topology) IsMulti() bool { return t == TopologyMulti }

// String returns the human-readable tenant mode.
func (t Topology) String() string {
	if t.IsMulti() {
		return "multi-tenant"
	}
	return "single-tenant"
}
