// SPDX-License-Identifier: MPL-2.0

package requirement

import "slices"

type (
	// Snapshot is a plain-data Environment. It is what environment files decode
	// into and what the live probe produces.
	Snapshot struct {
		RuntimeInfo Component `json:"runtime" toml:"runtime"`
		HostInfo    Component `json:"host" toml:"host"`
		Extensions  []string  `json:"extensions,omitempty" toml:"extensions,omitempty"`
		Modules     []Module  `json:"modules,omitempty" toml:"modules,omitempty"`
		Symbols     []string  `json:"symbols,omitempty" toml:"symbols,omitempty"`
		Mode        Topology  `json:"topology,omitempty" toml:"topology,omitempty"`
	}

	// Module is an active sibling module and its declared version.
	Module struct {
		ID      string `json:"id" toml:"id"`
		Version string `json:"version,omitempty" toml:"version,omitempty"`
	}
)

var _ Environment = (*Snapshot)(nil)

// Runtime implements Environment.
func (s *Snapshot) Runtime() Component { return s.RuntimeInfo }

// Host implements Environment.
func (s *Snapshot) Host() Component { return s.HostInfo }

// HasExtension implements Environment. Extension names are matched exactly.
func (s *Snapshot) HasExtension(name string) bool {
	return slices.Contains(s.Extensions, name)
}

// Sibling implements Environment.
func (s *Snapshot) Sibling(id string) (string, bool) {
	for _, m := range s.Modules {
		if m.ID == id {
			return m.Version, true
		}
	}
	return "", false
}

// HasSymbol implements Environment.
func (s *Snapshot) HasSymbol(name string) bool {
	return slices.Contains(s.Symbols, name)
}

// Topology implements Environment. An unset mode is single-tenant.
func (s *Snapshot) Topology() Topology {
	if s.Mode == "" {
		return TopologySingle
	}
	return s.Mode
}
