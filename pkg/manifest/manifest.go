// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	_ "embed"
	"fmt"

	"github.com/invowk/modgate/pkg/cueutil"
	"github.com/invowk/modgate/pkg/requirement"
)

//go:embed manifest_schema.cue
var manifestSchema []byte

type (
	// Manifest declares a gated module and its requirements.
	Manifest struct {
		// Module is the display name used in notices.
		Module string `json:"module" toml:"module"`
		// Version is the module's own version. It is informational.
		Version string `json:"version,omitempty" toml:"version,omitempty"`
		// Profile selects a built-in requirement profile whose checks run
		// before the ones in Requires.
		Profile requirement.Profile `json:"profile,omitempty" toml:"profile,omitempty"`
		// Requires lists module-specific requirements.
		Requires *Requires `json:"requires,omitempty" toml:"requires,omitempty"`

		// Path is the file the manifest was loaded from.
		Path string `json:"-" toml:"-"`
	}

	// Requires holds the module-specific requirements of a manifest.
	Requires struct {
		Runtime     string                    `json:"runtime,omitempty" toml:"runtime,omitempty"`
		Host        string                    `json:"host,omitempty" toml:"host,omitempty"`
		Extensions  []string                  `json:"extensions,omitempty" toml:"extensions,omitempty"`
		Modules     []requirement.SiblingSpec `json:"modules,omitempty" toml:"modules,omitempty"`
		Symbols     map[string]string         `json:"symbols,omitempty" toml:"symbols,omitempty"`
		MultiTenant *bool                     `json:"multi_tenant,omitempty" toml:"multi_tenant,omitempty"`
	}
)

// LoadManifest reads and validates the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := cueutil.ReadFile(path, cueutil.DefaultMaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data, path)
}

// ParseManifest validates manifest content. The format is taken from the
// extension of path.
func ParseManifest(data []byte, path string) (*Manifest, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	input, err := toCUEInput(data, format, path)
	if err != nil {
		return nil, err
	}

	result, err := cueutil.ParseAndDecode[Manifest](manifestSchema, input, "#Manifest", cueutil.WithFilename(path))
	if err != nil {
		return nil, err
	}

	m := result.Value
	m.Path = path
	return m, nil
}

// BuildSet returns a fresh requirement set for the manifest. Profile
// requirements come first, followed by Requires in the order runtime, host,
// extensions, modules, symbols, topology.
//
// A profile given as override replaces the manifest's own profile.
func (m *Manifest) BuildSet(override requirement.Profile) (*requirement.Set, error) {
	profile := m.Profile
	if override != "" {
		profile = override
	}

	set := requirement.NewSet(requirement.ProfileCustom)
	if profile != "" && profile != requirement.ProfileCustom {
		var err error
		if set, err = requirement.NewProfileSet(profile); err != nil {
			return nil, fmt.Errorf("manifest %s: %w", m.Module, err)
		}
	}

	r := m.Requires
	if r == nil {
		return set, nil
	}
	if r.Runtime != "" {
		set.Add(requirement.NewRuntimeVersion(r.Runtime))
	}
	if r.Host != "" {
		set.Add(requirement.NewHostVersion(r.Host))
	}
	if len(r.Extensions) > 0 {
		set.Add(requirement.NewExtensions(r.Extensions...))
	}
	if len(r.Modules) > 0 {
		set.Add(requirement.NewSiblings(r.Modules...))
	}
	if len(r.Symbols) > 0 {
		set.Add(requirement.NewSymbols(r.Symbols))
	}
	if r.MultiTenant != nil {
		set.Add(requirement.NewTopology(*r.MultiTenant))
	}
	return set, nil
}
