// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/invowk/modgate/pkg/cueutil"
	"github.com/invowk/modgate/pkg/requirement"
)

const cueManifest = `
module:  "Shop Connector"
version: "2.1.0"
profile: "minimum"
requires: {
	runtime:    "7.4.0"
	extensions: ["curl", "json"]
	modules: [
		{id: "woocommerce", min_version: "8.0.0"},
		{id: "akismet"},
	]
	symbols: {"WC_Order": "WooCommerce order API"}
	multi_tenant: false
}
`

const tomlManifest = `
module = "Shop Connector"
profile = "minimum"

[requires]
runtime = "7.4.0"
extensions = ["curl", "json"]
multi_tenant = false

[[requires.modules]]
id = "woocommerce"
min_version = "8.0.0"

[[requires.modules]]
id = "akismet"

[requires.symbols]
WC_Order = "WooCommerce order API"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadManifest_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "cue", file: "modgate.cue", content: cueManifest},
		{name: "toml", file: "modgate.toml", content: tomlManifest},
		{
			name: "json",
			file: "modgate.json",
			content: `{
  "module": "Shop Connector",
  "profile": "minimum",
  "requires": {
    "runtime": "7.4.0",
    "extensions": ["curl", "json"],
    "modules": [{"id": "woocommerce", "min_version": "8.0.0"}, {"id": "akismet"}],
    "symbols": {"WC_Order": "WooCommerce order API"},
    "multi_tenant": false
  }
}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeFile(t, tt.file, tt.content)
			m, err := LoadManifest(path)
			if err != nil {
				t.Fatalf("LoadManifest() error = %v", err)
			}
			if m.Module != "Shop Connector" || m.Profile != requirement.ProfileMinimum {
				t.Errorf("manifest = %+v", m)
			}
			if m.Path != path {
				t.Errorf("Path = %q, want %q", m.Path, path)
			}
			r := m.Requires
			if r == nil {
				t.Fatal("Requires = nil")
			}
			if r.Runtime != "7.4.0" || len(r.Extensions) != 2 || len(r.Modules) != 2 {
				t.Errorf("requires = %+v", r)
			}
			if r.Modules[0].MinVersion != "8.0.0" || r.Modules[1].MinVersion != "" {
				t.Errorf("modules = %+v", r.Modules)
			}
			if r.MultiTenant == nil || *r.MultiTenant {
				t.Errorf("MultiTenant = %v, want false", r.MultiTenant)
			}
		})
	}
}

func TestParseManifest_SchemaErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		file     string
		content  string
		wantPath string
	}{
		{name: "missing module", file: "m.cue", content: `profile: "minimum"`, wantPath: "module"},
		{name: "unknown profile", file: "m.cue", content: `module: "x", profile: "legacy"`, wantPath: "profile"},
		{
			name:     "bad sibling version",
			file:     "m.cue",
			content:  `module: "x", requires: modules: [{id: "a"}, {id: "b", min_version: "latest"}]`,
			wantPath: "requires.modules[1].min_version",
		},
		{
			name:     "toml type error",
			file:     "m.toml",
			content:  "module = \"x\"\n[requires]\nmulti_tenant = \"yes\"\n",
			wantPath: "requires.multi_tenant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseManifest([]byte(tt.content), tt.file)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantPath) {
				t.Errorf("error should contain %q, got: %v", tt.wantPath, err)
			}
			if !strings.Contains(err.Error(), tt.file) {
				t.Errorf("error should contain file name, got: %v", err)
			}
		})
	}
}

func TestParseManifest_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := ParseManifest([]byte(`module: "x", require: {}`), "m.cue")
	var verr *cueutil.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *cueutil.ValidationError, got %v", err)
	}
}

func TestParseManifest_TOMLSyntaxError(t *testing.T) {
	t.Parallel()

	_, err := ParseManifest([]byte("module = \n"), "broken.toml")
	if err == nil || !strings.Contains(err.Error(), "broken.toml:1") {
		t.Errorf("expected positioned TOML error, got %v", err)
	}
}

func TestParseManifest_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := ParseManifest([]byte(`module: x`), "modgate.yaml")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoadManifest_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadManifest(filepath.Join(t.TempDir(), "absent.cue"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestBuildSet_Order(t *testing.T) {
	t.Parallel()

	m, err := ParseManifest([]byte(cueManifest), "modgate.cue")
	if err != nil {
		t.Fatal(err)
	}
	set, err := m.BuildSet("")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"runtime-version", "host-version", // minimum profile
		"runtime-version", "runtime-extensions", "sibling-modules", "symbols", "topology",
	}
	reqs := set.Requirements()
	if len(reqs) != len(want) {
		t.Fatalf("len(Requirements()) = %d, want %d", len(reqs), len(want))
	}
	for i, r := range reqs {
		if r.Name() != want[i] {
			t.Errorf("requirement[%d] = %s, want %s", i, r.Name(), want[i])
		}
	}
	if set.Profile() != requirement.ProfileMinimum {
		t.Errorf("Profile() = %s", set.Profile())
	}
}

func TestBuildSet_ProfileOverride(t *testing.T) {
	t.Parallel()

	m := &Manifest{Module: "x", Profile: requirement.ProfileMinimum}

	set, err := m.BuildSet(requirement.ProfileFailing)
	if err != nil {
		t.Fatal(err)
	}
	if set.Profile() != requirement.ProfileFailing {
		t.Errorf("Profile() = %s, want failing", set.Profile())
	}

	if _, err := m.BuildSet("legacy"); !errors.Is(err, requirement.ErrUnknownProfile) {
		t.Errorf("err = %v, want ErrUnknownProfile", err)
	}
}

func TestBuildSet_NoProfileNoRequires(t *testing.T) {
	t.Parallel()

	set, err := (&Manifest{Module: "x"}).BuildSet("")
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Requirements()) != 0 || set.Profile() != requirement.ProfileCustom {
		t.Errorf("set = %v / %s", set.Requirements(), set.Profile())
	}
	if !set.Satisfied(&requirement.Snapshot{}) {
		t.Error("empty set should be satisfied")
	}
}

func TestBuildSet_FreshInstances(t *testing.T) {
	t.Parallel()

	m, err := ParseManifest([]byte(cueManifest), "modgate.cue")
	if err != nil {
		t.Fatal(err)
	}
	a, _ := m.BuildSet("")
	b, _ := m.BuildSet("")
	if a.Requirements()[2] == b.Requirements()[2] {
		t.Error("BuildSet must create new requirement instances")
	}
}
