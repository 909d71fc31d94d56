// SPDX-License-Identifier: MPL-2.0

package requirement

import (
	"errors"
	"strings"
	"testing"
)

func testEnv() *Snapshot {
	return &Snapshot{
		RuntimeInfo: Component{Name: "PHP", Version: "7.4.3"},
		HostInfo:    Component{Name: "WordPress", Version: "5.0.0"},
		Extensions:  []string{"ctype", "json", "mbstring"},
		Modules: []Module{
			{ID: "woocommerce", Version: "8.1.0"},
			{ID: "akismet", Version: "4.0.0"},
			{ID: "unversioned"},
		},
		Symbols: []string{"WP_Query", "wp_enqueue_script"},
		Mode:    TopologySingle,
	}
}

func TestVersionRequirement_Runtime(t *testing.T) {
	t.Parallel()

	t.Run("not met", func(t *testing.T) {
		t.Parallel()
		req := NewRuntimeVersion("10.1.1")
		if req.Check(testEnv()) {
			t.Error("Check() = true, want false")
		}
		msg := req.Message()
		if msg != "PHP 10.1.1+ Required, Detected 7.4.3" {
			t.Errorf("Message() = %q", msg)
		}
	})

	t.Run("met", func(t *testing.T) {
		t.Parallel()
		req := NewRuntimeVersion("5.3.2")
		if !req.Check(testEnv()) {
			t.Error("Check() = false, want true")
		}
	})
}

func TestVersionRequirement_Host(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		host    string
		minimum string
		want    bool
	}{
		{name: "old host", host: "1.0.0", minimum: "3.8.1", want: false},
		{name: "new host", host: "5.0.0", minimum: "4.2.1", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := testEnv()
			env.HostInfo.Version = tt.host
			req := NewHostVersion(tt.minimum)
			if got := req.Check(env); got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
			msg := req.Message()
			if !strings.Contains(msg, tt.minimum) || !strings.Contains(msg, tt.host) {
				t.Errorf("Message() = %q, want both %q and %q", msg, tt.minimum, tt.host)
			}
			if !strings.HasPrefix(msg, "WordPress ") {
				t.Errorf("Message() = %q, want WordPress subject", msg)
			}
		})
	}
}

func TestVersionRequirement_MessageBeforeCheck(t *testing.T) {
	t.Parallel()

	req := NewHostVersion("3.5.0")
	if got, want := req.Message(), "Host 3.5.0+ Required, Detected unknown"; got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
}

func TestVersionRequirement_UnnamedComponent(t *testing.T) {
	t.Parallel()

	req := NewRuntimeVersion("1.0.0")
	req.Check(&Snapshot{RuntimeInfo: Component{Version: "0.9"}})
	if got, want := req.Message(), "Runtime 1.0.0+ Required, Detected 0.9"; got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
}

func TestExtensionRequirement(t *testing.T) {
	t.Parallel()

	t.Run("absent extensions", func(t *testing.T) {
		t.Parallel()
		req := NewExtensions("foo", "bar")
		if req.Check(testEnv()) {
			t.Fatal("Check() = true, want false")
		}
		msg := req.Message()
		for _, want := range []string{"foo", "bar", "PHP Extensions Not Found"} {
			if !strings.Contains(msg, want) {
				t.Errorf("Message() = %q, missing %q", msg, want)
			}
		}
	})

	t.Run("present extensions", func(t *testing.T) {
		t.Parallel()
		req := NewExtensions("ctype", "json")
		if !req.Check(testEnv()) {
			t.Fatal("Check() = false, want true")
		}
	})

	t.Run("full scan reports every miss", func(t *testing.T) {
		t.Parallel()
		req := NewExtensions("foo", "json", "bar", "baz")
		req.Check(testEnv())
		got := req.NotFound()
		want := []string{"foo", "bar", "baz"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("NotFound() = %v, want %v", got, want)
		}
	})

	t.Run("recheck resets bookkeeping", func(t *testing.T) {
		t.Parallel()
		req := NewExtensions("foo")
		env := testEnv()
		req.Check(env)
		env.Extensions = append(env.Extensions, "foo")
		if !req.Check(env) {
			t.Fatal("second Check() = false, want true")
		}
		if len(req.NotFound()) != 0 {
			t.Errorf("NotFound() = %v, want empty", req.NotFound())
		}
	})

	t.Run("empty list is satisfied", func(t *testing.T) {
		t.Parallel()
		if !NewExtensions().Check(testEnv()) {
			t.Error("empty extension list should be satisfied")
		}
	})
}

func TestSiblingRequirement(t *testing.T) {
	t.Parallel()

	t.Run("all present", func(t *testing.T) {
		t.Parallel()
		req := NewSiblings(
			SiblingSpec{ID: "woocommerce", MinVersion: "8.0.0"},
			SiblingSpec{ID: "unversioned"},
		)
		if !req.Check(testEnv()) {
			t.Errorf("Check() = false, message %q", req.Message())
		}
		if len(req.Sections()) != 0 {
			t.Errorf("Sections() = %v, want none", req.Sections())
		}
	})

	t.Run("missing and mismatched tracked separately", func(t *testing.T) {
		t.Parallel()
		req := NewSiblings(
			SiblingSpec{ID: "jetpack"},
			SiblingSpec{ID: "akismet", MinVersion: "5.0.0"},
			SiblingSpec{ID: "woocommerce", MinVersion: "8.0.0"},
			SiblingSpec{ID: "yoast", MinVersion: "1.0.0"},
		)
		if req.Check(testEnv()) {
			t.Fatal("Check() = true, want false")
		}

		sections := req.Sections()
		if len(sections) != 2 {
			t.Fatalf("len(Sections()) = %d, want 2", len(sections))
		}
		if sections[0].Title != "Not Found" || strings.Join(sections[0].Items, ",") != "jetpack,yoast" {
			t.Errorf("not-found section = %+v", sections[0])
		}
		if sections[1].Title != "Version Mismatch" || len(sections[1].Items) != 1 ||
			sections[1].Items[0] != "akismet 5.0.0+ Required, Detected 4.0.0" {
			t.Errorf("mismatch section = %+v", sections[1])
		}

		want := "Required Modules Not Satisfied: Not Found: jetpack, yoast; Version Mismatch: akismet 5.0.0+ Required, Detected 4.0.0"
		if got := req.Message(); got != want {
			t.Errorf("Message() = %q, want %q", got, want)
		}
	})

	t.Run("unversioned sibling fails a minimum", func(t *testing.T) {
		t.Parallel()
		req := NewSiblings(SiblingSpec{ID: "unversioned", MinVersion: "1.0.0"})
		if req.Check(testEnv()) {
			t.Fatal("Check() = true, want false")
		}
		if !strings.Contains(req.Message(), "Detected unknown") {
			t.Errorf("Message() = %q", req.Message())
		}
	})
}

func TestSymbolRequirement(t *testing.T) {
	t.Parallel()

	req := NewSymbols(map[string]string{
		"WP_Query":      "WP_Query class is required",
		"Missing_Class": "Missing_Class from the Foo plugin is required",
		"another_fn":    "another_fn() must be defined",
	})
	if req.Check(testEnv()) {
		t.Fatal("Check() = true, want false")
	}

	want := "Required Symbols Not Found: Missing_Class from the Foo plugin is required; another_fn() must be defined"
	if got := req.Message(); got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
	if strings.Contains(req.Message(), "WP_Query") {
		t.Error("present symbol should not be reported")
	}

	if !NewSymbols(nil).Check(testEnv()) {
		t.Error("empty symbol map should be satisfied")
	}
}

func TestTopologyRequirement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		multiTenant bool
		mode        Topology
		want        bool
		wantMsg     string
	}{
		{
			name: "single expected single", multiTenant: false, mode: TopologySingle, want: true,
			wantMsg: "This module is not for multi-tenant deployments, Detected single-tenant",
		},
		{
			name: "multi expected single", multiTenant: true, mode: TopologySingle, want: false,
			wantMsg: "This module is intended for multi-tenant deployments, Detected single-tenant",
		},
		{
			name: "single expected multi", multiTenant: false, mode: TopologyMulti, want: false,
			wantMsg: "This module is not for multi-tenant deployments, Detected multi-tenant",
		},
		{
			name: "unset mode is single", multiTenant: true, mode: "", want: false,
			wantMsg: "This module is intended for multi-tenant deployments, Detected single-tenant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := testEnv()
			env.Mode = tt.mode
			req := NewTopology(tt.multiTenant)
			if got := req.Check(env); got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
			if got := req.Message(); got != tt.wantMsg {
				t.Errorf("Message() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestTopology_Validate(t *testing.T) {
	t.Parallel()

	for _, valid := range []Topology{"", TopologySingle, TopologyMulti} {
		if err := valid.Validate(); err != nil {
			t.Errorf("Topology(%q).Validate() = %v", valid, err)
		}
	}

	err := Topology("cluster").Validate()
	if !errors.Is(err, ErrInvalidTopology) {
		t.Fatalf("Validate() = %v, want ErrInvalidTopology", err)
	}
	var topoErr *InvalidTopologyError
	if !errors.As(err, &topoErr) || topoErr.Value != "cluster" {
		t.Errorf("errors.As() = %v", topoErr)
	}
	if want := `invalid topology "cluster" (valid: single, multi)`; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
