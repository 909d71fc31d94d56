// SPDX-License-Identifier: MPL-2.0

package requirement

import (
	"fmt"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// unknownVersion is reported when no version has been observed yet.
const unknownVersion = "unknown"

// ParseVersion parses a dotted version string. A leading "v" or "go" prefix
// (as in "v1.2.3" or "go1.22.4") and surrounding whitespace are ignored.
func ParseVersion(s string) (*goversion.Version, error) {
	normalized := normalizeVersion(s)
	if normalized == "" {
		return nil, fmt.Errorf("empty version string")
	}
	v, err := goversion.NewVersion(normalized)
	if err != nil {
		return nil, fmt.Errorf("parse version %q: %w", s, err)
	}
	return v, nil
}

// AtLeast reports whether observed >= minimum under numeric segment-wise
// ordering (5.5.0 >= 5.3.2, 10.0.1 >= 3.8.1). An empty minimum is always
// satisfied; an observed version that cannot be parsed never is.
func AtLeast(observed, minimum string) bool {
	if strings.TrimSpace(minimum) == "" {
		return true
	}
	minV, err := ParseVersion(minimum)
	if err != nil {
		return false
	}
	obsV, err := ParseVersion(observed)
	if err != nil {
		return false
	}
	return obsV.Compare(minV) >= 0
}

// normalizeVersion strips prefixes and distribution package revisions.
// A hyphen followed by a digit ("5.5.9-1ubuntu4.14", "7.4.3-4+deb11u1") is a
// packaging revision of the same release, not a prerelease, so it is dropped.
// Prereleases like "1.0.0-beta" are kept.
func normalizeVersion(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "go")
	s = strings.TrimPrefix(s, "v")
	if i := strings.IndexByte(s, '-'); i > 0 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
		s = s[:i]
	}
	return s
}

// displayVersion returns s, or "unknown" when s is empty.
func displayVersion(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknownVersion
	}
	return s
}
