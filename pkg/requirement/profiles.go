// SPDX-License-Identifier: MPL-2.0

package requirement

import (
	"errors"
	"fmt"
)

const (
	// ProfileMinimum is the lowest supported environment.
	ProfileMinimum Profile = "minimum"
	// ProfileModern requires newer versions and the common extension set.
	ProfileModern Profile = "modern"
	// ProfileFailing can never be satisfied. Test harnesses use it to exercise
	// the blocking and capture paths.
	ProfileFailing Profile = "failing"
	// ProfileCustom labels sets built only from a manifest's own requirements.
	ProfileCustom Profile = "custom"
)

// ErrUnknownProfile is returned when a profile name is not recognized.
var ErrUnknownProfile = errors.New("unknown profile")

type (
	// Profile names a compatibility profile.
	Profile string

	// UnknownProfileError is returned by NewProfileSet for undefined profiles.
	// It wraps ErrUnknownProfile for errors.Is() compatibility.
	UnknownProfileError struct {
		Value Profile
	}
)

// Error implements the error interface.
func (e *UnknownProfileError) Error() string {
	return fmt.Sprintf("unknown profile %q (valid: %v)", e.Value, Profiles())
}

// Unwrap returns ErrUnknownProfile for errors.Is() compatibility.
func (e *UnknownProfileError) Unwrap() error { return ErrUnknownProfile }

// Profiles returns the built-in profile names in a stable order.
func Profiles() []Profile {
	return []Profile{ProfileMinimum, ProfileModern, ProfileFailing}
}

// NewProfileSet returns a freshly built Set for a built-in profile. Each call
// returns new requirement instances, so results never leak across evaluations.
func NewProfileSet(p Profile) (*Set, error) {
	switch p {
	case ProfileMinimum:
		return NewSet(p,
			NewRuntimeVersion("5.3.2"),
			NewHostVersion("3.5.0"),
		), nil
	case ProfileModern:
		return NewSet(p,
			NewRuntimeVersion("5.5.0"),
			NewHostVersion("3.8.0"),
			NewExtensions("mysql", "mysqli", "session", "pcre", "json", "gd", "mbstring", "phar", "zlib"),
		), nil
	case ProfileFailing:
		return NewSet(p,
			NewRuntimeVersion("100.0.0"),
			NewHostVersion("100.0.0"),
		), nil
	default:
		return nil, &UnknownProfileError{Value: p}
	}
}
