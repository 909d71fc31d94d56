// SPDX-License-Identifier: MPL-2.0

package cmd

import "fmt"

// Process exit codes.
const (
	// ExitBlocked is returned when a module's requirements are not met.
	ExitBlocked = 1
	// ExitInputError is returned when a manifest, environment or configuration
	// cannot be loaded.
	ExitInputError = 2
	// ExitServerError is returned when the diagnostics server fails.
	ExitServerError = 3
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}
