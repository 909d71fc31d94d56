// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	goerrors "errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/errors"
)

type (
	// ValidationError lists every field that failed schema validation in one
	// document.
	ValidationError struct {
		// FilePath is the document being validated.
		FilePath string
		// Fields holds one entry per CUE error, in the order CUE reported them.
		Fields []FieldError
	}

	// FieldError is a single schema violation.
	FieldError struct {
		// Path is the JSON path of the offending value (e.g. "modules[0].id").
		// It is empty for errors that are not tied to a field, like syntax errors.
		Path string
		// Message is CUE's description of the problem.
		Message string
	}
)

// Error implements the error interface.
//
// Format: <file-path>: <json-path>: <message>, with one indented line per
// field when more than one field failed.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return e.FilePath + ": " + e.Fields[0].String()
	}
	lines := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		lines = append(lines, f.String())
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", e.FilePath, strings.Join(lines, "\n  "))
}

// Paths returns the JSON paths of the failed fields, skipping empty ones.
func (e *ValidationError) Paths() []string {
	var paths []string
	for _, f := range e.Fields {
		if f.Path != "" {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

func (f FieldError) String() string {
	if f.Path == "" {
		return f.Message
	}
	return f.Path + ": " + f.Message
}

// FormatError converts a CUE error into a *ValidationError with JSON-path
// locations. Errors that do not come from CUE are wrapped with the file path.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	// errors.Errors promotes any error into a CUE list, so plain errors are
	// detected first to keep their chain.
	var cueErr errors.Error
	if !goerrors.As(err, &cueErr) {
		return fmt.Errorf("%s: %w", filePath, err)
	}
	cueErrors := errors.Errors(err)
	if len(cueErrors) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	verr := &ValidationError{FilePath: filePath}
	for _, e := range cueErrors {
		path := formatPath(errors.Path(e))
		msg := e.Error()
		// CUE sometimes repeats the path at the start of the message.
		if path != "" && strings.HasPrefix(msg, path) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		verr.Fields = append(verr.Fields, FieldError{Path: path, Message: msg})
	}
	return verr
}

// formatPath turns CUE's flat path (["modules", "0", "id"]) into JSON-path
// notation ("modules[0].id"). A leading schema definition ("#Manifest") is
// not part of the document and is dropped.
func formatPath(path []string) string {
	if len(path) > 0 && strings.HasPrefix(path[0], "#") {
		path = path[1:]
	}
	var b strings.Builder
	for i, part := range path {
		switch {
		case i > 0 && isIndex(part):
			b.WriteString("[" + part + "]")
		case i > 0:
			b.WriteString("." + part)
		default:
			b.WriteString(part)
		}
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize returns an error when data is larger than maxSize.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes",
			filename, len(data), maxSize)
	}
	return nil
}

// ReadFile reads path after checking its size on disk, so oversized files
// are rejected before they are loaded into memory.
func ReadFile(path string, maxSize int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, info.Size(), maxSize)
	}
	return os.ReadFile(path)
}
