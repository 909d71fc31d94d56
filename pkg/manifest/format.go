// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// FormatCUE is a CUE document.
	FormatCUE Format = "cue"
	// FormatJSON is a JSON document.
	FormatJSON Format = "json"
	// FormatTOML is a TOML document.
	FormatTOML Format = "toml"
)

// ErrUnsupportedFormat is returned for files whose extension is not .cue,
// .json or .toml.
var ErrUnsupportedFormat = errors.New("unsupported document format")

type (
	// Format is a document encoding.
	Format string

	// UnsupportedFormatError is returned when a document format cannot be
	// determined. It wraps ErrUnsupportedFormat for errors.Is() compatibility.
	UnsupportedFormatError struct {
		Path string
	}
)

// Error implements the error interface.
func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: unsupported document format (use .cue, .json or .toml)", e.Path)
}

// Unwrap returns ErrUnsupportedFormat for errors.Is() compatibility.
func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// DetectFormat returns the format implied by the file extension of path.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", &UnsupportedFormatError{Path: path}
	}
}

// toCUEInput returns data in a form the CUE compiler accepts. CUE and JSON
// pass through unchanged; TOML is decoded and re-encoded as JSON.
func toCUEInput(data []byte, format Format, path string) ([]byte, error) {
	if format != FormatTOML {
		return data, nil
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("%s:%d:%d: %s", path, row, col, decodeErr.Error())
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: re-encode TOML: %w", path, err)
	}
	return out, nil
}
