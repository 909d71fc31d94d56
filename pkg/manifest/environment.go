// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"
	"github.com/pelletier/go-toml/v2"

	"github.com/invowk/modgate/pkg/cueutil"
	"github.com/invowk/modgate/pkg/requirement"
)

//go:embed environment_schema.cue
var environmentSchema []byte

// LoadEnvironment reads and validates the environment snapshot at path.
func LoadEnvironment(path string) (*requirement.Snapshot, error) {
	data, err := cueutil.ReadFile(path, cueutil.DefaultMaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return ParseEnvironment(data, path)
}

// ParseEnvironment validates snapshot content. The format is taken from the
// extension of path.
func ParseEnvironment(data []byte, path string) (*requirement.Snapshot, error) {
	f, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	input, err := toCUEInput(data, f, path)
	if err != nil {
		return nil, err
	}

	result, err := cueutil.ParseAndDecode[requirement.Snapshot](environmentSchema, input, "#Environment", cueutil.WithFilename(path))
	if err != nil {
		return nil, err
	}
	if err := result.Value.Mode.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return result.Value, nil
}

// EncodeEnvironment renders a snapshot in the given format. The output of
// every format parses back with ParseEnvironment.
func EncodeEnvironment(s *requirement.Snapshot, f Format) ([]byte, error) {
	switch f {
	case FormatTOML:
		out, err := toml.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("encode TOML: %w", err)
		}
		return out, nil
	case FormatJSON:
		out, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode JSON: %w", err)
		}
		return append(out, '\n'), nil
	case FormatCUE:
		v := cuecontext.New().Encode(s)
		if v.Err() != nil {
			return nil, fmt.Errorf("encode CUE: %w", v.Err())
		}
		out, err := format.Node(v.Syntax(cue.Concrete(true)))
		if err != nil {
			return nil, fmt.Errorf("format CUE: %w", err)
		}
		return append(out, '\n'), nil
	default:
		return nil, &UnsupportedFormatError{Path: "<" + string(f) + ">"}
	}
}
