// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides the shared CUE pipeline used for manifests,
// environment snapshots and the configuration file.
//
// Every document goes through the same three steps:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify it with a schema definition
//  3. Validate and decode
//
// Errors from step 2 and 3 are reported per field with JSON-path locations
// (e.g. "requires.modules[1].id"), so users can find the offending value.
//
// # Usage
//
//	//go:embed manifest_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[Manifest](
//	    schemaBytes,
//	    data,
//	    "#Manifest",
//	    cueutil.WithFilename("modgate.cue"),
//	)
//	if err != nil {
//	    return nil, err
//	}
//	return result.Value, nil
//
// JSON is a subset of CUE, so .json documents can use the same pipeline.
package cueutil
