// SPDX-License-Identifier: MPL-2.0

package requirement

import (
	"maps"
	"slices"
	"strings"
)

// SymbolRequirement requires named symbols (classes, functions, constants) to
// exist. Each symbol maps to the text shown when it is missing.
type SymbolRequirement struct {
	// Symbols maps symbol name to a descriptive error text.
	Symbols map[string]string

	failures []string
}

// NewSymbols returns a requirement on the given symbols.
func NewSymbols(symbols map[string]string) *SymbolRequirement {
	return &SymbolRequirement{Symbols: symbols}
}

// Name implements Requirement.
func (r *SymbolRequirement) Name() string { return "symbols" }

// Check implements Requirement. Symbols are inspected in sorted order so
// failures are reported deterministically.
func (r *SymbolRequirement) Check(env Environment) bool {
	r.failures = r.failures[:0]
	for _, name := range slices.Sorted(maps.Keys(r.Symbols)) {
		if !env.HasSymbol(name) {
			r.failures = append(r.failures, r.Symbols[name])
		}
	}
	return len(r.failures) == 0
}

// Message implements Requirement.
func (r *SymbolRequirement) Message() string {
	return "Required Symbols Not Found: " + strings.Join(r.failures, "; ")
}
