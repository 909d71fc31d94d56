// SPDX-License-Identifier: MPL-2.0

package notice

import (
	"github.com/invowk/modgate/pkg/requirement"
)

// Heading is the fixed lead-in of every notice. The module name follows it.
const Heading = "Minimum System Requirements not satisfied for:"

type (
	// Notice is the diagnostic document for one blocked module.
	Notice struct {
		Module string `json:"module"`
		Items  []Item `json:"items"`
	}

	// Item describes one failed requirement.
	Item struct {
		Requirement string                `json:"requirement"`
		Message     string                `json:"message"`
		Sections    []requirement.Section `json:"sections,omitempty"`
	}
)

// Build collects the failed results, in evaluation order, into a Notice.
// Satisfied results are skipped and messages are kept verbatim.
func Build(module string, results requirement.ResultSet) Notice {
	n := Notice{Module: module, Items: []Item{}}
	for _, r := range results.Failed() {
		item := Item{
			Requirement: r.Requirement.Name(),
			Message:     r.Requirement.Message(),
		}
		if s, ok := r.Requirement.(requirement.Sectioned); ok {
			item.Sections = s.Sections()
		}
		n.Items = append(n.Items, item)
	}
	return n
}

// Empty reports whether the notice lists no failures.
func (n Notice) Empty() bool { return len(n.Items) == 0 }
