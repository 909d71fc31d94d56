// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/invowk/modgate/internal/notice"
	"github.com/invowk/modgate/pkg/requirement"
)

// RenderBlockedCard creates a styled error card for a blocked module.
func RenderBlockedCard(n notice.Notice) string {
	var sb strings.Builder

	sb.WriteString(cardHeaderStyle.Render("✗ Module blocked!"))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "%s %s\n\n", notice.Heading, cardModuleStyle.Render(n.Module))

	sb.WriteString(cardLabelStyle.Render(fmt.Sprintf("Failed requirements (%d):", len(n.Items))))
	sb.WriteString("\n")
	for _, item := range n.Items {
		sb.WriteString(cardDetailStyle.Render("  • " + item.Message))
		sb.WriteString("\n")
		for _, s := range item.Sections {
			sb.WriteString(cardDetailStyle.Render(fmt.Sprintf("      %s: %s", s.Title, strings.Join(s.Items, ", "))))
			sb.WriteString("\n")
		}
	}

	sb.WriteString(cardHintStyle.Render("• Re-run with --capture to write the notice document to stdout"))
	sb.WriteString("\n")

	return sb.String()
}

// RenderAllowed reports a satisfied set.
func RenderAllowed(module string, results requirement.ResultSet) string {
	return fmt.Sprintf("%s %s: all %d requirements satisfied\n",
		passStyle.Render("✓"), nameStyle.Render(module), results.Len())
}

// describeRequirement summarizes what a requirement expects, before any check.
func describeRequirement(r requirement.Requirement) string {
	switch req := r.(type) {
	case *requirement.VersionRequirement:
		return fmt.Sprintf("%s >= %s", strings.ToLower(req.Subject.String()), req.Minimum)
	case *requirement.ExtensionRequirement:
		return "extensions: " + joinOrNone(req.Extensions)
	case *requirement.SiblingRequirement:
		ids := make([]string, 0, len(req.Siblings))
		for _, s := range req.Siblings {
			if s.MinVersion != "" {
				ids = append(ids, s.ID+" >= "+s.MinVersion)
			} else {
				ids = append(ids, s.ID)
			}
		}
		return "modules: " + joinOrNone(ids)
	case *requirement.SymbolRequirement:
		names := make([]string, 0, len(req.Symbols))
		for name := range req.Symbols {
			names = append(names, name)
		}
		slices.Sort(names)
		return "symbols: " + joinOrNone(names)
	case *requirement.TopologyRequirement:
		if req.MultiTenant {
			return "topology: multi"
		}
		return "topology: single"
	default:
		return r.Name()
	}
}
