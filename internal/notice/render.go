// SPDX-License-Identifier: MPL-2.0

package notice

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
)

const (
	// FormatHTML renders the host-facing admin notice.
	FormatHTML Format = "html"
	// FormatMarkdown renders markdown, suitable for glamour on terminals.
	FormatMarkdown Format = "markdown"
	// FormatText renders plain lines for logs and SSH sessions.
	FormatText Format = "text"
	// FormatJSON renders the Notice structure as indented JSON.
	FormatJSON Format = "json"
)

// ErrInvalidFormat is returned when a Format value is not recognized.
var ErrInvalidFormat = errors.New("invalid notice format")

type (
	// Format selects a rendering of a Notice.
	Format string

	// InvalidFormatError is returned when a Format value is not recognized.
	// It wraps ErrInvalidFormat for errors.Is() compatibility.
	InvalidFormatError struct {
		Value Format
	}
)

// Error implements the error interface.
func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid notice format %q (valid: %v)", e.Value, Formats())
}

// Unwrap returns ErrInvalidFormat for errors.Is() compatibility.
func (e *InvalidFormatError) Unwrap() error { return ErrInvalidFormat }

// Formats returns all supported formats.
func Formats() []Format {
	return []Format{FormatHTML, FormatMarkdown, FormatText, FormatJSON}
}

// Validate returns an error if the Format is not supported.
func (f Format) Validate() error {
	switch f {
	case FormatHTML, FormatMarkdown, FormatText, FormatJSON:
		return nil
	default:
		return &InvalidFormatError{Value: f}
	}
}

// Render dispatches to the renderer for format.
func Render(n Notice, format Format) (string, error) {
	switch format {
	case FormatHTML:
		return RenderHTML(n), nil
	case FormatMarkdown:
		return RenderMarkdown(n), nil
	case FormatText:
		return RenderText(n), nil
	case FormatJSON:
		data, err := json.MarshalIndent(n, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal notice: %w", err)
		}
		return string(data) + "\n", nil
	default:
		return "", &InvalidFormatError{Value: format}
	}
}

// RenderHTML renders the notice as an error block:
//
//	<div class="error"><p>Minimum System Requirements not satisfied for: <strong>NAME</strong></p><ul><li>...</li></ul></div>
//
// Every item holds its message verbatim; sectioned items add one nested list
// per section after it. All text is escaped.
func RenderHTML(n Notice) string {
	var b strings.Builder
	b.WriteString(`<div class="error">`)
	b.WriteString("<p>" + Heading + " <strong>" + html.EscapeString(n.Module) + "</strong></p>")
	if len(n.Items) > 0 {
		b.WriteString("<ul>")
		for _, item := range n.Items {
			b.WriteString("<li>")
			if len(item.Sections) == 0 {
				b.WriteString(html.EscapeString(item.Message))
			} else {
				writeHTMLSections(&b, item)
			}
			b.WriteString("</li>")
		}
		b.WriteString("</ul>")
	}
	b.WriteString("</div>")
	return b.String()
}

func writeHTMLSections(b *strings.Builder, item Item) {
	b.WriteString(html.EscapeString(item.Message))
	b.WriteString("<ul>")
	for _, s := range item.Sections {
		b.WriteString("<li>" + html.EscapeString(s.Title) + "<ul>")
		for _, entry := range s.Items {
			b.WriteString("<li>" + html.EscapeString(entry) + "</li>")
		}
		b.WriteString("</ul></li>")
	}
	b.WriteString("</ul>")
}

// RenderMarkdown renders the notice as a heading followed by a bullet list.
func RenderMarkdown(n Notice) string {
	var b strings.Builder
	b.WriteString("# " + Heading + " **" + n.Module + "**\n")
	if len(n.Items) > 0 {
		b.WriteString("\n")
	}
	for _, item := range n.Items {
		b.WriteString("- " + item.Message + "\n")
		for _, s := range item.Sections {
			b.WriteString("  - " + s.Title + "\n")
			for _, entry := range s.Items {
				b.WriteString("    - " + entry + "\n")
			}
		}
	}
	return b.String()
}

// RenderText renders the notice as indented plain lines.
func RenderText(n Notice) string {
	var b strings.Builder
	b.WriteString(Heading + " " + n.Module + "\n")
	for _, item := range n.Items {
		b.WriteString("  * " + item.Message + "\n")
		for _, s := range item.Sections {
			b.WriteString("      " + s.Title + ":\n")
			for _, entry := range s.Items {
				b.WriteString("        - " + entry + "\n")
			}
		}
	}
	return b.String()
}
