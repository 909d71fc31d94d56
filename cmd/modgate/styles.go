// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Palette for dark terminals. Notice documents never use it; only the
// human-facing output of the CLI does.
const (
	colorTitle  = lipgloss.Color("#7C3AED")
	colorMuted  = lipgloss.Color("#6B7280")
	colorPass   = lipgloss.Color("#10B981")
	colorFail   = lipgloss.Color("#EF4444")
	colorWarn   = lipgloss.Color("#F59E0B")
	colorName   = lipgloss.Color("#3B82F6")
	colorDetail = lipgloss.Color("#9CA3AF")
)

var (
	// titleStyle heads listings such as `profiles`.
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorTitle)
	// mutedStyle labels secondary fields: token expiry, config source.
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	// passStyle marks an allowed module.
	passStyle = lipgloss.NewStyle().Foreground(colorPass)
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(colorFail)
	warnStyle = lipgloss.NewStyle().Foreground(colorWarn)
	// nameStyle highlights module names, profile names and ssh commands.
	nameStyle = lipgloss.NewStyle().Foreground(colorName)
)

// Blocked-module card, see RenderBlockedCard.
var (
	cardHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorFail).MarginBottom(1)
	cardModuleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorName)
	cardLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorWarn)
	cardDetailStyle = lipgloss.NewStyle().Foreground(colorDetail)
	cardHintStyle   = lipgloss.NewStyle().Foreground(colorMuted).Italic(true).MarginTop(1)
)
