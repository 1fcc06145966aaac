package ui

import (
	"deployconsole/internal/phase"

	"github.com/charmbracelet/lipgloss"
)

// Theme colors used throughout the UI
const (
	ColorAccent    = "86"  // Cyan/green - for titles, highlights
	ColorHighlight = "205" // Magenta - for selected items, borders
	ColorDanger    = "196" // Red - for warnings, errors
	ColorMuted     = "241" // Gray - for dimmed text, hints
	ColorText      = "252" // Light gray - for normal text
	ColorWarning   = "208" // Orange - for scheduled work
	ColorSuccess   = "42"  // Green - for finished work
	ColorInfo      = "75"  // Blue - for running work
)

// Styles contains shared style definitions used across views.
var Styles = struct {
	Title    lipgloss.Style // Bold accent color - for main titles
	Box      lipgloss.Style // Standard box with rounded border
	Selected lipgloss.Style // Highlighted/selected row
	Muted    lipgloss.Style // Dimmed text
	Normal   lipgloss.Style // Normal text
	Hint     lipgloss.Style // Help/hint text
	Error    lipgloss.Style // Fetch errors
	Empty    lipgloss.Style // Empty state text (muted, italic)
	Label    lipgloss.Style // Field labels in the detail window
}{
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorAccent)),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorHighlight)).
		Padding(0, 1),
	Selected: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHighlight)).
		Bold(true),
	Muted: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorText)),
	Hint: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)),
	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorDanger)),
	Empty: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)).
		Italic(true),
	Label: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccent)),
}

// PhaseColor is the chip and timeline color of a phase.
func PhaseColor(p phase.Phase) lipgloss.Color {
	switch p {
	case phase.Scheduled:
		return lipgloss.Color(ColorWarning)
	case phase.Running:
		return lipgloss.Color(ColorInfo)
	case phase.Finished:
		return lipgloss.Color(ColorSuccess)
	case phase.Error:
		return lipgloss.Color(ColorDanger)
	default:
		return lipgloss.Color(ColorMuted)
	}
}

// StepColor is the color of one timeline node.
func StepColor(s phase.StepState, p phase.Phase) lipgloss.Color {
	switch s {
	case phase.StepCompleted:
		return lipgloss.Color(ColorSuccess)
	case phase.StepError:
		return lipgloss.Color(ColorDanger)
	case phase.StepActive:
		return PhaseColor(p)
	default:
		return lipgloss.Color(ColorMuted)
	}
}
