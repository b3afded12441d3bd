// Package cli renders run output for the terminal using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accent  = lipgloss.Color("#5B8DEF")
	good    = lipgloss.Color("#4ECDC4")
	caution = lipgloss.Color("#FFE66D")
	bad     = lipgloss.Color("#FF6B6B")
	muted   = lipgloss.Color("#666666")
	rule    = lipgloss.Color("#333")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	successStyle = lipgloss.NewStyle().Foreground(good)
	warningStyle = lipgloss.NewStyle().Foreground(caution)
	errorStyle   = lipgloss.NewStyle().Foreground(bad)
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(rule).
			Padding(1, 2)

	// InfoStyle formats informational lines.
	InfoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1D3"))
	// SubtleStyle formats secondary detail such as fit issues.
	SubtleStyle = lipgloss.NewStyle().Foreground(muted)
	// BoldStyle labels summary fields.
	BoldStyle = lipgloss.NewStyle().Bold(true)
	// TableHeaderStyle underlines the header row of history and elbow tables.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(rule)
	// TableCellStyle pads table cells.
	TableCellStyle = lipgloss.NewStyle().PaddingRight(2)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	ChartIcon   = "📊"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return successStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return errorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return warningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle formats a section title.
func FormatTitle(title string) string {
	return titleStyle.MarginBottom(1).Render(ChartIcon + " " + title)
}

// RenderBox renders content in a rounded box headed by title.
func RenderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), content))
}
