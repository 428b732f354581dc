package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/rainwave/jstmpl/pkg/template"
)

// Style definitions
var (
	// Colors
	primaryColor   = lipgloss.Color("#3b82f6") // Blue
	secondaryColor = lipgloss.Color("#64748b") // Gray
	successColor   = lipgloss.Color("#10b981") // Green
	warningColor   = lipgloss.Color("#f59e0b") // Yellow
	errorColor     = lipgloss.Color("#ef4444") // Red
	mutedColor     = lipgloss.Color("#94a3b8") // Muted gray

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	locationStyle = lipgloss.NewStyle().
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)

// FormatError renders one compile error for a terminal, with the template
// path when it is known.
func FormatError(e *template.Error, path string) string {
	var sb strings.Builder
	loc := e.Template
	if path != "" {
		loc = path
	}
	if e.Pos.IsValid() {
		loc += ":" + e.Pos.String()
	}
	if loc != "" {
		sb.WriteString(locationStyle.Render(loc+":") + " ")
	}
	sb.WriteString(errorStyle.Render("error:") + " " + e.Message)
	if e.Hint != "" {
		sb.WriteString("\n    " + mutedStyle.Render("hint: "+e.Hint))
	}
	return sb.String()
}

// FormatWarning renders a warning line.
func FormatWarning(format string, args ...any) string {
	return warningStyle.Render("warning:") + " " + fmt.Sprintf(format, args...)
}

// Success renders a success line.
func Success(format string, args ...any) string {
	return successStyle.Render("✓") + " " + fmt.Sprintf(format, args...)
}

// Failure renders a failure summary line.
func Failure(format string, args ...any) string {
	return errorStyle.Render("✗") + " " + fmt.Sprintf(format, args...)
}

// Muted renders secondary text.
func Muted(s string) string {
	return mutedStyle.Render(s)
}

// FormatSizes renders raw and gzipped byte counts, e.g. "12 kB (3.1 kB gzip)".
func FormatSizes(raw, gzip int64) string {
	return fmt.Sprintf("%s (%s gzip)", humanize.Bytes(uint64(raw)), humanize.Bytes(uint64(gzip)))
}
