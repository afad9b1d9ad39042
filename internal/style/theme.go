// Package style defines the visual theme for the shipper CLI.
// Colours and text styles live here so every formatted output shares
// the same look.
//
// Call Init(colorEnabled) once at startup. After that, use the exported
// styles and helper functions freely.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	// Brand / primary
	Blue   = lipgloss.Color("#0078D4")
	Cyan   = lipgloss.Color("#00B4D8")
	Indigo = lipgloss.Color("#6366F1")

	// Semantic
	Green  = lipgloss.Color("#22C55E")
	Yellow = lipgloss.Color("#FACC15")
	Red    = lipgloss.Color("#EF4444")

	// Neutral
	White  = lipgloss.Color("#FAFAFA")
	Dim    = lipgloss.Color("#6B7280")
	Subtle = lipgloss.Color("#374151")
)

var (
	// Title is used for top-level headings.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Blue).
		PaddingBottom(1)

	// Subtitle is used for section headers.
	Subtitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan)

	// Success style for positive confirmations.
	Success = lipgloss.NewStyle().
		Foreground(Green).
		Bold(true)

	// Warning style for non-fatal alerts.
	Warning = lipgloss.NewStyle().
		Foreground(Yellow)

	// Error style for error messages.
	Error = lipgloss.NewStyle().
		Foreground(Red).
		Bold(true)

	// DimText is used for hints and secondary info.
	DimText = lipgloss.NewStyle().
		Foreground(Dim)

	// Code style for inline identifiers.
	Code = lipgloss.NewStyle().
		Foreground(Indigo)

	// Bold is a simple bold helper.
	Bold = lipgloss.NewStyle().Bold(true)

	// TableHeader styles table column headers.
	TableHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan).
			BorderBottom(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(Subtle)

	// TableCell is the default table cell style.
	TableCell = lipgloss.NewStyle().
			PaddingRight(2)
)

// Enabled tracks whether styles should render ANSI output.
// When false, all styles degrade to plain text.
var Enabled = true

// Init configures the style package. Call once at startup.
func Init(colorEnabled bool) {
	Enabled = colorEnabled
	if !colorEnabled {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// SuccessIcon returns a themed check mark.
func SuccessIcon() string {
	if Enabled {
		return Success.Render("✓")
	}
	return "OK"
}

// ErrorIcon returns a themed X mark.
func ErrorIcon() string {
	if Enabled {
		return Error.Render("✗")
	}
	return "ERROR"
}

// WarningIcon returns a themed warning indicator.
func WarningIcon() string {
	if Enabled {
		return Warning.Render("!")
	}
	return "WARN"
}

// Hint renders a "next step" hint message.
func Hint(msg string) string {
	return DimText.Render("→ " + msg)
}
