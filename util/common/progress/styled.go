package progress

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/shipper-ci/shipper/internal/style"
	"github.com/shipper-ci/shipper/internal/terminal"
)

// StyledReporter implements Reporter with lipgloss-themed output for
// interactive terminals.
type StyledReporter struct{}

// NewStyledReporter creates a reporter with lipgloss-styled output.
func NewStyledReporter() *StyledReporter {
	return &StyledReporter{}
}

// NewAutoReporter returns a StyledReporter when the terminal supports
// colour, otherwise the plain ConsoleReporter. Batch CI runs get the
// plain reporter.
func NewAutoReporter(info terminal.Info) Reporter {
	if info.ColorEnabled && style.Enabled {
		return NewStyledReporter()
	}
	return NewConsoleReporter()
}

var (
	startStyle   = lipgloss.NewStyle().Bold(true).Foreground(style.Cyan)
	stepStyle    = lipgloss.NewStyle().Foreground(style.Dim).PaddingLeft(2)
	warnStyle    = lipgloss.NewStyle().Foreground(style.Yellow).PaddingLeft(2)
	errorStyle   = lipgloss.NewStyle().Foreground(style.Red).Bold(true).PaddingLeft(2)
	successStyle = lipgloss.NewStyle().Foreground(style.Green).Bold(true).PaddingLeft(2)
)

func (r *StyledReporter) Start(message string) {
	fmt.Println(startStyle.Render("⚡ " + message + "..."))
}

func (r *StyledReporter) Step(message string) {
	fmt.Println(stepStyle.Render("→ " + message + "..."))
}

func (r *StyledReporter) Warn(message string) {
	fmt.Println(warnStyle.Render("! " + message))
}

func (r *StyledReporter) Error(message string) {
	fmt.Println(errorStyle.Render("✗ " + message))
}

func (r *StyledReporter) Success(message string) {
	fmt.Println(successStyle.Render("✓ " + message))
}
