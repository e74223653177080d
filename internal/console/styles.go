package console

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	defaultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	invalidStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

// Header renders a section title.
func Header(text string) string {
	return headerStyle.Render(text)
}

// Success renders text in the success colour.
func Success(text string) string {
	return doneStyle.Render(text)
}

// Failure renders text in the failure colour.
func Failure(text string) string {
	return failedStyle.Render(text)
}

// ApplicationLine colours a model status line by the reported state.
func ApplicationLine(line string) string {
	if strings.Contains(line, "active") {
		return doneStyle.Render(line)
	}
	return failedStyle.Render(line)
}
