// Package tui renders import progress and results for interactive terminals.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette shared by the progress model and the summary view.
const (
	ColorHeader   = lipgloss.Color("12")
	ColorBorder   = lipgloss.Color("240")
	ColorLabel    = lipgloss.Color("245")
	ColorValue    = lipgloss.Color("15")
	ColorOK       = lipgloss.Color("10")
	ColorWarning  = lipgloss.Color("11")
	ColorCritical = lipgloss.Color("9")
	ColorMuted    = lipgloss.Color("241")
)

// Status icons.
const (
	IconOK      = "✓"
	IconWarning = "!"
	IconFailed  = "✗"
)

// Styles used across views.
var (
	HeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorHeader)   //nolint:gochecknoglobals // Shared style.
	LabelStyle    = lipgloss.NewStyle().Foreground(ColorLabel)               //nolint:gochecknoglobals // Shared style.
	ValueStyle    = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)    //nolint:gochecknoglobals // Shared style.
	OKStyle       = lipgloss.NewStyle().Foreground(ColorOK).Bold(true)       //nolint:gochecknoglobals // Shared style.
	WarningStyle  = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)  //nolint:gochecknoglobals // Shared style.
	CriticalStyle = lipgloss.NewStyle().Foreground(ColorCritical).Bold(true) //nolint:gochecknoglobals // Shared style.
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)               //nolint:gochecknoglobals // Shared style.
)
