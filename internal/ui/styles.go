// Package ui holds the lipgloss styling shared by pgwire's terminal tools.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/pgwire-go/pgwire/pkg/pgwire"
)

// Brand colors.
var (
	ColorPrimary   = lipgloss.Color("#0EA5E9") // Sky blue
	ColorSecondary = lipgloss.Color("#8B5CF6") // Violet
	ColorSuccess   = lipgloss.Color("#10B981") // Emerald
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorMuted     = lipgloss.Color("#64748B") // Slate
	ColorSubtle    = lipgloss.Color("#94A3B8") // Slate light
)

// Semantic styles.
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().Foreground(ColorMuted)
	Success  = lipgloss.NewStyle().Foreground(ColorSuccess)
	Warning  = lipgloss.NewStyle().Foreground(ColorWarning)
	Error    = lipgloss.NewStyle().Foreground(ColorError)
	Info     = lipgloss.NewStyle().Foreground(ColorPrimary)
	Muted    = lipgloss.NewStyle().Foreground(ColorMuted)

	Code = lipgloss.NewStyle().
		Background(lipgloss.Color("#1E293B")).
		Foreground(lipgloss.Color("#E2E8F0")).
		Padding(0, 1)
)

// Component styles.
var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(1, 2)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(ColorMuted)

	CellStyle = lipgloss.NewStyle().Padding(0, 1)
)

// Icons.
const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "⚠"
	IconArrow   = "→"
)

// StateStyle picks the color a ConnectionState should render in: green
// once queries can run, blue while busy or mid-copy, red on error, muted
// once terminated, amber while connecting or authenticating.
func StateStyle(kind pgwire.StateKind) lipgloss.Style {
	switch kind {
	case pgwire.StateReadyForQuery:
		return Success
	case pgwire.StateBusy, pgwire.StateCopyIn, pgwire.StateCopyOut:
		return Info
	case pgwire.StateError:
		return Error
	case pgwire.StateTerminated:
		return Muted
	default:
		return Warning
	}
}
