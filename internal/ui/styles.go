// Package ui holds the terminal styling shared by every MacMole command.
package ui

import "github.com/charmbracelet/lipgloss"

// ─── Palette ─────────────────────────────────────────────────────────────────

var (
	ColorPrimary   = lipgloss.Color("#7D56F4")
	ColorSecondary = lipgloss.Color("#56B6F4")
	ColorCoral     = lipgloss.Color("#FF7F6B")
	ColorSuccess   = lipgloss.Color("#50FA7B")
	ColorWarning   = lipgloss.Color("#F1FA8C")
	ColorError     = lipgloss.Color("#FF5555")
	ColorText      = lipgloss.Color("#F8F8F2")
	ColorTextDim   = lipgloss.Color("#BFBFBF")
	ColorMuted     = lipgloss.Color("#6272A4")

	clrGreen  = lipgloss.Color("#50FA7B")
	clrYellow = lipgloss.Color("#F1FA8C")
	clrOrange = lipgloss.Color("#FFB86C")
	clrRed    = lipgloss.Color("#FF5555")
)

// ─── Icons ───────────────────────────────────────────────────────────────────

const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "!"
	IconDryRun  = "○"
	IconSkip    = "–"
	IconBullet  = "•"
	IconArrow   = "→"
	IconChevron = "›"
)

// ─── Styles ──────────────────────────────────────────────────────────────────

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)

	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorError)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	DryRunStyle  = lipgloss.NewStyle().Foreground(ColorCoral)

	// CardStyle frames summary blocks.
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1)
)
