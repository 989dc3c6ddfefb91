package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// UsageBar renders pct (0-100) as a colored bar of width cells. The fill
// turns yellow at 50%, orange at 75% and red at 90%.
func UsageBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * float64(width))
	if filled > width {
		filled = width
	}

	fStr := lipgloss.NewStyle().Foreground(barColor(pct)).Render(strings.Repeat("█", filled))
	eStr := lipgloss.NewStyle().Foreground(ColorMuted).Render(strings.Repeat("░", width-filled))
	return fStr + eStr
}

func barColor(pct float64) lipgloss.Color {
	switch {
	case pct >= 90:
		return clrRed
	case pct >= 75:
		return clrOrange
	case pct >= 50:
		return clrYellow
	}
	return clrGreen
}
