package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	neonCyan   = lipgloss.Color("#00FFFF")
	neonGreen  = lipgloss.Color("#39FF14")
	neonYellow = lipgloss.Color("#FFFF00")
	dimWhite   = lipgloss.Color("#B0B0B0")

	labelStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	percentStyle = lipgloss.NewStyle().
			Foreground(neonYellow)

	countStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	doneStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)
)
