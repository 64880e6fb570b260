package tui

import "github.com/charmbracelet/lipgloss"

// ApplyTheme pins the renderer's background assumption to the configured
// theme. Component styles are adaptive color pairs, so this single switch
// flips the whole palette.
func ApplyTheme(theme string) {
	lipgloss.DefaultRenderer().SetHasDarkBackground(theme != "light")
}
