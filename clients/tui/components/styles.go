// Package components provides the building blocks of the evaluation client:
// header, record pane, judgment forms, comment box and footer.
package components

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// Color Palette
// =============================================================================

// Colors are adaptive pairs so the client stays readable on light terminals.
// The configured theme pins the background assumption; see tui.ApplyTheme.
var (
	Primary = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#7C3AED"} // violet - titles, cursor
	Success = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#10B981"} // green - saved state, values
	Accent  = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"} // blue - field labels
	Warning = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"} // amber - dirty marker
	Danger  = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#EF4444"} // red - errors
	Muted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"} // gray - hints
	Border  = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#374151"}
	Surface = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#1E293B"}
	Text    = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#E5E7EB"}
)

// =============================================================================
// Header Styles
// =============================================================================

var (
	HeaderStyle = lipgloss.NewStyle().
			Background(Surface).
			Padding(0, 1)

	HeaderTitleStyle = lipgloss.NewStyle().
				Background(Surface).
				Foreground(Primary).
				Bold(true)

	HeaderModeStyle = lipgloss.NewStyle().
			Background(Surface).
			Foreground(Accent)

	HeaderCountStyle = lipgloss.NewStyle().
				Background(Surface).
				Foreground(Text)

	DirtyStyle = lipgloss.NewStyle().
			Background(Surface).
			Foreground(Warning).
			Bold(true)

	SavedStyle = lipgloss.NewStyle().
			Background(Surface).
			Foreground(Success)
)

// =============================================================================
// Record Pane Styles
// =============================================================================

var (
	FieldLabelStyle = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true)

	PaneTitleStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	MissingStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	SideBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1)
)

// =============================================================================
// Form Styles
// =============================================================================

var (
	CursorStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	DimensionStyle = lipgloss.NewStyle().
			Foreground(Text)

	RangeStyle = lipgloss.NewStyle().
			Foreground(Muted)

	ValueStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	UnsetStyle = lipgloss.NewStyle().
			Foreground(Muted)

	DescriptionStyle = lipgloss.NewStyle().
				Foreground(Muted).
				Italic(true)

	OptionStyle = lipgloss.NewStyle().
			Foreground(Text).
			Padding(0, 1)

	SelectedOptionStyle = lipgloss.NewStyle().
				Foreground(Success).
				Bold(true).
				Padding(0, 1)
)

// =============================================================================
// Footer Styles
// =============================================================================

var (
	HintStyle = lipgloss.NewStyle().
			Foreground(Muted)

	ProgressCountStyle = lipgloss.NewStyle().
				Foreground(Text)

	StatusInfoStyle = lipgloss.NewStyle().
			Foreground(Success)

	StatusErrorStyle = lipgloss.NewStyle().
				Foreground(Danger).
				Bold(true)
)
