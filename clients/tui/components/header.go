package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header is the one-line status bar at the top of the client: task title,
// mode, record position and the dirty marker for the current draft.
type Header struct {
	width int
	title string
	mode  string
	index int
	total int
	dirty bool
}

// NewHeader creates a header for a task.
func NewHeader(title, mode string) *Header {
	return &Header{title: title, mode: mode}
}

// SetWidth sets the component width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// SetPosition updates the displayed record position. index is zero-based.
func (h *Header) SetPosition(index, total int) {
	h.index = index
	h.total = total
}

// SetDirty updates the draft state marker.
func (h *Header) SetDirty(dirty bool) {
	h.dirty = dirty
}

// View renders the header.
func (h *Header) View() string {
	left := HeaderTitleStyle.Render(h.title) +
		HeaderCountStyle.Render("  ") +
		HeaderModeStyle.Render(h.mode)

	marker := SavedStyle.Render("saved")
	if h.dirty {
		marker = DirtyStyle.Render("● unsaved")
	}
	right := HeaderCountStyle.Render(fmt.Sprintf("record %d/%d  ", h.index+1, h.total)) + marker

	padding := h.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	gap := HeaderCountStyle.Render(strings.Repeat(" ", padding))
	return HeaderStyle.Width(h.width).Render(left + gap + right)
}
