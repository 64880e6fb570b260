package components

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dohr-michael/appraise/internal/evals"
)

// SelectionMsg is emitted when the operator picks a comparison outcome.
type SelectionMsg struct {
	Selection evals.Selection
}

// ComparePicker records the outcome of an A/B comparison. One keypress picks
// a side; there is no cursor to move.
type ComparePicker struct {
	leftLabel  string
	rightLabel string
	selection  evals.Selection
}

// NewComparePicker creates the picker, labeled with the task's side fields.
func NewComparePicker(leftLabel, rightLabel string) *ComparePicker {
	return &ComparePicker{leftLabel: leftLabel, rightLabel: rightLabel}
}

// Load replaces the displayed selection, usually after a record change.
func (c *ComparePicker) Load(sel evals.Selection) {
	c.selection = sel
}

// Height returns the number of lines the picker renders.
func (c *ComparePicker) Height() int { return 1 }

// Update handles a key press while the picker has focus.
func (c *ComparePicker) Update(msg tea.KeyMsg) tea.Cmd {
	var sel evals.Selection
	switch msg.String() {
	case "a":
		sel = evals.SelectLeft
	case "b":
		sel = evals.SelectRight
	case "t":
		sel = evals.SelectTie
	default:
		return nil
	}
	c.selection = sel
	return func() tea.Msg { return SelectionMsg{Selection: sel} }
}

// View renders the picker.
func (c *ComparePicker) View() string {
	return c.chip("a", c.leftLabel, evals.SelectLeft) +
		c.chip("b", c.rightLabel, evals.SelectRight) +
		c.chip("t", "Tie", evals.SelectTie)
}

func (c *ComparePicker) chip(key, label string, sel evals.Selection) string {
	text := "[" + key + "] " + label
	if c.selection == sel {
		return SelectedOptionStyle.Render("● " + text)
	}
	return OptionStyle.Render("  " + text)
}
