package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// CommentChangedMsg is emitted on every edit of the comment text.
type CommentChangedMsg struct {
	Text string
}

// CommentBox is the free-text note attached to the current judgment.
type CommentBox struct {
	input textinput.Model
}

// NewCommentBox creates the comment input, blurred.
func NewCommentBox() *CommentBox {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "add a comment"
	ti.CharLimit = 0
	return &CommentBox{input: ti}
}

// Load replaces the displayed comment, usually after a record change.
func (c *CommentBox) Load(text string) {
	c.input.SetValue(text)
	c.input.CursorEnd()
}

// SetWidth sets the input width.
func (c *CommentBox) SetWidth(width int) {
	c.input.Width = width - 14
}

// Focus moves keyboard input into the comment box.
func (c *CommentBox) Focus() tea.Cmd {
	return c.input.Focus()
}

// Blur releases keyboard input.
func (c *CommentBox) Blur() {
	c.input.Blur()
}

// Focused reports whether the box is capturing keys.
func (c *CommentBox) Focused() bool {
	return c.input.Focused()
}

// Update feeds a key press to the input and reports the edited text.
func (c *CommentBox) Update(msg tea.KeyMsg) tea.Cmd {
	before := c.input.Value()
	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	after := c.input.Value()
	if after == before {
		return cmd
	}
	changed := func() tea.Msg { return CommentChangedMsg{Text: after} }
	if cmd == nil {
		return changed
	}
	return tea.Batch(cmd, changed)
}

// View renders the comment line.
func (c *CommentBox) View() string {
	return FieldLabelStyle.Render("Comment") + " " + c.input.View()
}
