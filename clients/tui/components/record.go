package components

import (
	"encoding/json"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/appraise/internal/record"
	"github.com/dohr-michael/appraise/internal/tasks"
)

// RecordPane is the scrollable view of the record under evaluation. It
// renders the mapped fields through glamour, or the whole payload as
// indented JSON in raw mode.
type RecordPane struct {
	task   *tasks.Task
	vp     viewport.Model
	md     *MarkdownRenderer
	style  string
	rec    record.Record
	raw    bool
	width  int
	height int
}

// NewRecordPane creates the pane for a task's records.
func NewRecordPane(task *tasks.Task, style string, raw bool) *RecordPane {
	vp := viewport.New(0, 0)
	// Scrolling is driven from the app keymap, not the viewport's own keys.
	vp.KeyMap = viewport.KeyMap{}
	vp.MouseWheelEnabled = false
	return &RecordPane{
		task:  task,
		vp:    vp,
		md:    NewMarkdownRenderer(style),
		style: style,
		raw:   raw,
	}
}

// SetSize updates the pane dimensions.
func (p *RecordPane) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.vp.Width = width
	p.vp.Height = height
	p.md.SetWidth(width - 2)
	p.refresh()
}

// ShowRecord replaces the displayed record and scrolls back to the top.
func (p *RecordPane) ShowRecord(rec record.Record) {
	p.rec = rec
	p.refresh()
	p.vp.GotoTop()
}

// ToggleRaw switches between the rendered view and the JSON payload.
func (p *RecordPane) ToggleRaw() {
	p.raw = !p.raw
	p.refresh()
}

// Raw reports whether the pane shows the JSON payload.
func (p *RecordPane) Raw() bool { return p.raw }

// PageUp scrolls up one page.
func (p *RecordPane) PageUp() { p.vp.PageUp() }

// PageDown scrolls down one page.
func (p *RecordPane) PageDown() { p.vp.PageDown() }

// View renders the pane.
func (p *RecordPane) View() string {
	return p.vp.View()
}

func (p *RecordPane) refresh() {
	p.vp.SetContent(p.render())
}

func (p *RecordPane) render() string {
	if p.rec.ID == "" {
		return MissingStyle.Render("This task has no records.")
	}
	if p.raw {
		return p.renderRaw()
	}
	if p.task.Mode == tasks.ModeComparison {
		return p.renderComparison()
	}
	return p.renderScoring()
}

func (p *RecordPane) renderRaw() string {
	data, err := json.MarshalIndent(p.rec, "", "  ")
	if err != nil {
		return MissingStyle.Render(err.Error())
	}
	return string(data)
}

func (p *RecordPane) renderScoring() string {
	sections := p.contextSections()
	if target, ok := p.task.FieldWithRole(tasks.RoleTarget); ok {
		sections = append(sections, p.fieldSection(target, PaneTitleStyle))
	}
	if len(sections) == 0 {
		return MissingStyle.Render("No fields mapped for display. Press r for the raw payload.")
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (p *RecordPane) renderComparison() string {
	sections := p.contextSections()

	left, _ := p.task.FieldWithRole(tasks.RoleLeft)
	right, _ := p.task.FieldWithRole(tasks.RoleRight)
	boxWidth := (p.width - 2) / 2
	textWidth := boxWidth - 4
	if textWidth < 10 {
		textWidth = 10
	}
	leftBox := SideBoxStyle.Width(boxWidth).Render(
		PaneTitleStyle.Render(left.Label) + "\n" + p.sideText(left, textWidth))
	rightBox := SideBoxStyle.Width(boxWidth).Render(
		PaneTitleStyle.Render(right.Label) + "\n" + p.sideText(right, textWidth))
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (p *RecordPane) contextSections() []string {
	var sections []string
	for _, f := range p.task.ContextFields() {
		sections = append(sections, p.fieldSection(f, FieldLabelStyle))
	}
	return sections
}

func (p *RecordPane) fieldSection(f tasks.FieldMapping, labelStyle lipgloss.Style) string {
	v, ok := p.rec.Field(f.Key)
	if !ok || v.IsNull() {
		return labelStyle.Render(f.Label) + "\n" + MissingStyle.Render("(empty)") + "\n"
	}
	return labelStyle.Render(f.Label) + "\n" + p.md.Render(v.Text()) + "\n"
}

func (p *RecordPane) sideText(f tasks.FieldMapping, width int) string {
	v, ok := p.rec.Field(f.Key)
	if !ok || v.IsNull() {
		return MissingStyle.Render("(empty)")
	}
	return RenderMarkdown(v.Text(), p.style, width)
}
