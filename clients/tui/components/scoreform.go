package components

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dohr-michael/appraise/internal/tasks"
)

// ScoreSetMsg is emitted when the operator records a score for a dimension.
type ScoreSetMsg struct {
	DimensionID string
	Value       float64
}

// InvalidEntryMsg is emitted when typed score input cannot be used.
type InvalidEntryMsg struct {
	Input string
}

// ScoreForm edits per-dimension scores for the record on screen. A cursor
// walks the dimensions; digits set a value directly, +/- step it, enter opens
// exact entry. Values always land on the min/step grid, clamped to the range.
type ScoreForm struct {
	dims    []tasks.Dimension
	values  map[string]float64
	cursor  int
	editing bool
	input   textinput.Model
	width   int
}

// NewScoreForm creates the form for a scoring task's dimensions.
func NewScoreForm(dims []tasks.Dimension) *ScoreForm {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "0"
	ti.CharLimit = 12
	ti.Width = 8
	return &ScoreForm{
		dims:   dims,
		values: map[string]float64{},
		input:  ti,
	}
}

// Load replaces the displayed scores, usually after a record change.
func (f *ScoreForm) Load(scores map[string]float64) {
	f.values = map[string]float64{}
	for k, v := range scores {
		f.values[k] = v
	}
	f.cancelEntry()
}

// SetWidth sets the component width.
func (f *ScoreForm) SetWidth(width int) {
	f.width = width
}

// Height returns the number of lines the form renders. The description line
// is counted whenever any dimension has one, so the layout does not shift as
// the cursor moves.
func (f *ScoreForm) Height() int {
	h := len(f.dims)
	if f.hasDescriptions() {
		h++
	}
	return h
}

func (f *ScoreForm) hasDescriptions() bool {
	for _, d := range f.dims {
		if d.Description != "" {
			return true
		}
	}
	return false
}

// Editing reports whether the exact-entry input is open.
func (f *ScoreForm) Editing() bool { return f.editing }

// Update handles a key press while the form has focus.
func (f *ScoreForm) Update(msg tea.KeyMsg) tea.Cmd {
	if len(f.dims) == 0 {
		return nil
	}
	if f.editing {
		return f.updateEntry(msg)
	}
	dim := f.dims[f.cursor]
	switch key := msg.String(); key {
	case "up", "k":
		if f.cursor > 0 {
			f.cursor--
		}
	case "down", "j":
		if f.cursor < len(f.dims)-1 {
			f.cursor++
		}
	case "+", "=":
		return f.step(dim, +1)
	case "-", "_":
		return f.step(dim, -1)
	case "enter":
		f.openEntry(dim)
	default:
		if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
			return f.setDigit(dim, float64(key[0]-'0'))
		}
	}
	return nil
}

func (f *ScoreForm) updateEntry(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		return f.commitEntry()
	case "esc":
		f.cancelEntry()
	default:
		var cmd tea.Cmd
		f.input, cmd = f.input.Update(msg)
		return cmd
	}
	return nil
}

func (f *ScoreForm) openEntry(dim tasks.Dimension) {
	f.editing = true
	f.input.Reset()
	if v, ok := f.values[dim.ID]; ok {
		f.input.SetValue(formatScore(v))
	}
	f.input.CursorEnd()
	f.input.Focus()
}

func (f *ScoreForm) cancelEntry() {
	f.editing = false
	f.input.Blur()
	f.input.Reset()
}

func (f *ScoreForm) commitEntry() tea.Cmd {
	raw := strings.TrimSpace(f.input.Value())
	f.cancelEntry()
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return func() tea.Msg { return InvalidEntryMsg{Input: raw} }
	}
	return f.set(f.dims[f.cursor], v)
}

// setDigit records a typed digit when it lands inside the range; a digit
// outside the range is ignored rather than clamped, so a stray key cannot
// silently record an extreme score. The cursor advances for quick entry.
func (f *ScoreForm) setDigit(dim tasks.Dimension, v float64) tea.Cmd {
	if v < dim.Min || v > dim.Max {
		return nil
	}
	cmd := f.set(dim, v)
	if f.cursor < len(f.dims)-1 {
		f.cursor++
	}
	return cmd
}

func (f *ScoreForm) step(dim tasks.Dimension, direction float64) tea.Cmd {
	v, ok := f.values[dim.ID]
	if !ok {
		return f.set(dim, dim.Min)
	}
	return f.set(dim, v+direction*dim.Step)
}

func (f *ScoreForm) set(dim tasks.Dimension, v float64) tea.Cmd {
	v = SnapScore(v, dim)
	f.values[dim.ID] = v
	return func() tea.Msg { return ScoreSetMsg{DimensionID: dim.ID, Value: v} }
}

// SnapScore moves a value onto the dimension's grid: min plus a whole number
// of steps, never past max.
func SnapScore(v float64, dim tasks.Dimension) float64 {
	k := math.Round((v - dim.Min) / dim.Step)
	kmax := math.Floor((dim.Max-dim.Min)/dim.Step + 1e-9)
	if k < 0 {
		k = 0
	}
	if k > kmax {
		k = kmax
	}
	// Round away float noise from fractional steps.
	return math.Round((dim.Min+k*dim.Step)*1e9) / 1e9
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (f *ScoreForm) currentDescription() string {
	if len(f.dims) == 0 {
		return ""
	}
	return f.dims[f.cursor].Description
}

// View renders the form.
func (f *ScoreForm) View() string {
	lines := make([]string, 0, len(f.dims)+1)
	for i, d := range f.dims {
		cursor := "  "
		if i == f.cursor {
			cursor = CursorStyle.Render("> ")
		}
		value := UnsetStyle.Render("[ - ]")
		if f.editing && i == f.cursor {
			value = "[ " + f.input.View() + " ]"
		} else if v, ok := f.values[d.ID]; ok {
			value = ValueStyle.Render("[ " + formatScore(v) + " ]")
		}
		rng := RangeStyle.Render(fmt.Sprintf("(%s-%s, step %s)",
			formatScore(d.Min), formatScore(d.Max), formatScore(d.Step)))
		lines = append(lines, cursor+DimensionStyle.Render(d.Name)+" "+rng+"  "+value)
	}
	if f.hasDescriptions() {
		lines = append(lines, "  "+DescriptionStyle.Render(f.currentDescription()))
	}
	return strings.Join(lines, "\n")
}
