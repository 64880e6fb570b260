package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
)

// Footer shows task completion and the active key hints, with a transient
// status line replacing the hints after saves and errors.
type Footer struct {
	width     int
	bar       progress.Model
	done      int
	total     int
	hints     string
	status    string
	statusErr bool
}

// NewFooter creates the footer.
func NewFooter() *Footer {
	return &Footer{bar: progress.New(progress.WithDefaultGradient())}
}

// SetWidth sets the component width.
func (f *Footer) SetWidth(width int) {
	f.width = width
	barWidth := width - 24
	if barWidth < 10 {
		barWidth = 10
	}
	f.bar.Width = barWidth
}

// SetProgress updates the completion counts.
func (f *Footer) SetProgress(done, total int) {
	f.done = done
	f.total = total
}

// SetHints replaces the key hint line.
func (f *Footer) SetHints(hints string) {
	f.hints = hints
}

// SetStatus shows a transient status in place of the hints.
func (f *Footer) SetStatus(text string, isError bool) {
	f.status = text
	f.statusErr = isError
}

// ClearStatus restores the hint line.
func (f *Footer) ClearStatus() {
	f.status = ""
}

// View renders the footer's two lines.
func (f *Footer) View() string {
	var pct float64
	if f.total > 0 {
		pct = float64(f.done) / float64(f.total)
	}
	first := f.bar.ViewAs(pct) + ProgressCountStyle.Render(fmt.Sprintf("  %d/%d evaluated", f.done, f.total))

	second := HintStyle.Render(f.hints)
	if f.status != "" {
		if f.statusErr {
			second = StatusErrorStyle.Render(f.status)
		} else {
			second = StatusInfoStyle.Render(f.status)
		}
	}
	return first + "\n" + second
}
