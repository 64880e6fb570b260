// Package tui is the interactive evaluation client. It walks a task's
// records through an evaluation session, one record on screen at a time,
// and collects the operator's judgment: dimension scores or an A/B pick,
// plus a free-text comment. Every navigation persists the current draft.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/appraise/clients/tui/components"
	"github.com/dohr-michael/appraise/internal/events"
	"github.com/dohr-michael/appraise/internal/session"
	"github.com/dohr-michael/appraise/internal/tasks"
)

// EventSink receives the audit events the client records.
type EventSink interface {
	Append(e events.Event) error
}

// Options carries the presentation settings from the tui config block.
type Options struct {
	Theme      string
	RawRecords bool
}

type clearStatusMsg struct {
	seq int
}

// App is the root model. It owns the session and translates component
// messages into session mutations; components never touch the store.
type App struct {
	sess *session.Session
	sink EventSink

	header  *components.Header
	record  *components.RecordPane
	form    *components.ScoreForm
	picker  *components.ComparePicker
	comment *components.CommentBox
	footer  *components.Footer

	width     int
	height    int
	statusSeq int
	quitting  bool
}

// NewApp builds the client for an open session.
func NewApp(sess *session.Session, sink EventSink, opts Options) *App {
	ApplyTheme(opts.Theme)
	task := sess.Task()

	a := &App{
		sess:    sess,
		sink:    sink,
		header:  components.NewHeader(task.Title, string(task.Mode)),
		record:  components.NewRecordPane(task, opts.Theme, opts.RawRecords),
		comment: components.NewCommentBox(),
		footer:  components.NewFooter(),
	}
	if task.Mode == tasks.ModeComparison {
		left, _ := task.FieldWithRole(tasks.RoleLeft)
		right, _ := task.FieldWithRole(tasks.RoleRight)
		a.picker = components.NewComparePicker(left.Label, right.Label)
	} else {
		a.form = components.NewScoreForm(task.Dimensions)
	}
	a.syncFromSession()
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()

	case tea.KeyMsg:
		_, cmd = a.handleKey(msg)

	case components.ScoreSetMsg:
		a.sess.SetScore(msg.DimensionID, msg.Value)
		a.header.SetDirty(true)

	case components.SelectionMsg:
		a.sess.SetSelection(msg.Selection)
		a.header.SetDirty(true)

	case components.CommentChangedMsg:
		a.sess.SetComment(msg.Text)
		a.header.SetDirty(true)

	case components.InvalidEntryMsg:
		cmd = a.flash(fmt.Sprintf("not a number: %q", msg.Input), true)

	case clearStatusMsg:
		if msg.seq == a.statusSeq {
			a.footer.ClearStatus()
		}
	}
	a.footer.SetHints(a.hints())
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		// Quit even when the final write fails; only then is the draft lost.
		_ = a.saveOnExit()
		a.quitting = true
		return a, tea.Quit
	}

	// An open score entry captures every other key.
	if a.form != nil && a.form.Editing() {
		return a, a.form.Update(msg)
	}

	if a.comment.Focused() {
		switch key {
		case "tab", "esc", "enter":
			a.comment.Blur()
			return a, nil
		case "pgup":
			a.record.PageUp()
			return a, nil
		case "pgdown":
			a.record.PageDown()
			return a, nil
		}
		return a, a.comment.Update(msg)
	}

	switch key {
	case "q":
		if err := a.saveOnExit(); err != nil {
			return a, a.flash("save failed: "+err.Error()+" (ctrl+c quits anyway)", true)
		}
		a.quitting = true
		return a, tea.Quit
	case "tab":
		return a, a.comment.Focus()
	case "left", "h", "p":
		return a, a.nav(-1)
	case "right", "l", "n":
		return a, a.nav(+1)
	case "s":
		return a, a.save()
	case "r":
		a.record.ToggleRaw()
		return a, nil
	case "pgup":
		a.record.PageUp()
		return a, nil
	case "pgdown":
		a.record.PageDown()
		return a, nil
	}

	if a.form != nil {
		return a, a.form.Update(msg)
	}
	return a, a.picker.Update(msg)
}

// nav moves to the adjacent record. The session saves the outgoing draft
// first; the audit trail gets an evaluation event only when that draft
// actually held edits.
func (a *App) nav(delta int) tea.Cmd {
	if len(a.sess.Task().Records) == 0 {
		return nil
	}
	from := a.sess.Index()
	fromRec := a.sess.Record()
	wasDirty := !a.sess.IsSaved()

	var err error
	if delta < 0 {
		err = a.sess.Prev()
	} else {
		err = a.sess.Next()
	}
	if err != nil {
		return a.flash("save failed: "+err.Error(), true)
	}

	if wasDirty {
		p := a.sess.Progress()
		a.appendAudit(events.EvaluationSavedPayload{
			RecordID: fromRec.ID,
			Index:    from,
			Done:     p.Done,
			Total:    p.Total,
			Percent:  p.Percent,
		})
	}
	if to := a.sess.Index(); to != from {
		a.appendAudit(events.SessionMovedPayload{
			FromIndex: from,
			ToIndex:   to,
			RecordID:  a.sess.Record().ID,
		})
	}
	a.syncFromSession()
	return nil
}

func (a *App) save() tea.Cmd {
	rec := a.sess.Record()
	if rec.ID == "" {
		return nil
	}
	idx := a.sess.Index()
	if err := a.sess.Save(); err != nil {
		return a.flash("save failed: "+err.Error(), true)
	}
	p := a.sess.Progress()
	a.appendAudit(events.EvaluationSavedPayload{
		RecordID: rec.ID,
		Index:    idx,
		Done:     p.Done,
		Total:    p.Total,
		Percent:  p.Percent,
	})
	a.header.SetDirty(false)
	a.footer.SetProgress(p.Done, p.Total)
	return a.flash("saved "+rec.ID, false)
}

func (a *App) saveOnExit() error {
	rec := a.sess.Record()
	if rec.ID == "" {
		return nil
	}
	wasDirty := !a.sess.IsSaved()
	idx := a.sess.Index()
	if err := a.sess.Save(); err != nil {
		return err
	}
	if wasDirty {
		p := a.sess.Progress()
		a.appendAudit(events.EvaluationSavedPayload{
			RecordID: rec.ID,
			Index:    idx,
			Done:     p.Done,
			Total:    p.Total,
			Percent:  p.Percent,
		})
	}
	return nil
}

// syncFromSession refreshes every component from the current draft.
func (a *App) syncFromSession() {
	draft := a.sess.Draft()
	a.header.SetPosition(a.sess.Index(), len(a.sess.Task().Records))
	a.header.SetDirty(!a.sess.IsSaved())
	a.record.ShowRecord(a.sess.Record())
	if a.form != nil {
		a.form.Load(draft.Scores)
	}
	if a.picker != nil {
		a.picker.Load(draft.Selection)
	}
	a.comment.Load(draft.Comment)
	p := a.sess.Progress()
	a.footer.SetProgress(p.Done, p.Total)
}

func (a *App) appendAudit(payload events.EventPayload) {
	if a.sink == nil {
		return
	}
	_ = a.sink.Append(events.NewTypedEventForTask(events.SourceTUI, payload, a.sess.Task().ID))
}

func (a *App) flash(text string, isError bool) tea.Cmd {
	a.statusSeq++
	seq := a.statusSeq
	a.footer.SetStatus(text, isError)
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

func (a *App) layout() {
	if a.width <= 0 || a.height <= 0 {
		return
	}
	a.header.SetWidth(a.width)
	a.footer.SetWidth(a.width)
	a.comment.SetWidth(a.width)

	formHeight := 1
	if a.form != nil {
		a.form.SetWidth(a.width)
		formHeight = a.form.Height()
	}
	// header + separator + comment + footer lines around the record pane.
	recordHeight := a.height - formHeight - 6
	if recordHeight < 3 {
		recordHeight = 3
	}
	a.record.SetSize(a.width, recordHeight)
}

func (a *App) hints() string {
	if a.comment.Focused() {
		return "tab/esc done · pgup/pgdn scroll"
	}
	if a.form != nil {
		if a.form.Editing() {
			return "enter confirm · esc cancel"
		}
		return "←/→ record · ↑/↓ dimension · 1-9 set · +/- step · enter exact · tab comment · s save · r raw · q quit"
	}
	return "←/→ record · a/b/t pick · tab comment · s save · r raw · q quit"
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting || a.width <= 0 {
		return ""
	}
	rule := lipgloss.NewStyle().
		Foreground(components.Border).
		Render(strings.Repeat("─", a.width))

	judgment := ""
	if a.form != nil {
		judgment = a.form.View()
	} else {
		judgment = a.picker.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.header.View(),
		a.record.View(),
		rule,
		judgment,
		a.comment.View(),
		rule,
		a.footer.View(),
	)
}
