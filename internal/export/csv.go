// Package export renders a task and its evaluations as a CSV document.
package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/dohr-michael/appraise/internal/evals"
	"github.com/dohr-michael/appraise/internal/record"
	"github.com/dohr-michael/appraise/internal/tasks"
)

// Encode produces the CSV text for a task: one header row, then one row per
// record in import order. Unevaluated records appear with blank judgment
// cells. Every value cell is double-quoted with embedded quotes doubled,
// except score cells, which stay raw so spreadsheets read them as numbers.
func Encode(task *tasks.Task, evaluations evals.Map) string {
	rows := make([]string, 0, len(task.Records)+1)
	rows = append(rows, strings.Join(header(task), ","))
	for _, rec := range task.Records {
		result, evaluated := evaluations[rec.ID]
		rows = append(rows, strings.Join(row(task, rec, result, evaluated), ","))
	}
	return strings.Join(rows, "\n")
}

// Filename derives the download name for a task's results: the title with
// whitespace collapsed to underscores, suffixed _results.csv.
func Filename(task *tasks.Task) string {
	return strings.Join(strings.Fields(task.Title), "_") + "_results.csv"
}

// header builds the column names. Headers are written plain, without the
// value-cell quoting.
func header(task *tasks.Task) []string {
	cols := []string{"RecordID"}
	for _, f := range task.ContextFields() {
		cols = append(cols, "Context: "+f.Label)
	}
	switch task.Mode {
	case tasks.ModeScoring:
		if target, ok := task.FieldWithRole(tasks.RoleTarget); ok {
			cols = append(cols, "Target: "+target.Label)
		} else {
			cols = append(cols, "Target")
		}
		for _, d := range task.Dimensions {
			cols = append(cols, "Score: "+d.Name)
		}
	case tasks.ModeComparison:
		cols = append(cols, "Model A", "Model B", "Selection")
	}
	return append(cols, "Comments", "Timestamp")
}

func row(task *tasks.Task, rec record.Record, result evals.Result, evaluated bool) []string {
	cells := []string{quote(rec.ID)}
	for _, f := range task.ContextFields() {
		cells = append(cells, fieldCell(rec, f.Key))
	}
	switch task.Mode {
	case tasks.ModeScoring:
		if target, ok := task.FieldWithRole(tasks.RoleTarget); ok {
			cells = append(cells, fieldCell(rec, target.Key))
		} else {
			cells = append(cells, quote(""))
		}
		for _, d := range task.Dimensions {
			cells = append(cells, scoreCell(result, d.ID, evaluated))
		}
	case tasks.ModeComparison:
		left, _ := task.FieldWithRole(tasks.RoleLeft)
		right, _ := task.FieldWithRole(tasks.RoleRight)
		cells = append(cells, fieldCell(rec, left.Key), fieldCell(rec, right.Key))
		cells = append(cells, quote(selectionToken(result, evaluated)))
	}
	cells = append(cells, quote(result.Comment))
	if evaluated {
		cells = append(cells, quote(result.UpdatedAt.UTC().Format(time.RFC3339)))
	} else {
		cells = append(cells, quote(""))
	}
	return cells
}

// fieldCell renders one record property: null and missing become empty,
// arrays and objects their canonical JSON, everything else its string form.
func fieldCell(rec record.Record, key string) string {
	v, ok := rec.Field(key)
	if !ok {
		return quote("")
	}
	return quote(v.Text())
}

// scoreCell is the quoting exception: a raw number, or empty when the
// dimension has no recorded score.
func scoreCell(result evals.Result, dimensionID string, evaluated bool) string {
	if !evaluated {
		return ""
	}
	v, ok := result.Scores[dimensionID]
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// selectionToken renders the comparison outcome, Pending when none was made.
func selectionToken(result evals.Result, evaluated bool) string {
	if !evaluated || result.Selection == "" {
		return "Pending"
	}
	return string(result.Selection)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
