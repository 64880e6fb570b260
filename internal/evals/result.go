// Package evals holds operator judgments recorded against task records.
package evals

import "time"

// Selection is the outcome of a comparison judgment.
type Selection string

const (
	SelectLeft  Selection = "left"
	SelectRight Selection = "right"
	SelectTie   Selection = "tie"
)

// Valid reports whether s is one of the three comparison outcomes.
func (s Selection) Valid() bool {
	return s == SelectLeft || s == SelectRight || s == SelectTie
}

// Result is one judgment for one record within one task. At most one exists
// per (task, record) pair; every save replaces the whole entry. Scores carries
// dimension-id keyed values for scoring tasks, Selection the chosen side for
// comparison tasks.
type Result struct {
	TaskID    string             `json:"task_id"`
	RecordID  string             `json:"record_id"`
	Scores    map[string]float64 `json:"scores,omitempty"`
	Selection Selection          `json:"selection,omitempty"`
	Comment   string             `json:"comment"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Map indexes one task's results by record id.
type Map map[string]Result

// NewDraft creates an empty judgment for a record: no scores, no selection,
// empty comment, stamped now.
func NewDraft(taskID, recordID string) Result {
	return Result{
		TaskID:    taskID,
		RecordID:  recordID,
		Scores:    make(map[string]float64),
		UpdatedAt: time.Now().UTC(),
	}
}

// Clone returns a deep copy, so draft edits never alias a saved result.
func (r Result) Clone() Result {
	out := r
	if r.Scores != nil {
		out.Scores = make(map[string]float64, len(r.Scores))
		for k, v := range r.Scores {
			out.Scores[k] = v
		}
	}
	return out
}
