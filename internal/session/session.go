// Package session drives the ordered walk over a task's records during an
// evaluation run: draft loading, dirty tracking, autosave on navigation and
// resume-point selection. Pure state machine, no rendering.
package session

import (
	"math"
	"time"

	"github.com/dohr-michael/appraise/internal/evals"
	"github.com/dohr-michael/appraise/internal/record"
	"github.com/dohr-michael/appraise/internal/tasks"
)

// Storage is the slice of the persistence store a session needs.
type Storage interface {
	GetEvaluations(taskID string) evals.Map
	SaveEvaluation(taskID string, r evals.Result) error
}

// Session walks one task's records in import order, holding the judgment
// draft for the current record. Records are never reordered.
type Session struct {
	task    *tasks.Task
	store   Storage
	saved   evals.Map
	index   int
	draft   evals.Result
	isSaved bool
}

// New opens a session on a task, resuming at the first record without a saved
// result. When every record already has one, the walk restarts at the first
// record for full review.
func New(task *tasks.Task, st Storage) *Session {
	s := &Session{task: task, store: st}
	s.saved = st.GetEvaluations(task.ID)
	if s.saved == nil {
		s.saved = evals.Map{}
	}
	s.index = resumeIndex(task, s.saved)
	s.loadDraft()
	return s
}

func resumeIndex(task *tasks.Task, saved evals.Map) int {
	for i, r := range task.Records {
		if _, ok := saved[r.ID]; !ok {
			return i
		}
	}
	return 0
}

// loadDraft replaces the draft with the saved result for the current record,
// or a fresh empty one. A freshly loaded draft is never dirty.
func (s *Session) loadDraft() {
	if len(s.task.Records) == 0 {
		s.draft = evals.Result{}
		s.isSaved = true
		return
	}
	rec := s.task.Records[s.index]
	if existing, ok := s.saved[rec.ID]; ok {
		s.draft = existing.Clone()
	} else {
		s.draft = evals.NewDraft(s.task.ID, rec.ID)
	}
	s.isSaved = true
}

// Task returns the task under evaluation.
func (s *Session) Task() *tasks.Task { return s.task }

// Index returns the position of the current record.
func (s *Session) Index() int { return s.index }

// Record returns the record under evaluation.
func (s *Session) Record() record.Record {
	if len(s.task.Records) == 0 {
		return record.Record{}
	}
	return s.task.Records[s.index]
}

// Draft returns a copy of the current judgment draft.
func (s *Session) Draft() evals.Result { return s.draft.Clone() }

// IsSaved reports whether the draft matches what the store holds.
func (s *Session) IsSaved() bool { return s.isSaved }

// Evaluated reports whether a record already has a saved result.
func (s *Session) Evaluated(recordID string) bool {
	_, ok := s.saved[recordID]
	return ok
}

// SetScore records a score for one dimension and marks the draft dirty.
func (s *Session) SetScore(dimensionID string, value float64) {
	if s.draft.Scores == nil {
		s.draft.Scores = make(map[string]float64)
	}
	s.draft.Scores[dimensionID] = value
	s.isSaved = false
}

// SetSelection records the comparison outcome and marks the draft dirty.
func (s *Session) SetSelection(sel evals.Selection) {
	s.draft.Selection = sel
	s.isSaved = false
}

// SetComment replaces the draft comment and marks the draft dirty.
func (s *Session) SetComment(comment string) {
	s.draft.Comment = comment
	s.isSaved = false
}

// Save stamps the draft and writes it through the store, replacing the whole
// entry for the record. Saving twice persists the same judgment with a newer
// timestamp.
func (s *Session) Save() error {
	if len(s.task.Records) == 0 {
		return nil
	}
	s.draft.UpdatedAt = time.Now().UTC()
	persisted := s.draft.Clone()
	if err := s.store.SaveEvaluation(s.task.ID, persisted); err != nil {
		return err
	}
	s.saved[persisted.RecordID] = persisted
	s.isSaved = true
	return nil
}

// Next saves the draft, then advances one record. At the last record the
// position stays put; the save still happens.
func (s *Session) Next() error { return s.move(s.index + 1) }

// Prev saves the draft, then steps back one record. At the first record the
// position stays put; the save still happens.
func (s *Session) Prev() error { return s.move(s.index - 1) }

// Seek saves the draft, then jumps to the given index, clamped to the record
// range.
func (s *Session) Seek(i int) error { return s.move(i) }

func (s *Session) move(target int) error {
	if len(s.task.Records) == 0 {
		return nil
	}
	if err := s.Save(); err != nil {
		return err
	}
	if target < 0 {
		target = 0
	}
	if last := len(s.task.Records) - 1; target > last {
		target = last
	}
	if target == s.index {
		return nil
	}
	s.index = target
	s.loadDraft()
	return nil
}

// Progress summarizes completion over a task's records.
type Progress struct {
	Done    int `json:"done"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// Compute derives a progress summary from completed and total counts. Percent
// is 0 for a task with no records.
func Compute(done, total int) Progress {
	p := Progress{Done: done, Total: total}
	if total > 0 {
		p.Percent = int(math.Round(100 * float64(done) / float64(total)))
	}
	return p
}

// Progress reports how many records of the task carry a saved result.
func (s *Session) Progress() Progress {
	return Compute(len(s.saved), len(s.task.Records))
}
