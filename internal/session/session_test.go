package session

import (
	"strings"
	"testing"
	"time"

	"github.com/dohr-michael/appraise/internal/evals"
	"github.com/dohr-michael/appraise/internal/record"
	"github.com/dohr-michael/appraise/internal/store"
	"github.com/dohr-michael/appraise/internal/storage/kvstore"
	"github.com/dohr-michael/appraise/internal/tasks"
)

func scoringTask(t *testing.T, n int) *tasks.Task {
	t.Helper()
	var items []string
	for i := 0; i < n; i++ {
		items = append(items, `{"id":"`+string(rune('a'+i))+`","prompt":"Q","response":"A"}`)
	}
	records, err := record.Import(strings.NewReader("[" + strings.Join(items, ",") + "]"))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	task, err := tasks.New("Walk", "", tasks.ModeScoring,
		[]tasks.FieldMapping{
			{Key: "prompt", Role: tasks.RoleContext, Label: "Prompt"},
			{Key: "response", Role: tasks.RoleTarget, Label: "Response"},
		},
		[]tasks.Dimension{{ID: "dim_q", Name: "Quality", Min: 0, Max: 5}},
		records)
	if err != nil {
		t.Fatalf("tasks.New: %v", err)
	}
	return task
}

func TestResumeAtFirstUnevaluated(t *testing.T) {
	st := store.New(kvstore.NewMemory())
	task := scoringTask(t, 3)
	if err := st.SaveTask(task); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}

	// Nothing saved: start at 0.
	if got := New(task, st).Index(); got != 0 {
		t.Errorf("fresh task index: got %d, want 0", got)
	}

	// First record saved: resume at 1.
	if err := st.SaveEvaluation(task.ID, evals.NewDraft(task.ID, task.Records[0].ID)); err != nil {
		t.Fatalf("SaveEvaluation: %v", err)
	}
	if got := New(task, st).Index(); got != 1 {
		t.Errorf("partial task index: got %d, want 1", got)
	}

	// Everything saved: restart at 0 for full review.
	for _, r := range task.Records[1:] {
		if err := st.SaveEvaluation(task.ID, evals.NewDraft(task.ID, r.ID)); err != nil {
			t.Fatalf("SaveEvaluation: %v", err)
		}
	}
	if got := New(task, st).Index(); got != 0 {
		t.Errorf("complete task index: got %d, want 0", got)
	}
}

func TestDraftLifecycle(t *testing.T) {
	st := store.New(kvstore.NewMemory())
	task := scoringTask(t, 2)
	s := New(task, st)

	if !s.IsSaved() {
		t.Fatal("fresh draft reported dirty")
	}
	draft := s.Draft()
	if draft.RecordID != task.Records[0].ID {
		t.Errorf("draft record: got %q, want %q", draft.RecordID, task.Records[0].ID)
	}
	if len(draft.Scores) != 0 || draft.Comment != "" {
		t.Errorf("fresh draft not empty: %+v", draft)
	}

	before := time.Now().UTC()
	s.SetScore("dim_q", 4)
	if s.IsSaved() {
		t.Fatal("mutated draft reported saved")
	}
	s.SetComment("solid")
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !s.IsSaved() {
		t.Fatal("saved draft reported dirty")
	}

	m := st.GetEvaluations(task.ID)
	got, ok := m[task.Records[0].ID]
	if !ok {
		t.Fatal("saved result missing from store")
	}
	if got.Scores["dim_q"] != 4 || got.Comment != "solid" {
		t.Errorf("persisted result: %+v", got)
	}
	if got.UpdatedAt.Before(before) {
		t.Errorf("UpdatedAt %v before save time %v", got.UpdatedAt, before)
	}
}

func TestSavedResultLoadsVerbatim(t *testing.T) {
	st := store.New(kvstore.NewMemory())
	task := scoringTask(t, 2)

	saved := evals.NewDraft(task.ID, task.Records[0].ID)
	saved.Scores["dim_q"] = 2
	saved.Comment = "earlier pass"
	if err := st.SaveEvaluation(task.ID, saved); err != nil {
		t.Fatalf("SaveEvaluation: %v", err)
	}

	s := New(task, st)
	// Resume lands on record 1; seek back to the evaluated one.
	if err := s.Seek(0); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	draft := s.Draft()
	if draft.Scores["dim_q"] != 2 || draft.Comment != "earlier pass" {
		t.Errorf("draft did not load saved result: %+v", draft)
	}
	if !s.IsSaved() {
		t.Error("loaded draft reported dirty")
	}

	// Editing the draft must not leak into the saved map before Save.
	s.SetScore("dim_q", 5)
	if got := st.GetEvaluations(task.ID)[task.Records[0].ID].Scores["dim_q"]; got != 2 {
		t.Errorf("store mutated before save: got %v, want 2", got)
	}
}

func TestNavigationAutosavesAndClamps(t *testing.T) {
	st := store.New(kvstore.NewMemory())
	task := scoringTask(t, 2)
	s := New(task, st)

	s.SetScore("dim_q", 3)
	if err := s.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if s.Index() != 1 {
		t.Fatalf("Index after Next: got %d, want 1", s.Index())
	}
	// The move persisted the first record's draft.
	if got := st.GetEvaluations(task.ID)[task.Records[0].ID].Scores["dim_q"]; got != 3 {
		t.Errorf("autosave on Next: got %v, want 3", got)
	}

	// Next at the last record: no wraparound, but the save still runs.
	s.SetScore("dim_q", 1)
	if err := s.Next(); err != nil {
		t.Fatalf("Next at end: %v", err)
	}
	if s.Index() != 1 {
		t.Errorf("Index after boundary Next: got %d, want 1", s.Index())
	}
	if got := st.GetEvaluations(task.ID)[task.Records[1].ID].Scores["dim_q"]; got != 1 {
		t.Errorf("boundary Next skipped the save: got %v, want 1", got)
	}

	// Prev twice: back to 0, then clamped there.
	if err := s.Prev(); err != nil {
		t.Fatalf("Prev: %v", err)
	}
	if err := s.Prev(); err != nil {
		t.Fatalf("Prev at start: %v", err)
	}
	if s.Index() != 0 {
		t.Errorf("Index after boundary Prev: got %d, want 0", s.Index())
	}

	// Seek clamps out-of-range targets.
	if err := s.Seek(99); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if s.Index() != 1 {
		t.Errorf("Index after Seek(99): got %d, want 1", s.Index())
	}
}

func TestProgress(t *testing.T) {
	st := store.New(kvstore.NewMemory())
	task := scoringTask(t, 3)
	s := New(task, st)

	if p := s.Progress(); p.Percent != 0 || p.Done != 0 || p.Total != 3 {
		t.Errorf("initial progress: %+v", p)
	}

	var last int
	for i := 0; i < 3; i++ {
		s.SetScore("dim_q", float64(i))
		if err := s.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
		p := s.Progress()
		if p.Percent < last {
			t.Errorf("percent decreased: %d after %d", p.Percent, last)
		}
		last = p.Percent
	}
	if p := s.Progress(); p.Percent != 100 || p.Done != 3 {
		t.Errorf("final progress: %+v", p)
	}
}

func TestProgressHalfOnTwoRecords(t *testing.T) {
	st := store.New(kvstore.NewMemory())
	records, err := record.Import(strings.NewReader(`[{"id":"1","prompt":"Q","out_a":"x","out_b":"y"},{"id":"2","prompt":"Q2","out_a":"x2","out_b":"y2"}]`))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	task, err := tasks.New("AB", "", tasks.ModeComparison,
		[]tasks.FieldMapping{
			{Key: "prompt", Role: tasks.RoleContext, Label: "Prompt"},
			{Key: "out_a", Role: tasks.RoleLeft, Label: "Out a"},
			{Key: "out_b", Role: tasks.RoleRight, Label: "Out b"},
		}, nil, records)
	if err != nil {
		t.Fatalf("tasks.New: %v", err)
	}

	s := New(task, st)
	s.SetSelection(evals.SelectTie)
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if p := s.Progress(); p.Percent != 50 {
		t.Errorf("percent after one of two: got %d, want 50", p.Percent)
	}
}

func TestComputeRounding(t *testing.T) {
	cases := []struct {
		done, total, want int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{3, 3, 100},
	}
	for _, tc := range cases {
		if got := Compute(tc.done, tc.total).Percent; got != tc.want {
			t.Errorf("Compute(%d, %d): got %d, want %d", tc.done, tc.total, got, tc.want)
		}
	}
}

func TestEmptyTaskSession(t *testing.T) {
	st := store.New(kvstore.NewMemory())
	task := &tasks.Task{ID: "task_empty", Title: "Empty", Mode: tasks.ModeScoring}

	s := New(task, st)
	if s.Index() != 0 {
		t.Errorf("Index: got %d, want 0", s.Index())
	}
	if err := s.Next(); err != nil {
		t.Fatalf("Next on empty: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save on empty: %v", err)
	}
	if len(st.GetEvaluations(task.ID)) != 0 {
		t.Error("empty task produced a persisted evaluation")
	}
	if p := s.Progress(); p.Percent != 0 {
		t.Errorf("Percent: got %d, want 0", p.Percent)
	}
}
