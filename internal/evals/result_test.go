package evals

import "testing"

func TestCloneDoesNotAliasScores(t *testing.T) {
	original := NewDraft("task_1", "rec_1")
	original.Scores["dim_1"] = 3

	clone := original.Clone()
	clone.Scores["dim_1"] = 5

	if original.Scores["dim_1"] != 3 {
		t.Errorf("original mutated through clone: got %v, want 3", original.Scores["dim_1"])
	}
}

func TestSelectionValid(t *testing.T) {
	for _, s := range []Selection{SelectLeft, SelectRight, SelectTie} {
		if !s.Valid() {
			t.Errorf("%q: expected valid", s)
		}
	}
	for _, s := range []Selection{"", "both", "LEFT"} {
		if s.Valid() {
			t.Errorf("%q: expected invalid", s)
		}
	}
}
