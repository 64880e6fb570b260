package tasks

import (
	"reflect"
	"testing"
)

func TestInferRoleScoring(t *testing.T) {
	cases := []struct {
		key  string
		want Role
	}{
		{"prompt", RoleContext},
		{"user_input", RoleContext},
		{"Query", RoleContext},
		{"question_text", RoleContext},
		{"context", RoleContext},
		{"response", RoleTarget},
		{"model_output", RoleTarget},
		{"answer", RoleTarget},
		{"target", RoleTarget},
		{"score", RoleIgnore},
		{"metadata", RoleIgnore},
		{"model_a", RoleIgnore}, // comparison-only rule must not fire
	}
	for _, tc := range cases {
		if got := InferRole(tc.key, ModeScoring); got != tc.want {
			t.Errorf("InferRole(%q, scoring): got %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestInferRoleComparison(t *testing.T) {
	cases := []struct {
		key  string
		want Role
	}{
		{"modelA", RoleLeft},
		{"outputA", RoleLeft},
		{"response_a", RoleLeft}, // target rule is scoring-only, suffix rule fires
		{"modelB", RoleRight},
		{"outputB", RoleRight},
		{"candidate_b", RoleRight},
		{"prompt", RoleContext},
		{"response", RoleIgnore}, // target rule is scoring-only
		{"notes", RoleIgnore},
	}
	for _, tc := range cases {
		if got := InferRole(tc.key, ModeComparison); got != tc.want {
			t.Errorf("InferRole(%q, comparison): got %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestInferRoleFirstMatchWins(t *testing.T) {
	// "input_a" matches the context keyword before the left-item suffix rule.
	if got := InferRole("input_a", ModeComparison); got != RoleContext {
		t.Errorf("InferRole(input_a, comparison): got %q, want %q", got, RoleContext)
	}
}

func TestInferFieldsDeterministic(t *testing.T) {
	keys := []string{"prompt", "model_a", "model_b", "meta"}
	first := InferFields(keys, ModeComparison)
	second := InferFields(keys, ModeComparison)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("InferFields not deterministic:\n%v\n%v", first, second)
	}

	want := []FieldMapping{
		{Key: "prompt", Role: RoleContext, Label: "Prompt"},
		{Key: "model_a", Role: RoleLeft, Label: "Model a"},
		{Key: "model_b", Role: RoleRight, Label: "Model b"},
		{Key: "meta", Role: RoleIgnore, Label: "Meta"},
	}
	if !reflect.DeepEqual(first, want) {
		t.Errorf("InferFields: got %v, want %v", first, want)
	}
}

func TestDefaultLabel(t *testing.T) {
	cases := []struct{ key, want string }{
		{"prompt", "Prompt"},
		{"user_input", "User input"},
		{"alreadyCapital", "AlreadyCapital"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := DefaultLabel(tc.key); got != tc.want {
			t.Errorf("DefaultLabel(%q): got %q, want %q", tc.key, got, tc.want)
		}
	}
}
