package tasks

import (
	"fmt"
	"strings"
	"time"

	"github.com/dohr-michael/appraise/internal/record"
)

// ValidationError reports a violated task invariant. Creation is all or
// nothing: no task is persisted when one is returned.
type ValidationError struct {
	Rule string
}

func (e *ValidationError) Error() string { return "validation: " + e.Rule }

// New validates the draft parts and assembles a task. Mappings with role
// ignore are dropped from the stored field list; record payloads keep every
// original property regardless. Dimensions without an id get one, and a zero
// step defaults to 1.
func New(title, description string, mode Mode, fields []FieldMapping, dims []Dimension, records []record.Record) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Rule: "title required"}
	}
	if mode != ModeScoring && mode != ModeComparison {
		return nil, &ValidationError{Rule: fmt.Sprintf("unknown mode %q", mode)}
	}
	if mode == ModeComparison && (!hasRole(fields, RoleLeft) || !hasRole(fields, RoleRight)) {
		return nil, &ValidationError{Rule: "missing A/B mapping"}
	}
	// A scoring task without a target mapping stays legal (context-only
	// review); callers surface it through Warnings.

	switch mode {
	case ModeScoring:
		if len(dims) == 0 {
			return nil, &ValidationError{Rule: "at least one dimension required"}
		}
	case ModeComparison:
		if len(dims) > 0 {
			return nil, &ValidationError{Rule: "dimensions are only allowed in scoring mode"}
		}
	}
	kept := make([]Dimension, len(dims))
	for i, d := range dims {
		if d.Min >= d.Max {
			return nil, &ValidationError{Rule: fmt.Sprintf("dimension %q: min must be less than max", d.Name)}
		}
		if d.Step < 0 {
			return nil, &ValidationError{Rule: fmt.Sprintf("dimension %q: step must be positive", d.Name)}
		}
		if d.Step == 0 {
			d.Step = 1
		}
		if d.ID == "" {
			d.ID = GenerateDimensionID()
		}
		kept[i] = d
	}

	seen := make(map[string]bool)
	var mapped []FieldMapping
	for _, f := range fields {
		if seen[f.Key] {
			return nil, &ValidationError{Rule: fmt.Sprintf("duplicate field key %q", f.Key)}
		}
		seen[f.Key] = true
		if !roleAllowed(f.Role, mode) {
			return nil, &ValidationError{Rule: fmt.Sprintf("field %q: role %q not allowed in %s mode", f.Key, f.Role, mode)}
		}
		if f.Role == RoleIgnore {
			continue
		}
		if f.Label == "" {
			f.Label = DefaultLabel(f.Key)
		}
		mapped = append(mapped, f)
	}

	return &Task{
		ID:          GenerateTaskID(),
		Title:       title,
		Description: strings.TrimSpace(description),
		Mode:        mode,
		CreatedAt:   time.Now().UTC(),
		Fields:      mapped,
		Dimensions:  kept,
		Records:     records,
	}, nil
}

// Warnings lists non-blocking issues with a task; today only a scoring task
// without a target mapping, which exports a literal Target column instead of
// a record field.
func (t *Task) Warnings() []string {
	var out []string
	if t.Mode == ModeScoring {
		if _, ok := t.FieldWithRole(RoleTarget); !ok {
			out = append(out, "no field is mapped to target; export falls back to a literal Target column")
		}
	}
	return out
}

func hasRole(fields []FieldMapping, role Role) bool {
	for _, f := range fields {
		if f.Role == role {
			return true
		}
	}
	return false
}

func roleAllowed(role Role, mode Mode) bool {
	switch role {
	case RoleContext, RoleIgnore:
		return true
	case RoleTarget:
		return mode == ModeScoring
	case RoleLeft, RoleRight:
		return mode == ModeComparison
	}
	return false
}
