// Package tasks defines evaluation tasks: the judging mode, field role
// mappings, rating dimensions and the imported records they run over.
package tasks

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dohr-michael/appraise/internal/record"
)

// Mode selects how records are judged.
type Mode string

const (
	ModeScoring    Mode = "scoring"    // rate one output on bounded dimensions
	ModeComparison Mode = "comparison" // choose between two outputs
)

// Role places an imported property in the evaluation form. Scoring tasks use
// context/target/ignore, comparison tasks context/left-item/right-item/ignore.
type Role string

const (
	RoleContext Role = "context"
	RoleTarget  Role = "target"
	RoleLeft    Role = "left-item"
	RoleRight   Role = "right-item"
	RoleIgnore  Role = "ignore"
)

// FieldMapping binds one imported property key to a role and a display label.
type FieldMapping struct {
	Key   string `json:"key"`
	Role  Role   `json:"role"`
	Label string `json:"label"`
}

// Dimension is a named bounded rating axis, used only by scoring tasks.
type Dimension struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Step        float64 `json:"step"`
}

// Task is one evaluation campaign. Immutable once persisted; changing a task
// means deleting it and creating a new one.
type Task struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Mode        Mode            `json:"mode"`
	CreatedAt   time.Time       `json:"created_at"`
	Fields      []FieldMapping  `json:"fields"`
	Dimensions  []Dimension     `json:"dimensions,omitempty"`
	Records     []record.Record `json:"records"`
}

// ContextFields returns the context mappings in field-list order.
func (t *Task) ContextFields() []FieldMapping {
	var out []FieldMapping
	for _, f := range t.Fields {
		if f.Role == RoleContext {
			out = append(out, f)
		}
	}
	return out
}

// FieldWithRole returns the first mapping carrying the given role.
func (t *Task) FieldWithRole(role Role) (FieldMapping, bool) {
	for _, f := range t.Fields {
		if f.Role == role {
			return f, true
		}
	}
	return FieldMapping{}, false
}

// RecordByID returns the record with the given id and its position.
func (t *Task) RecordByID(id string) (record.Record, int, bool) {
	for i, r := range t.Records {
		if r.ID == id {
			return r, i, true
		}
	}
	return record.Record{}, -1, false
}

// GenerateTaskID creates a unique task identifier.
func GenerateTaskID() string {
	u := uuid.New().String()
	return "task_" + strings.ReplaceAll(u[:8], "-", "")
}

// GenerateDimensionID creates a unique dimension identifier.
func GenerateDimensionID() string {
	u := uuid.New().String()
	return "dim_" + strings.ReplaceAll(u[:8], "-", "")
}
