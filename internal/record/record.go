package record

import (
	"strings"

	"github.com/google/uuid"
)

// Record is one imported item within an evaluation task. Data holds every
// property of the source object, including ones no field mapping refers to.
type Record struct {
	ID   string  `json:"id"`
	Data *Object `json:"data"`
}

// Field looks up a property of the record's payload.
func (r Record) Field(key string) (Value, bool) {
	return r.Data.Get(key)
}

// GenerateRecordID creates a unique record identifier.
func GenerateRecordID() string {
	u := uuid.New().String()
	return "rec_" + strings.ReplaceAll(u[:8], "-", "")
}
