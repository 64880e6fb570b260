package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ImportError reports a rejected import payload. No partial record set is ever
// returned alongside one.
type ImportError struct {
	Reason string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return "import: " + e.Reason + ": " + e.Err.Error()
	}
	return "import: " + e.Reason
}

func (e *ImportError) Unwrap() error { return e.Err }

// Import reads a JSON array of objects and turns each element into a Record.
// An "id" property with a usable string form becomes the record identifier;
// missing, empty or duplicate identifiers are replaced by synthesized ones so
// ids stay unique within the batch. Any non-array top level, non-object
// element or syntax error rejects the whole payload.
func Import(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, &ImportError{Reason: "malformed JSON", Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, &ImportError{Reason: "top-level value must be an array"}
	}

	var records []Record
	seen := make(map[string]bool)
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, &ImportError{Reason: "malformed JSON", Err: err}
		}
		if v.Kind != KindObject {
			return nil, &ImportError{Reason: fmt.Sprintf("element %d is not an object", len(records))}
		}
		id := payloadID(v.Obj)
		for id == "" || seen[id] {
			id = GenerateRecordID()
		}
		seen[id] = true
		records = append(records, Record{ID: id, Data: v.Obj})
	}
	if _, err := dec.Token(); err != nil {
		return nil, &ImportError{Reason: "malformed JSON", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ImportError{Reason: "trailing content after records array"}
	}

	return records, nil
}

// payloadID extracts an identifier from the imported object, or "" when no
// property has a usable string form.
func payloadID(obj *Object) string {
	v, ok := obj.Get("id")
	if !ok {
		return ""
	}
	switch v.Kind {
	case KindString:
		return strings.TrimSpace(v.Str)
	case KindNumber:
		return v.Num.String()
	case KindBool:
		return strconv.FormatBool(v.Bool)
	}
	return ""
}
