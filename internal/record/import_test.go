package record

import (
	"errors"
	"strings"
	"testing"
)

func TestImportCountAndUniqueIDs(t *testing.T) {
	input := `[{"id":"1","q":"a"},{"id":"2","q":"b"},{"q":"c"},{"q":"d"}]`

	records, err := Import(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("records: got %d, want 4", len(records))
	}

	seen := make(map[string]bool)
	for i, r := range records {
		if r.ID == "" {
			t.Errorf("record %d: empty id", i)
		}
		if seen[r.ID] {
			t.Errorf("record %d: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = true
	}
	if records[0].ID != "1" || records[1].ID != "2" {
		t.Errorf("explicit ids: got %q, %q, want \"1\", \"2\"", records[0].ID, records[1].ID)
	}
}

func TestImportIDCoercion(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		synthet bool
	}{
		{"string id", `[{"id":"abc"}]`, "abc", false},
		{"integer id", `[{"id":7}]`, "7", false},
		{"float id keeps literal", `[{"id":2.5}]`, "2.5", false},
		{"bool id", `[{"id":true}]`, "true", false},
		{"null id synthesized", `[{"id":null}]`, "", true},
		{"empty string synthesized", `[{"id":""}]`, "", true},
		{"object id synthesized", `[{"id":{"x":1}}]`, "", true},
		{"missing id synthesized", `[{"q":"a"}]`, "", true},
	}
	for _, tc := range cases {
		records, err := Import(strings.NewReader(tc.input))
		if err != nil {
			t.Fatalf("%s: Import: %v", tc.name, err)
		}
		if len(records) != 1 {
			t.Fatalf("%s: got %d records, want 1", tc.name, len(records))
		}
		id := records[0].ID
		if tc.synthet {
			if !strings.HasPrefix(id, "rec_") {
				t.Errorf("%s: got %q, want synthesized rec_ id", tc.name, id)
			}
		} else if id != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, id, tc.want)
		}
	}
}

func TestImportDuplicateIDs(t *testing.T) {
	records, err := Import(strings.NewReader(`[{"id":"1"},{"id":"1"},{"id":"1"}]`))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if records[0].ID != "1" {
		t.Errorf("first record keeps its id: got %q, want %q", records[0].ID, "1")
	}
	for i, r := range records[1:] {
		if r.ID == "1" {
			t.Errorf("record %d: duplicate id not replaced", i+1)
		}
		if !strings.HasPrefix(r.ID, "rec_") {
			t.Errorf("record %d: got %q, want synthesized rec_ id", i+1, r.ID)
		}
	}
}

func TestImportRejects(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"object top level", `{"id":"1"}`},
		{"string top level", `"nope"`},
		{"malformed", `[{"id":`},
		{"element not object", `[1,2,3]`},
		{"trailing content", `[] extra`},
	}
	for _, tc := range cases {
		_, err := Import(strings.NewReader(tc.input))
		if err == nil {
			t.Fatalf("%s: expected error, got nil", tc.name)
		}
		var importErr *ImportError
		if !errors.As(err, &importErr) {
			t.Errorf("%s: got %T, want *ImportError", tc.name, err)
		}
	}
}

func TestImportEmptyArray(t *testing.T) {
	records, err := Import(strings.NewReader(`[]`))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records: got %d, want 0", len(records))
	}
}

func TestImportPreservesPayload(t *testing.T) {
	records, err := Import(strings.NewReader(`[{"zulu":"z","alpha":"a","id":"1","nested":{"b":2,"a":1}}]`))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	keys := records[0].Data.Keys()
	want := []string{"zulu", "alpha", "id", "nested"}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("Keys[%d]: got %q, want %q", i, keys[i], k)
		}
	}

	nested, ok := records[0].Field("nested")
	if !ok || nested.Kind != KindObject {
		t.Fatal("expected nested object field")
	}
	if got := nested.Text(); got != `{"b":2,"a":1}` {
		t.Errorf("nested text: got %q, want %q", got, `{"b":2,"a":1}`)
	}
}
