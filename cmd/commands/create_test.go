package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dohr-michael/appraise/internal/config"
	"github.com/dohr-michael/appraise/internal/tasks"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadManifest(t *testing.T) {
	path := writeFile(t, t.TempDir(), "task.yaml", `
title: Summary review
description: Weekly batch
mode: scoring
records: /data/batch.json
fields:
  - key: prompt
    role: context
  - key: response
    role: target
    label: Model answer
dimensions:
  - name: Quality
    min: 1
    max: 5
  - name: Depth
    description: How thorough
    min: 0
    max: 10
    step: 0.5
`)

	m, err := readManifest(path)
	if err != nil {
		t.Fatalf("readManifest: %v", err)
	}
	if m.Title != "Summary review" || m.Mode != "scoring" {
		t.Errorf("header: got %q/%q", m.Title, m.Mode)
	}
	if m.Records != "/data/batch.json" {
		t.Errorf("records: got %q", m.Records)
	}
	if len(m.Fields) != 2 || m.Fields[1].Label != "Model answer" {
		t.Fatalf("fields: got %+v", m.Fields)
	}
	if len(m.Dimensions) != 2 || m.Dimensions[1].Step != 0.5 {
		t.Fatalf("dimensions: got %+v", m.Dimensions)
	}
}

func TestReadManifestBadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "task.yaml", "title: [unterminated")
	if _, err := readManifest(path); err == nil || !strings.Contains(err.Error(), "parse manifest") {
		t.Fatalf("err = %v, want parse failure", err)
	}
}

func TestParseMappings(t *testing.T) {
	fields, err := parseMappings([]string{
		"response=target",
		"col_a=left-item:Model A",
	})
	if err != nil {
		t.Fatalf("parseMappings: %v", err)
	}
	if fields[0].Key != "response" || fields[0].Role != tasks.RoleTarget || fields[0].Label != "" {
		t.Errorf("first: got %+v", fields[0])
	}
	if fields[1].Role != tasks.RoleLeft || fields[1].Label != "Model A" {
		t.Errorf("second: got %+v", fields[1])
	}

	for _, bad := range []string{"norole", "=target", "key="} {
		if _, err := parseMappings([]string{bad}); err == nil {
			t.Errorf("parseMappings(%q): expected error", bad)
		}
	}
}

func TestParseDimensions(t *testing.T) {
	dims, err := parseDimensions([]string{"Quality:1:5", "Depth:0:10:0.5"})
	if err != nil {
		t.Fatalf("parseDimensions: %v", err)
	}
	if dims[0].Name != "Quality" || dims[0].Min != 1 || dims[0].Max != 5 || dims[0].Step != 0 {
		t.Errorf("first: got %+v", dims[0])
	}
	if dims[1].Step != 0.5 {
		t.Errorf("second: got %+v", dims[1])
	}

	for _, bad := range []string{"nocolons", "X:a:5", "X:1:b", "X:1:5:c", "X:1"} {
		if _, err := parseDimensions([]string{bad}); err == nil {
			t.Errorf("parseDimensions(%q): expected error", bad)
		}
	}
}

func TestApplyOverrides(t *testing.T) {
	base := []tasks.FieldMapping{
		{Key: "prompt", Role: tasks.RoleContext, Label: "Prompt"},
		{Key: "response", Role: tasks.RoleTarget, Label: "Response"},
	}
	out := applyOverrides(base, []tasks.FieldMapping{
		{Key: "response", Role: tasks.RoleIgnore},
		{Key: "notes", Role: tasks.RoleContext, Label: "Reviewer notes"},
	})

	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if out[1].Role != tasks.RoleIgnore {
		t.Errorf("response role: got %q", out[1].Role)
	}
	if out[1].Label != "Response" {
		t.Errorf("response label: got %q, want base label kept", out[1].Label)
	}
	if out[2].Key != "notes" || out[2].Label != "Reviewer notes" {
		t.Errorf("appended: got %+v", out[2])
	}
}

func TestImportRecordsAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `[{"id": "1", "prompt": "first"}]`)
	writeFile(t, dir, "b.json", `[{"id": "1", "prompt": "second"}, {"id": "2", "prompt": "third"}]`)

	recs, err := importRecords(filepath.Join(dir, "*.json"))
	if err != nil {
		t.Fatalf("importRecords: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len = %d, want 3", len(recs))
	}
	if recs[0].ID != "1" {
		t.Errorf("first keeps its id: got %q", recs[0].ID)
	}
	if recs[1].ID == "1" || !strings.HasPrefix(recs[1].ID, "rec_") {
		t.Errorf("duplicate id not regenerated: got %q", recs[1].ID)
	}
	if recs[2].ID != "2" {
		t.Errorf("third: got %q", recs[2].ID)
	}
}

func TestImportRecordsNoMatch(t *testing.T) {
	if _, err := importRecords(filepath.Join(t.TempDir(), "*.json")); err == nil {
		t.Fatal("expected error for empty glob")
	}
}

func TestCreateFlagsOverrideManifest(t *testing.T) {
	home := t.TempDir()
	t.Setenv("APPRAISE_PATH", home)

	records := writeFile(t, home, "recs.json", `[{"id": "1", "prompt": "q", "response": "a"}]`)
	manifest := writeFile(t, home, "task.yaml", `
title: Manifest title
mode: scoring
records: `+records+`
dimensions:
  - name: Quality
    min: 1
    max: 5
`)

	root := NewRootCommand()
	err := root.Run(context.Background(), []string{
		"appraise", "create", "--manifest", manifest, "--title", "Flag title",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cfg, err := config.LoadOrDefault(config.ConfigPath())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	st, closeStore, err := openStore(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer closeStore()

	list := st.ListTasks()
	if len(list) != 1 {
		t.Fatalf("tasks: got %d, want 1", len(list))
	}
	task := list[0]
	if task.Title != "Flag title" {
		t.Errorf("Title: got %q, want the flag to beat the manifest", task.Title)
	}
	if task.Mode != tasks.ModeScoring || len(task.Records) != 1 {
		t.Errorf("task: mode %q, %d records", task.Mode, len(task.Records))
	}
	if len(task.Fields) != 2 || task.Fields[0].Role != tasks.RoleContext || task.Fields[1].Role != tasks.RoleTarget {
		t.Errorf("inferred fields: got %+v", task.Fields)
	}
}

func TestCreateDryRunPersistsNothing(t *testing.T) {
	home := t.TempDir()
	t.Setenv("APPRAISE_PATH", home)

	records := writeFile(t, home, "recs.json", `[{"id": "1", "prompt": "q", "response": "a"}]`)

	root := NewRootCommand()
	err := root.Run(context.Background(), []string{
		"appraise", "create", "--records", records, "--title", "Scratch",
		"--mode", "scoring", "--dimension", "Quality:1:5", "--dry-run",
	})
	if err != nil {
		t.Fatalf("create --dry-run: %v", err)
	}

	cfg, err := config.LoadOrDefault(config.ConfigPath())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	st, closeStore, err := openStore(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer closeStore()

	if list := st.ListTasks(); len(list) != 0 {
		t.Fatalf("dry run persisted %d tasks", len(list))
	}
}
