package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/dohr-michael/appraise/internal/events"
	"github.com/dohr-michael/appraise/internal/storage/kvstore"
	"github.com/dohr-michael/appraise/internal/store"
)

// waitForEvents polls the bus history until at least n events are present.
func waitForEvents(bus *events.Bus, n int) {
	for i := 0; i < 200; i++ {
		if len(bus.History(100)) >= n {
			return
		}
		runtime.Gosched()
		time.Sleep(time.Millisecond)
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	bus := events.NewBus(64)
	t.Cleanup(func() { bus.Close() })

	st := store.New(kvstore.NewMemory())
	return NewServer(bus, st, "localhost", 0)
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	return w
}

const createBody = `{
  "title": "Summary review",
  "mode": "scoring",
  "dimensions": [{"name": "Quality", "min": 1, "max": 5}],
  "records": [
    {"id": "1", "prompt": "Q1", "response": "A1"},
    {"id": "2", "prompt": "Q2", "response": "A2"}
  ]
}`

func createTask(t *testing.T, srv *Server) string {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/api/tasks", createBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("create task: status %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if body.ID == "" {
		t.Fatal("create task: empty id")
	}
	return body.ID
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	w := doJSON(t, srv, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status %q, got %q", "ok", body["status"])
	}
}

func TestCreateAndListTasks(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	id := createTask(t, srv)

	w := doJSON(t, srv, http.MethodGet, "/api/tasks", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list tasks: status %d", w.Code)
	}
	var list []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 task, got %d", len(list))
	}
	if list[0]["id"] != id {
		t.Fatalf("expected id %q, got %v", id, list[0]["id"])
	}
	if list[0]["records"].(float64) != 2 {
		t.Fatalf("expected 2 records, got %v", list[0]["records"])
	}
	if list[0]["done"].(float64) != 0 {
		t.Fatalf("expected 0 done, got %v", list[0]["done"])
	}
}

func TestCreateTaskInfersFields(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	id := createTask(t, srv)

	w := doJSON(t, srv, http.MethodGet, "/api/tasks/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get task: status %d", w.Code)
	}
	var task struct {
		Fields []struct {
			Key  string `json:"key"`
			Role string `json:"role"`
		} `json:"fields"`
	}
	if err := json.NewDecoder(w.Body).Decode(&task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	roles := map[string]string{}
	for _, f := range task.Fields {
		roles[f.Key] = f.Role
	}
	if roles["prompt"] != "context" {
		t.Errorf("prompt role = %q, want context", roles["prompt"])
	}
	if roles["response"] != "target" {
		t.Errorf("response role = %q, want target", roles["response"])
	}
}

func TestCreateTaskValidationError(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	w := doJSON(t, srv, http.MethodPost, "/api/tasks", `{"title": "", "mode": "scoring"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "title required") {
		t.Fatalf("expected validation message, got %q", w.Body.String())
	}
}

func TestGetTaskNotFound(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	w := doJSON(t, srv, http.MethodGet, "/api/tasks/task_missing", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestPutEvaluationAndProgress(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	id := createTask(t, srv)

	w := doJSON(t, srv, http.MethodPut, "/api/tasks/"+id+"/evaluations/1",
		`{"scores": {"dim_quality": 4}, "comment": "fine"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put evaluation: status %d: %s", w.Code, w.Body.String())
	}
	var saved map[string]any
	if err := json.NewDecoder(w.Body).Decode(&saved); err != nil {
		t.Fatalf("decode saved: %v", err)
	}
	if saved["updated_at"] == nil || saved["updated_at"] == "" {
		t.Fatal("expected server to stamp updated_at")
	}

	w = doJSON(t, srv, http.MethodGet, "/api/tasks/"+id+"/progress", "")
	if w.Code != http.StatusOK {
		t.Fatalf("progress: status %d", w.Code)
	}
	var progress struct {
		Done    int `json:"done"`
		Total   int `json:"total"`
		Percent int `json:"percent"`
	}
	if err := json.NewDecoder(w.Body).Decode(&progress); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if progress.Done != 1 || progress.Total != 2 || progress.Percent != 50 {
		t.Fatalf("progress = %+v, want 1/2 50%%", progress)
	}
}

func TestPutEvaluationUnknownRecord(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	id := createTask(t, srv)

	w := doJSON(t, srv, http.MethodPut, "/api/tasks/"+id+"/evaluations/nope", `{"comment": "x"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestPutEvaluationInvalidSelection(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	id := createTask(t, srv)

	w := doJSON(t, srv, http.MethodPut, "/api/tasks/"+id+"/evaluations/1", `{"selection": "both"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestExportDownload(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	id := createTask(t, srv)

	w := doJSON(t, srv, http.MethodGet, "/api/tasks/"+id+"/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("export: status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q, want text/csv", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "Summary_review_results.csv") {
		t.Errorf("content disposition = %q", cd)
	}
	if !strings.HasPrefix(w.Body.String(), "RecordID,") {
		t.Errorf("body does not start with header: %q", w.Body.String())
	}
}

func TestDeleteTaskCascades(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	id := createTask(t, srv)

	w := doJSON(t, srv, http.MethodDelete, "/api/tasks/"+id, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/tasks/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after delete, got %d", w.Code)
	}
}

func TestHandleInference(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	w := doJSON(t, srv, http.MethodPost, "/api/inference",
		`{"keys": ["prompt", "output_a", "output_b"], "mode": "comparison"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("inference: status %d", w.Code)
	}
	var fields []struct {
		Key  string `json:"key"`
		Role string `json:"role"`
	}
	if err := json.NewDecoder(w.Body).Decode(&fields); err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	roles := map[string]string{}
	for _, f := range fields {
		roles[f.Key] = f.Role
	}
	if roles["output_a"] != "left-item" || roles["output_b"] != "right-item" {
		t.Fatalf("roles = %v", roles)
	}
}

func TestHandleInferenceUnknownMode(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	w := doJSON(t, srv, http.MethodPost, "/api/inference", `{"keys": ["a"], "mode": "ranked"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestHandleEvents_LimitParam(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	for i := 0; i < 10; i++ {
		srv.bus.Publish(events.NewEvent(events.EventEvaluationSaved, events.SourceGateway, map[string]any{"i": i}))
	}

	waitForEvents(srv.bus, 10)

	w := doJSON(t, srv, http.MethodGet, "/api/events?limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body) != 5 {
		t.Fatalf("expected 5 events with limit=5, got %d", len(body))
	}
}

func TestCreateTaskPublishesEvent(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	id := createTask(t, srv)
	waitForEvents(srv.bus, 1)

	history := srv.bus.History(10)
	if len(history) == 0 {
		t.Fatal("expected task.created in history")
	}
	e := history[0]
	if e.Type != events.EventTaskCreated {
		t.Fatalf("event type = %q, want task.created", e.Type)
	}
	if e.TaskID != id {
		t.Fatalf("event task_id = %q, want %q", e.TaskID, id)
	}
}
