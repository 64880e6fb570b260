package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dohr-michael/appraise/internal/evals"
	"github.com/dohr-michael/appraise/internal/events"
	"github.com/dohr-michael/appraise/internal/export"
	"github.com/dohr-michael/appraise/internal/record"
	"github.com/dohr-michael/appraise/internal/session"
	"github.com/dohr-michael/appraise/internal/store"
	"github.com/dohr-michael/appraise/internal/tasks"
)

// taskSummary is the list view of a task.
type taskSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
	Records   int       `json:"records"`
	Done      int       `json:"done"`
}

func (s *Server) summarize(t *tasks.Task) taskSummary {
	saved := s.store.GetEvaluations(t.ID)
	done := 0
	for _, rec := range t.Records {
		if _, ok := saved[rec.ID]; ok {
			done++
		}
	}
	return taskSummary{
		ID:        t.ID,
		Title:     t.Title,
		Mode:      string(t.Mode),
		CreatedAt: t.CreatedAt,
		Records:   len(t.Records),
		Done:      done,
	}
}

// taskProgress recomputes completion for a task from the store.
func (s *Server) taskProgress(t *tasks.Task) session.Progress {
	saved := s.store.GetEvaluations(t.ID)
	done := 0
	for _, rec := range t.Records {
		if _, ok := saved[rec.ID]; ok {
			done++
		}
	}
	return session.Compute(done, len(t.Records))
}

// lookupTask resolves {taskID} and writes a 404 when it does not exist.
func (s *Server) lookupTask(w http.ResponseWriter, r *http.Request) (*tasks.Task, bool) {
	id := chi.URLParam(r, "taskID")
	task, err := s.store.GetTask(id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return nil, false
	}
	return task, true
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	list := s.store.ListTasks()
	summaries := make([]taskSummary, 0, len(list))
	for _, t := range list {
		summaries = append(summaries, s.summarize(t))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string               `json:"title"`
		Description string               `json:"description"`
		Mode        string               `json:"mode"`
		Fields      []tasks.FieldMapping `json:"fields,omitempty"`
		Dimensions  []tasks.Dimension    `json:"dimensions,omitempty"`
		Records     json.RawMessage      `json:"records"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var recs []record.Record
	if len(req.Records) > 0 {
		var err error
		recs, err = record.Import(bytes.NewReader(req.Records))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	fields := req.Fields
	if len(fields) == 0 && len(recs) > 0 {
		fields = tasks.InferFields(recs[0].Data.Keys(), tasks.Mode(req.Mode))
	}

	task, err := tasks.New(req.Title, req.Description, tasks.Mode(req.Mode), fields, req.Dimensions, recs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.SaveTask(task); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	warnings := task.Warnings()
	s.bus.Publish(events.NewTypedEventForTask(events.SourceGateway, events.TaskCreatedPayload{
		Title:    task.Title,
		Mode:     string(task.Mode),
		Records:  len(task.Records),
		Warnings: warnings,
	}, task.ID))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"id":       task.ID,
		"title":    task.Title,
		"mode":     task.Mode,
		"records":  len(task.Records),
		"warnings": warnings,
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.lookupTask(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.lookupTask(w, r)
	if !ok {
		return
	}

	evaluations := len(s.store.GetEvaluations(task.ID))
	if err := s.store.DeleteTask(task.ID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.bus.Publish(events.NewTypedEventForTask(events.SourceGateway, events.TaskDeletedPayload{
		Title:       task.Title,
		Evaluations: evaluations,
	}, task.ID))

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetEvaluations(w http.ResponseWriter, r *http.Request) {
	task, ok := s.lookupTask(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.store.GetEvaluations(task.ID))
}

func (s *Server) handlePutEvaluation(w http.ResponseWriter, r *http.Request) {
	task, ok := s.lookupTask(w, r)
	if !ok {
		return
	}

	recordID := chi.URLParam(r, "recordID")
	_, index, found := task.RecordByID(recordID)
	if !found {
		http.Error(w, "unknown record: "+recordID, http.StatusNotFound)
		return
	}

	var req struct {
		Scores    map[string]float64 `json:"scores,omitempty"`
		Selection string             `json:"selection,omitempty"`
		Comment   string             `json:"comment,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	sel := evals.Selection(req.Selection)
	if req.Selection != "" && !sel.Valid() {
		http.Error(w, "invalid selection: "+req.Selection, http.StatusBadRequest)
		return
	}

	result := evals.Result{
		TaskID:    task.ID,
		RecordID:  recordID,
		Scores:    req.Scores,
		Selection: sel,
		Comment:   req.Comment,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveEvaluation(task.ID, result); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	progress := s.taskProgress(task)
	s.bus.Publish(events.NewTypedEventForTask(events.SourceGateway, events.EvaluationSavedPayload{
		RecordID: recordID,
		Index:    index,
		Done:     progress.Done,
		Total:    progress.Total,
		Percent:  progress.Percent,
	}, task.ID))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	task, ok := s.lookupTask(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.taskProgress(task))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	task, ok := s.lookupTask(w, r)
	if !ok {
		return
	}

	csv := export.Encode(task, s.store.GetEvaluations(task.ID))
	filename := export.Filename(task)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write([]byte(csv))

	// Export is the audit event worth waiting for; the chatty ones tolerate drops.
	if err := s.bus.PublishAsync(r.Context(), events.NewTypedEventForTask(events.SourceGateway, events.ExportWrittenPayload{
		Filename: filename,
		Rows:     len(task.Records),
		Bytes:    len(csv),
	}, task.ID)); err != nil {
		slog.Warn("export audit event not recorded", "error", err)
	}
}

func (s *Server) handleInference(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keys []string `json:"keys"`
		Mode string   `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	mode := tasks.Mode(req.Mode)
	if mode != tasks.ModeScoring && mode != tasks.ModeComparison {
		http.Error(w, "unknown mode: "+req.Mode, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tasks.InferFields(req.Keys, mode))
}
