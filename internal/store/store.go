// Package store persists evaluation tasks and their results through a
// key-value backend.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dohr-michael/appraise/internal/evals"
	"github.com/dohr-michael/appraise/internal/storage/kvstore"
	"github.com/dohr-michael/appraise/internal/tasks"
)

// Collection keys inside the KV backend.
const (
	tasksKey       = "tasks"
	evaluationsKey = "evaluations"
)

// ErrTaskNotFound reports a task id absent from the store.
var ErrTaskNotFound = errors.New("task not found")

// Store reads and writes whole collections: the task list under one key, all
// evaluation maps under another. Corrupt or missing collections degrade to
// empty ones on read, so a damaged history never blocks the tool. One logical
// writer per process.
type Store struct {
	mu sync.RWMutex
	kv kvstore.KV
}

// New creates a store over the given backend.
func New(kv kvstore.KV) *Store {
	return &Store{kv: kv}
}

// ListTasks returns every stored task in insertion order.
func (s *Store) ListTasks() []*tasks.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadTasks()
}

// GetTask returns the task with the given id, or ErrTaskNotFound.
func (s *Store) GetTask(id string) (*tasks.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.loadTasks() {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
}

// SaveTask appends a task to the collection. Callers pass freshly generated
// ids, so no collision check happens here.
func (s *Store) SaveTask(t *tasks.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.loadTasks(), t)
	return s.storeTasks(list)
}

// DeleteTask removes a task and, in the same critical section, its whole
// evaluation map. Returns ErrTaskNotFound when the id is absent.
func (s *Store) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.loadTasks()
	kept := list[:0]
	for _, t := range list {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(list) {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err := s.storeTasks(kept); err != nil {
		return err
	}

	all := s.loadEvaluations()
	if _, ok := all[id]; ok {
		delete(all, id)
		return s.storeEvaluations(all)
	}
	return nil
}

// GetEvaluations returns the evaluation map for a task, empty if none exists.
func (s *Store) GetEvaluations(taskID string) evals.Map {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.loadEvaluations()[taskID]
	if m == nil {
		return evals.Map{}
	}
	return m
}

// SaveEvaluation upserts one result into its task's evaluation map, keyed by
// record id. The whole evaluations collection is re-encoded on every save.
func (s *Store) SaveEvaluation(taskID string, r evals.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.loadEvaluations()
	m := all[taskID]
	if m == nil {
		m = evals.Map{}
		all[taskID] = m
	}
	m[r.RecordID] = r
	return s.storeEvaluations(all)
}

func (s *Store) loadTasks() []*tasks.Task {
	data, ok, err := s.kv.Get(tasksKey)
	if err != nil {
		slog.Warn("read tasks collection, starting empty", "error", err)
		return nil
	}
	if !ok || len(data) == 0 {
		return nil
	}
	var list []*tasks.Task
	if err := json.Unmarshal(data, &list); err != nil {
		slog.Warn("decode tasks collection, starting empty", "error", err)
		return nil
	}
	return list
}

func (s *Store) storeTasks(list []*tasks.Task) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := s.kv.Set(tasksKey, data); err != nil {
		return fmt.Errorf("write tasks: %w", err)
	}
	return nil
}

func (s *Store) loadEvaluations() map[string]evals.Map {
	data, ok, err := s.kv.Get(evaluationsKey)
	if err != nil {
		slog.Warn("read evaluations collection, starting empty", "error", err)
		return map[string]evals.Map{}
	}
	if !ok || len(data) == 0 {
		return map[string]evals.Map{}
	}
	var all map[string]evals.Map
	if err := json.Unmarshal(data, &all); err != nil {
		slog.Warn("decode evaluations collection, starting empty", "error", err)
		return map[string]evals.Map{}
	}
	if all == nil {
		all = map[string]evals.Map{}
	}
	return all
}

func (s *Store) storeEvaluations(all map[string]evals.Map) error {
	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("encode evaluations: %w", err)
	}
	if err := s.kv.Set(evaluationsKey, data); err != nil {
		return fmt.Errorf("write evaluations: %w", err)
	}
	return nil
}
