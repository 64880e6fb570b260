// Package storage persists the audit trail of bus events.
package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/dohr-michael/appraise/internal/events"
)

// EventLogger persists bus events to JSONL files organized by task.
type EventLogger struct {
	dir    string
	cancel func()
	done   chan struct{}
}

// NewEventLogger creates an EventLogger that subscribes to all bus events
// and writes them as JSONL to dir, one file per task. A single goroutine
// drains the subscription so appends land in publish order. A nil bus skips
// the subscription; callers then record through Append.
func NewEventLogger(dir string, bus *events.Bus) *EventLogger {
	el := &EventLogger{dir: dir}
	if bus != nil {
		ch, cancel := bus.SubscribeChan(64)
		el.cancel = cancel
		el.done = make(chan struct{})
		go el.drain(ch)
	}
	return el
}

// Close unsubscribes the logger and waits for the last write to finish.
func (el *EventLogger) Close() {
	if el.cancel != nil {
		el.cancel()
		<-el.done
	}
}

func (el *EventLogger) drain(ch <-chan events.Event) {
	defer close(el.done)
	for e := range ch {
		// Per-record navigation is too noisy for the trail; evaluation.saved
		// already carries the position.
		if e.Type == events.EventSessionMoved {
			continue
		}
		_ = el.writeEvent(e)
	}
}

// Append writes one event synchronously, bypassing the bus. One-shot
// commands use it so the write lands before the process exits.
func (el *EventLogger) Append(e events.Event) error {
	return el.writeEvent(e)
}

func (el *EventLogger) writeEvent(e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	path := el.logPath(e.TaskID)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

func (el *EventLogger) logPath(taskID string) string {
	if taskID == "" {
		return filepath.Join(el.dir, "_global.jsonl")
	}
	return filepath.Join(el.dir, taskID+".jsonl")
}

// ReadLog returns the audit events recorded for a task, oldest first.
// Corrupted lines are skipped.
func ReadLog(dir, taskID string) ([]events.Event, error) {
	path := filepath.Join(dir, taskID+".jsonl")
	if taskID == "" {
		path = filepath.Join(dir, "_global.jsonl")
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var items []events.Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e events.Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		items = append(items, e)
	}
	return items, scanner.Err()
}
