package events

import "encoding/json"

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

// =============================================================================
// TASK EVENTS
// =============================================================================

type TaskCreatedPayload struct {
	Title    string   `json:"title"`
	Mode     string   `json:"mode"`
	Records  int      `json:"records"`
	Warnings []string `json:"warnings,omitempty"`
}

func (TaskCreatedPayload) EventType() EventType { return EventTaskCreated }

type TaskDeletedPayload struct {
	Title       string `json:"title"`
	Evaluations int    `json:"evaluations"`
}

func (TaskDeletedPayload) EventType() EventType { return EventTaskDeleted }

// =============================================================================
// JUDGMENT EVENTS
// =============================================================================

type EvaluationSavedPayload struct {
	RecordID string `json:"record_id"`
	Index    int    `json:"index"`
	Done     int    `json:"done"`
	Total    int    `json:"total"`
	Percent  int    `json:"percent"`
}

func (EvaluationSavedPayload) EventType() EventType { return EventEvaluationSaved }

// =============================================================================
// EXPORT EVENTS
// =============================================================================

type ExportWrittenPayload struct {
	Filename string `json:"filename"`
	Rows     int    `json:"rows"`
	Bytes    int    `json:"bytes"`
}

func (ExportWrittenPayload) EventType() EventType { return EventExportWritten }

// =============================================================================
// WALK EVENTS
// =============================================================================

type SessionOpenedPayload struct {
	ResumeIndex int `json:"resume_index"`
	Done        int `json:"done"`
	Total       int `json:"total"`
}

func (SessionOpenedPayload) EventType() EventType { return EventSessionOpened }

type SessionMovedPayload struct {
	FromIndex int    `json:"from_index"`
	ToIndex   int    `json:"to_index"`
	RecordID  string `json:"record_id"`
}

func (SessionMovedPayload) EventType() EventType { return EventSessionMoved }

// =============================================================================
// TYPED EVENT CONSTRUCTORS
// =============================================================================

func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return NewEvent(payload.EventType(), source, toMap(payload))
}

// NewTypedEventForTask scopes the event to taskID, which routes it to the
// task's audit log and lets clients filter.
func NewTypedEventForTask(source EventSource, payload EventPayload, taskID string) Event {
	e := NewEvent(payload.EventType(), source, toMap(payload))
	e.TaskID = taskID
	return e
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// =============================================================================
// TYPED PAYLOAD EXTRACTORS
// =============================================================================

func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}

func GetTaskCreatedPayload(e Event) (TaskCreatedPayload, bool) {
	return ExtractPayload[TaskCreatedPayload](e)
}

func GetTaskDeletedPayload(e Event) (TaskDeletedPayload, bool) {
	return ExtractPayload[TaskDeletedPayload](e)
}

func GetEvaluationSavedPayload(e Event) (EvaluationSavedPayload, bool) {
	return ExtractPayload[EvaluationSavedPayload](e)
}

func GetExportWrittenPayload(e Event) (ExportWrittenPayload, bool) {
	return ExtractPayload[ExportWrittenPayload](e)
}

func GetSessionOpenedPayload(e Event) (SessionOpenedPayload, bool) {
	return ExtractPayload[SessionOpenedPayload](e)
}

func GetSessionMovedPayload(e Event) (SessionMovedPayload, bool) {
	return ExtractPayload[SessionMovedPayload](e)
}
