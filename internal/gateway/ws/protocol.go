package ws

import "encoding/json"

// The wire protocol is a single JSON envelope, Frame, used in three
// shapes. Requests carry ID, Method and Params; responses echo the ID
// back with OK plus Payload or Error; event frames carry Event, TaskID
// and Payload and are pushed without being asked.

// FrameType discriminates the three frame shapes.
type FrameType string

const (
	FrameTypeRequest  FrameType = "req"
	FrameTypeResponse FrameType = "res"
	FrameTypeEvent    FrameType = "event"
)

// Method names a request operation.
type Method string

const (
	MethodListTasks      Method = "list_tasks"
	MethodGetProgress    Method = "get_progress"
	MethodSaveEvaluation Method = "save_evaluation"
)

// Frame is the protocol envelope. Only the fields for its Type are set.
type Frame struct {
	Type    FrameType       `json:"type"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	OK      *bool           `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
	TaskID  string          `json:"task_id,omitempty"`
}

// MarshalFrame encodes a frame for the wire.
func MarshalFrame(f Frame) ([]byte, error) {
	return json.Marshal(f)
}

// UnmarshalFrame decodes a frame off the wire.
func UnmarshalFrame(data []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(data, &f)
	return f, err
}

// NewEventFrame wraps a bus event for broadcast. taskID may be empty for
// events that concern no single task.
func NewEventFrame(event string, taskID string, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: FrameTypeEvent, Event: event, TaskID: taskID, Payload: data}, nil
}

// NewResponseFrame answers the request with the given id. A nil payload
// stays off the wire, which error responses rely on.
func NewResponseFrame(id string, ok bool, payload any, errMsg string) (Frame, error) {
	f := Frame{Type: FrameTypeResponse, ID: id, OK: &ok, Error: errMsg}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Frame{}, err
		}
		f.Payload = data
	}
	return f, nil
}
