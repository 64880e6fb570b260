// Package ws provides a WebSocket client for the appraise gateway. It is
// meant for external tooling that wants live task state without polling the
// REST API. A Client serves one goroutine; calls and event reads must not
// run concurrently.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/dohr-michael/appraise/internal/evals"
	wsprotocol "github.com/dohr-michael/appraise/internal/gateway/ws"
	"github.com/dohr-michael/appraise/internal/session"
)

// TaskInfo is one row of a list_tasks response.
type TaskInfo struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Mode    string `json:"mode"`
	Records int    `json:"records"`
	Done    int    `json:"done"`
}

// Client is a WebSocket client for the appraise gateway.
type Client struct {
	conn   *websocket.Conn
	reqSeq uint64
	ctx    context.Context
	cancel context.CancelFunc

	// Event frames that arrived while a call was waiting for its response.
	pending []wsprotocol.Frame
}

// Dial connects to the gateway WebSocket endpoint.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ws dial: %w", err)
	}

	clientCtx, cancel := context.WithCancel(ctx)

	return &Client{
		conn:   conn,
		ctx:    clientCtx,
		cancel: cancel,
	}, nil
}

// Call sends a request frame and waits for the matching response. Event
// frames arriving in between are queued for NextEvent.
func (c *Client) Call(method wsprotocol.Method, params any) (wsprotocol.Frame, error) {
	seq := atomic.AddUint64(&c.reqSeq, 1)
	id := fmt.Sprintf("req-%d", seq)

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return wsprotocol.Frame{}, err
		}
		raw = data
	}

	frame := wsprotocol.Frame{
		Type:   wsprotocol.FrameTypeRequest,
		ID:     id,
		Method: string(method),
		Params: raw,
	}
	data, err := wsprotocol.MarshalFrame(frame)
	if err != nil {
		return wsprotocol.Frame{}, err
	}
	if err := c.conn.Write(c.ctx, websocket.MessageText, data); err != nil {
		return wsprotocol.Frame{}, err
	}

	for {
		res, err := c.readFrame()
		if err != nil {
			return wsprotocol.Frame{}, err
		}
		switch res.Type {
		case wsprotocol.FrameTypeEvent:
			c.pending = append(c.pending, res)
		case wsprotocol.FrameTypeResponse:
			if res.ID != id {
				continue
			}
			if res.OK == nil || !*res.OK {
				return res, errors.New(res.Error)
			}
			return res, nil
		}
	}
}

// NextEvent returns the next broadcast event frame, blocking until one
// arrives or ctx is done.
func (c *Client) NextEvent(ctx context.Context) (wsprotocol.Frame, error) {
	if len(c.pending) > 0 {
		f := c.pending[0]
		c.pending = c.pending[1:]
		return f, nil
	}
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return wsprotocol.Frame{}, err
		}
		f, err := wsprotocol.UnmarshalFrame(data)
		if err != nil {
			return wsprotocol.Frame{}, err
		}
		if f.Type == wsprotocol.FrameTypeEvent {
			return f, nil
		}
	}
}

func (c *Client) readFrame() (wsprotocol.Frame, error) {
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		return wsprotocol.Frame{}, err
	}
	return wsprotocol.UnmarshalFrame(data)
}

// ListTasks fetches every task with its completion counts.
func (c *Client) ListTasks() ([]TaskInfo, error) {
	res, err := c.Call(wsprotocol.MethodListTasks, nil)
	if err != nil {
		return nil, err
	}
	var infos []TaskInfo
	if err := json.Unmarshal(res.Payload, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// GetProgress fetches one task's completion summary.
func (c *Client) GetProgress(taskID string) (session.Progress, error) {
	res, err := c.Call(wsprotocol.MethodGetProgress, map[string]string{"task_id": taskID})
	if err != nil {
		return session.Progress{}, err
	}
	var p session.Progress
	if err := json.Unmarshal(res.Payload, &p); err != nil {
		return session.Progress{}, err
	}
	return p, nil
}

// SaveEvaluation writes one judgment and returns it as persisted.
func (c *Client) SaveEvaluation(taskID string, r evals.Result) (evals.Result, error) {
	params := map[string]any{
		"task_id":   taskID,
		"record_id": r.RecordID,
	}
	if len(r.Scores) > 0 {
		params["scores"] = r.Scores
	}
	if r.Selection != "" {
		params["selection"] = string(r.Selection)
	}
	if r.Comment != "" {
		params["comment"] = r.Comment
	}

	res, err := c.Call(wsprotocol.MethodSaveEvaluation, params)
	if err != nil {
		return evals.Result{}, err
	}
	var saved evals.Result
	if err := json.Unmarshal(res.Payload, &saved); err != nil {
		return evals.Result{}, err
	}
	return saved, nil
}

// Close gracefully closes the connection.
func (c *Client) Close() error {
	c.cancel()
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}
