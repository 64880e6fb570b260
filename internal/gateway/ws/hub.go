// Package ws bridges the event bus to WebSocket clients and serves a
// small request protocol for live evaluation tooling.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/dohr-michael/appraise/internal/evals"
	"github.com/dohr-michael/appraise/internal/events"
	"github.com/dohr-michael/appraise/internal/session"
	"github.com/dohr-michael/appraise/internal/tasks"
)

// Backend is the slice of the store the hub needs.
type Backend interface {
	ListTasks() []*tasks.Task
	GetTask(id string) (*tasks.Task, error)
	GetEvaluations(taskID string) evals.Map
	SaveEvaluation(taskID string, r evals.Result) error
}

// Client is one WebSocket connection with its outbound queue.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub tracks connected clients, answers their requests against the
// backend, and mirrors every bus event to all of them.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	bus         *events.Bus
	backend     Backend
	unsubscribe func()
}

// NewHub creates a hub that forwards all bus events to connected clients.
func NewHub(bus *events.Bus, backend Backend) *Hub {
	h := &Hub{
		clients: make(map[*Client]struct{}),
		bus:     bus,
		backend: backend,
	}
	h.unsubscribe = bus.Subscribe(h.forward)
	return h
}

// forward turns a bus event into an event frame for every client.
func (h *Hub) forward(e events.Event) {
	frame, err := NewEventFrame(string(e.Type), e.TaskID, e)
	if err != nil {
		slog.Error("ws event frame", "error", err)
		return
	}
	data, err := MarshalFrame(frame)
	if err != nil {
		slog.Error("ws marshal frame", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow client, frame skipped.
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	slog.Info("ws client joined", "clients", len(h.clients))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		slog.Info("ws client left", "clients", len(h.clients))
	}
}

// progressFor counts saved evaluations against the task's records.
func (h *Hub) progressFor(t *tasks.Task) session.Progress {
	saved := h.backend.GetEvaluations(t.ID)
	done := 0
	for _, rec := range t.Records {
		if _, ok := saved[rec.ID]; ok {
			done++
		}
	}
	return session.Compute(done, len(t.Records))
}

// ServeWS upgrades the request and runs the client until it hangs up.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // loopback service, any origin accepted
	})
	if err != nil {
		slog.Error("ws accept", "error", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}
	h.register(client)

	ctx := r.Context()
	go client.writePump(ctx)
	client.readPump(ctx)
}

// readPump reads frames off the connection and dispatches requests.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				slog.Debug("ws read closed", "status", status)
			} else {
				slog.Debug("ws read error", "error", err)
			}
			return
		}

		frame, err := UnmarshalFrame(data)
		if err != nil {
			slog.Error("ws bad frame", "error", err)
			continue
		}
		if frame.Type != FrameTypeRequest {
			slog.Debug("ws unexpected frame type", "type", frame.Type)
			continue
		}
		c.handleRequest(frame)
	}
}

func (c *Client) handleRequest(frame Frame) {
	switch Method(frame.Method) {
	case MethodListTasks:
		c.handleListTasks(frame)
	case MethodGetProgress:
		c.handleGetProgress(frame)
	case MethodSaveEvaluation:
		c.handleSaveEvaluation(frame)
	default:
		c.sendError(frame.ID, "unknown method: "+frame.Method)
	}
}

func (c *Client) handleListTasks(frame Frame) {
	type taskInfo struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Mode    string `json:"mode"`
		Records int    `json:"records"`
		Done    int    `json:"done"`
	}

	list := c.hub.backend.ListTasks()
	infos := make([]taskInfo, 0, len(list))
	for _, t := range list {
		p := c.hub.progressFor(t)
		infos = append(infos, taskInfo{
			ID:      t.ID,
			Title:   t.Title,
			Mode:    string(t.Mode),
			Records: p.Total,
			Done:    p.Done,
		})
	}

	c.sendOK(frame.ID, infos)
}

func (c *Client) handleGetProgress(frame Frame) {
	var params struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(frame.Params, &params); err != nil {
		c.sendError(frame.ID, "invalid params")
		return
	}

	task, err := c.hub.backend.GetTask(params.TaskID)
	if err != nil {
		c.sendError(frame.ID, err.Error())
		return
	}

	c.sendOK(frame.ID, c.hub.progressFor(task))
}

func (c *Client) handleSaveEvaluation(frame Frame) {
	var params struct {
		TaskID    string             `json:"task_id"`
		RecordID  string             `json:"record_id"`
		Scores    map[string]float64 `json:"scores,omitempty"`
		Selection string             `json:"selection,omitempty"`
		Comment   string             `json:"comment,omitempty"`
	}
	if err := json.Unmarshal(frame.Params, &params); err != nil {
		c.sendError(frame.ID, "invalid params")
		return
	}

	task, err := c.hub.backend.GetTask(params.TaskID)
	if err != nil {
		c.sendError(frame.ID, err.Error())
		return
	}
	_, index, ok := task.RecordByID(params.RecordID)
	if !ok {
		c.sendError(frame.ID, "unknown record: "+params.RecordID)
		return
	}
	sel := evals.Selection(params.Selection)
	if params.Selection != "" && !sel.Valid() {
		c.sendError(frame.ID, "invalid selection: "+params.Selection)
		return
	}

	result := evals.Result{
		TaskID:    task.ID,
		RecordID:  params.RecordID,
		Scores:    params.Scores,
		Selection: sel,
		Comment:   params.Comment,
		UpdatedAt: time.Now().UTC(),
	}
	if err := c.hub.backend.SaveEvaluation(task.ID, result); err != nil {
		c.sendError(frame.ID, err.Error())
		return
	}

	progress := c.hub.progressFor(task)
	c.hub.bus.Publish(events.NewTypedEventForTask(events.SourceGateway, events.EvaluationSavedPayload{
		RecordID: params.RecordID,
		Index:    index,
		Done:     progress.Done,
		Total:    progress.Total,
		Percent:  progress.Percent,
	}, task.ID))

	c.sendOK(frame.ID, result)
}

// writePump drains the outbound queue onto the connection.
func (c *Client) writePump(ctx context.Context) {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// reply queues a frame for this client, dropping it when the queue is full.
func (c *Client) reply(f Frame) {
	data, err := MarshalFrame(f)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendOK(id string, payload any) {
	f, err := NewResponseFrame(id, true, payload, "")
	if err != nil {
		return
	}
	c.reply(f)
}

func (c *Client) sendError(id string, errMsg string) {
	f, err := NewResponseFrame(id, false, nil, errMsg)
	if err != nil {
		return
	}
	c.reply(f)
}

// Close drops the bus subscription and hangs up on every client.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutdown")
		delete(h.clients, c)
	}
}
