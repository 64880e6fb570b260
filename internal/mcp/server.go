package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dohr-michael/appraise/internal/events"
	"github.com/dohr-michael/appraise/internal/export"
	"github.com/dohr-michael/appraise/internal/session"
	"github.com/dohr-michael/appraise/internal/store"
	"github.com/dohr-michael/appraise/internal/tasks"
)

// server holds the backing store for tool handlers. All tools are
// read-only; evaluations are only written through the TUI and gateway.
type server struct {
	store *store.Store
	bus   *events.Bus
}

var (
	listTasksDef = toolDef{
		name:        "list_tasks",
		description: "List evaluation tasks with their completion state",
		params:      map[string]paramDef{},
	}
	taskProgressDef = toolDef{
		name:        "task_progress",
		description: "Report evaluation progress for one task",
		params: map[string]paramDef{
			"task_id": {typ: "string", description: "Task identifier", required: true},
		},
	}
	exportResultsDef = toolDef{
		name:        "export_results",
		description: "Export a task's evaluation results as CSV",
		params: map[string]paramDef{
			"task_id": {typ: "string", description: "Task identifier", required: true},
		},
	}
)

// NewMCPServer creates an MCP server exposing the appraise tools.
func NewMCPServer(st *store.Store, bus *events.Bus) *mcpsdk.Server {
	s := &server{store: st, bus: bus}

	srv := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "appraise",
		Version: "0.1.0",
	}, nil)

	type textFunc func(ctx context.Context, args json.RawMessage) (string, error)
	register := func(def toolDef, fn textFunc) {
		srv.AddTool(def.mcpTool(), func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			text, err := fn(ctx, req.Params.Arguments)
			if err != nil {
				slog.Debug("mcp tool error", "tool", def.name, "error", err)
				return &mcpsdk.CallToolResult{
					IsError: true,
					Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
				}, nil
			}
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
			}, nil
		})
		slog.Debug("mcp tool registered", "tool", def.name)
	}

	register(listTasksDef, func(context.Context, json.RawMessage) (string, error) { return s.listTasksText() })
	register(taskProgressDef, s.taskProgressText)
	register(exportResultsDef, s.exportResultsText)

	return srv
}

func (s *server) listTasksText() (string, error) {
	type row struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Mode    string `json:"mode"`
		Records int    `json:"records"`
		Done    int    `json:"done"`
	}

	list := s.store.ListTasks()
	rows := make([]row, 0, len(list))
	for _, t := range list {
		progress := s.progress(t)
		rows = append(rows, row{
			ID:      t.ID,
			Title:   t.Title,
			Mode:    string(t.Mode),
			Records: progress.Total,
			Done:    progress.Done,
		})
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *server) taskProgressText(_ context.Context, args json.RawMessage) (string, error) {
	task, err := s.taskFromArgs(args)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(s.progress(task), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *server) exportResultsText(ctx context.Context, args json.RawMessage) (string, error) {
	task, err := s.taskFromArgs(args)
	if err != nil {
		return "", err
	}

	csv := export.Encode(task, s.store.GetEvaluations(task.ID))

	// Export is the audit event worth waiting for; the chatty ones tolerate drops.
	if err := s.bus.PublishAsync(ctx, events.NewTypedEventForTask(events.SourceMCP, events.ExportWrittenPayload{
		Filename: export.Filename(task),
		Rows:     len(task.Records),
		Bytes:    len(csv),
	}, task.ID)); err != nil {
		slog.Warn("export audit event not recorded", "error", err)
	}

	return csv, nil
}

func (s *server) taskFromArgs(args json.RawMessage) (*tasks.Task, error) {
	var params struct {
		TaskID string `json:"task_id"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}
	if params.TaskID == "" {
		return nil, fmt.Errorf("task_id is required")
	}
	return s.store.GetTask(params.TaskID)
}

func (s *server) progress(t *tasks.Task) session.Progress {
	saved := s.store.GetEvaluations(t.ID)
	done := 0
	for _, rec := range t.Records {
		if _, ok := saved[rec.ID]; ok {
			done++
		}
	}
	return session.Compute(done, len(t.Records))
}
