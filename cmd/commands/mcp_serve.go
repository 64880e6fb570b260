package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/appraise/internal/events"
	appraisemcp "github.com/dohr-michael/appraise/internal/mcp"
	"github.com/dohr-michael/appraise/internal/storage"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewMCPServeCommand returns the mcp-serve subcommand.
func NewMCPServeCommand() *cli.Command {
	return &cli.Command{
		Name:   "mcp-serve",
		Usage:  "Expose appraise tasks as MCP tools (stdio)",
		Action: runMCPServe,
	}
}

func runMCPServe(_ context.Context, cmd *cli.Command) error {
	// Setup logging to stderr (stdout is used for MCP stdio transport)
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()

	// Bus so MCP exports land in the audit trail
	bus := events.NewBus(64)
	defer bus.Close()

	audit := storage.NewEventLogger(cfg.Events.AuditDir, bus)
	defer audit.Close()

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	slog.Debug("starting MCP server")

	server := appraisemcp.NewMCPServer(st, bus)
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}
