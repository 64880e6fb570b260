package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/appraise/internal/storage"
)

// NewAuditCommand returns the audit subcommand.
func NewAuditCommand() *cli.Command {
	return &cli.Command{
		Name:      "audit",
		Usage:     "Show the recorded event trail for a task",
		ArgsUsage: "<task_id>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Show only the last N events",
			},
		},
		Action: runAudit,
	}
}

func runAudit(_ context.Context, cmd *cli.Command) error {
	setupLogging(cmd)
	taskID := cmd.Args().First()
	if taskID == "" {
		return fmt.Errorf("usage: appraise audit <task_id>")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	items, err := storage.ReadLog(cfg.Events.AuditDir, taskID)
	if err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}
	if len(items) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}

	if limit := cmd.Int("limit"); limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}

	for _, e := range items {
		detail := ""
		if len(e.Payload) > 0 {
			if data, err := json.Marshal(e.Payload); err == nil {
				detail = " " + string(data)
			}
		}
		fmt.Printf("%s  %-18s %s%s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Type,
			e.Source,
			detail,
		)
	}
	return nil
}
