package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dohr-michael/appraise/internal/events"
	"github.com/dohr-michael/appraise/internal/export"
)

// NewExportCommand returns the export subcommand.
func NewExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a task's evaluation results as CSV",
		ArgsUsage: "<task_id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file (- for stdout)",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Write CSV to an interactive terminal",
			},
		},
		Action: runExport,
	}
}

func runExport(_ context.Context, cmd *cli.Command) error {
	setupLogging(cmd)
	taskID := cmd.Args().First()
	if taskID == "" {
		return fmt.Errorf("usage: appraise export <task_id>")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	task, err := st.GetTask(taskID)
	if err != nil {
		return err
	}

	csv := export.Encode(task, st.GetEvaluations(task.ID))
	filename := export.Filename(task)

	// Piped stdout means the caller wants the CSV directly.
	output := cmd.String("output")
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	if output == "" && !isTTY {
		output = "-"
	}
	if output == "-" && isTTY && !cmd.Bool("force") {
		return fmt.Errorf("refusing to write CSV to a terminal; pipe it or pass --force")
	}

	if output == "-" {
		fmt.Println(csv)
	} else {
		if output == "" {
			if err := os.MkdirAll(cfg.Export.Dir, 0o755); err != nil {
				return fmt.Errorf("create export dir: %w", err)
			}
			output = filepath.Join(cfg.Export.Dir, filename)
		}
		if err := os.WriteFile(output, []byte(csv), 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Printf("Wrote %s (%d records).\n", output, len(task.Records))
	}

	audit := newAudit(cfg)
	audit.Append(events.NewTypedEventForTask(events.SourceCLI, events.ExportWrittenPayload{
		Filename: filename,
		Rows:     len(task.Records),
		Bytes:    len(csv),
	}, task.ID))

	return nil
}
