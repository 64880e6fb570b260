package commands

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dohr-michael/appraise/clients/tui"
	"github.com/dohr-michael/appraise/internal/events"
	"github.com/dohr-michael/appraise/internal/session"
)

// NewEvalCommand returns the eval subcommand.
func NewEvalCommand() *cli.Command {
	return &cli.Command{
		Name:      "eval",
		Usage:     "Evaluate a task's records interactively",
		ArgsUsage: "<task_id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "Start with the raw JSON record view",
			},
		},
		Action: runEval,
	}
}

func runEval(_ context.Context, cmd *cli.Command) error {
	setupLogging(cmd)
	taskID := cmd.Args().First()
	if taskID == "" {
		return fmt.Errorf("usage: appraise eval <task_id>")
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("eval needs a terminal; use `appraise export` for scripted access")
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

	audit := newAudit(cfg)
	sess := session.New(task, st)
	p := sess.Progress()
	audit.Append(events.NewTypedEventForTask(events.SourceTUI, events.SessionOpenedPayload{
		ResumeIndex: sess.Index(),
		Done:        p.Done,
		Total:       p.Total,
	}, task.ID))

	app := tui.NewApp(sess, audit, tui.Options{
		Theme:      cfg.TUI.Theme,
		RawRecords: cfg.TUI.RawRecords || cmd.Bool("raw"),
	})
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run eval client: %w", err)
	}

	p = sess.Progress()
	fmt.Printf("Task %s: %d/%d records evaluated (%d%%).\n", task.ID, p.Done, p.Total, p.Percent)
	return nil
}
