package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/appraise/internal/events"
	"github.com/dohr-michael/appraise/internal/session"
	"github.com/dohr-michael/appraise/internal/store"
	"github.com/dohr-michael/appraise/internal/tasks"
)

// NewTasksCommand returns the tasks subcommand.
func NewTasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "Manage evaluation tasks",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List all tasks",
				Action: runTasksList,
			},
			{
				Name:      "show",
				Usage:     "Show task details",
				ArgsUsage: "<task_id>",
				Action:    runTasksShow,
			},
			{
				Name:      "delete",
				Usage:     "Delete a task and its evaluations",
				ArgsUsage: "<task_id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Skip the confirmation prompt",
					},
				},
				Action: runTasksDelete,
			},
		},
		DefaultCommand: "list",
	}
}

func taskProgress(st *store.Store, t *tasks.Task) session.Progress {
	saved := st.GetEvaluations(t.ID)
	done := 0
	for _, rec := range t.Records {
		if _, ok := saved[rec.ID]; ok {
			done++
		}
	}
	return session.Compute(done, len(t.Records))
}

func runTasksList(_ context.Context, cmd *cli.Command) error {
	setupLogging(cmd)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	list := st.ListTasks()
	if len(list) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tPROGRESS\tTITLE")
	for _, t := range list {
		p := taskProgress(st, t)
		fmt.Fprintf(w, "%s\t%s\t%d/%d (%d%%)\t%s\n",
			t.ID,
			t.Mode,
			p.Done, p.Total, p.Percent,
			t.Title,
		)
	}
	return w.Flush()
}

func runTasksShow(_ context.Context, cmd *cli.Command) error {
	setupLogging(cmd)
	taskID := cmd.Args().First()
	if taskID == "" {
		return fmt.Errorf("usage: appraise tasks show <task_id>")
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

	t, err := st.GetTask(taskID)
	if err != nil {
		return err
	}

	p := taskProgress(st, t)

	fmt.Printf("ID:          %s\n", t.ID)
	fmt.Printf("Title:       %s\n", t.Title)
	fmt.Printf("Mode:        %s\n", t.Mode)
	fmt.Printf("Created:     %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Records:     %d\n", len(t.Records))
	fmt.Printf("Progress:    %d/%d (%d%%)\n", p.Done, p.Total, p.Percent)

	if t.Description != "" {
		fmt.Printf("\nDescription:\n%s\n", t.Description)
	}

	if len(t.Fields) > 0 {
		fmt.Println("\nFields:")
		for _, f := range t.Fields {
			fmt.Printf("  %s -> %s (%s)\n", f.Key, f.Role, f.Label)
		}
	}

	if len(t.Dimensions) > 0 {
		fmt.Println("\nDimensions:")
		for _, d := range t.Dimensions {
			fmt.Printf("  %s: %g..%g step %g\n", d.Name, d.Min, d.Max, d.Step)
		}
	}

	for _, warning := range t.Warnings() {
		fmt.Printf("\nWarning: %s\n", warning)
	}

	return nil
}

func runTasksDelete(_ context.Context, cmd *cli.Command) error {
	setupLogging(cmd)
	taskID := cmd.Args().First()
	if taskID == "" {
		return fmt.Errorf("usage: appraise tasks delete <task_id>")
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

	t, err := st.GetTask(taskID)
	if err != nil {
		return err
	}
	evaluations := len(st.GetEvaluations(t.ID))

	if !cmd.Bool("force") {
		fmt.Printf("Delete %q (%d records, %d evaluations)? [y/N] ", t.Title, len(t.Records), evaluations)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := st.DeleteTask(t.ID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	audit := newAudit(cfg)
	audit.Append(events.NewTypedEventForTask(events.SourceCLI, events.TaskDeletedPayload{
		Title:       t.Title,
		Evaluations: evaluations,
	}, t.ID))

	fmt.Printf("Task %s deleted.\n", t.ID)
	return nil
}
