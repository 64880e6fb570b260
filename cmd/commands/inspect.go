package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/appraise/internal/tasks"
)

// NewInspectCommand returns the inspect subcommand.
func NewInspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Preview a records file and the inferred field mapping",
		ArgsUsage: "<records-glob>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Evaluation mode to infer for",
				Value:   "scoring",
			},
		},
		Action: runInspect,
	}
}

func runInspect(_ context.Context, cmd *cli.Command) error {
	setupLogging(cmd)
	pattern := cmd.Args().First()
	if pattern == "" {
		return fmt.Errorf("usage: appraise inspect <records-glob>")
	}

	mode := tasks.Mode(cmd.String("mode"))
	if mode != tasks.ModeScoring && mode != tasks.ModeComparison {
		return fmt.Errorf("unknown mode %q", mode)
	}

	recs, err := importRecords(pattern)
	if err != nil {
		return err
	}

	fmt.Printf("Records: %d\n", len(recs))
	if len(recs) == 0 {
		return nil
	}

	keys := recs[0].Data.Keys()
	fmt.Printf("\nInferred mapping for %s mode:\n", mode)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  KEY\tROLE")
	for _, key := range keys {
		fmt.Fprintf(w, "  %s\t%s\n", key, tasks.InferRole(key, mode))
	}
	w.Flush()

	fmt.Printf("\nFirst record (%s):\n", recs[0].ID)
	for _, key := range keys {
		value, _ := recs[0].Field(key)
		text := value.Text()
		if len(text) > 70 {
			text = text[:67] + "..."
		}
		fmt.Printf("  %s: %s\n", key, text)
	}

	return nil
}
