package commands

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/dohr-michael/appraise/internal/events"
	"github.com/dohr-michael/appraise/internal/record"
	"github.com/dohr-michael/appraise/internal/tasks"
)

// NewCreateCommand returns the create subcommand.
func NewCreateCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create an evaluation task from a records file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "records",
				Aliases: []string{"r"},
				Usage:   "Glob of JSON records files (** supported)",
			},
			&cli.StringFlag{
				Name:    "title",
				Aliases: []string{"t"},
				Usage:   "Task title",
			},
			&cli.StringFlag{
				Name:  "description",
				Usage: "Task description",
			},
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Evaluation mode: scoring or comparison",
			},
			&cli.StringSliceFlag{
				Name:  "map",
				Usage: "Field mapping key=role[:Label] (repeatable, overrides inference per key)",
			},
			&cli.StringSliceFlag{
				Name:    "dimension",
				Aliases: []string{"d"},
				Usage:   "Scoring dimension Name:min:max[:step] (repeatable)",
			},
			&cli.StringFlag{
				Name:  "manifest",
				Usage: "YAML manifest describing the task",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show records and field mapping without saving",
			},
		},
		Action: runCreate,
	}
}

// taskManifest mirrors the YAML manifest format. Flags override
// manifest values when both are given.
type taskManifest struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Mode        string `yaml:"mode"`
	Records     string `yaml:"records"`
	Fields      []struct {
		Key   string `yaml:"key"`
		Role  string `yaml:"role"`
		Label string `yaml:"label"`
	} `yaml:"fields"`
	Dimensions []struct {
		ID          string  `yaml:"id"`
		Name        string  `yaml:"name"`
		Description string  `yaml:"description"`
		Min         float64 `yaml:"min"`
		Max         float64 `yaml:"max"`
		Step        float64 `yaml:"step"`
	} `yaml:"dimensions"`
}

func runCreate(_ context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	var m taskManifest
	if path := cmd.String("manifest"); path != "" {
		var err error
		if m, err = readManifest(path); err != nil {
			return err
		}
	}

	title := m.Title
	if cmd.IsSet("title") {
		title = cmd.String("title")
	}
	description := m.Description
	if cmd.IsSet("description") {
		description = cmd.String("description")
	}
	mode := m.Mode
	if cmd.IsSet("mode") {
		mode = cmd.String("mode")
	}
	pattern := m.Records
	if cmd.IsSet("records") {
		pattern = cmd.String("records")
	}
	if pattern == "" {
		return fmt.Errorf("usage: appraise create --records <glob> --title <title> --mode <mode>")
	}

	recs, err := importRecords(pattern)
	if err != nil {
		return err
	}

	var fields []tasks.FieldMapping
	for _, f := range m.Fields {
		fields = append(fields, tasks.FieldMapping{
			Key:   f.Key,
			Role:  tasks.Role(f.Role),
			Label: f.Label,
		})
	}
	source := "explicit"
	if len(fields) > 0 {
		source = "manifest"
	} else if len(recs) > 0 {
		fields = tasks.InferFields(recs[0].Data.Keys(), tasks.Mode(mode))
		source = "inferred"
	}
	overrides, err := parseMappings(cmd.StringSlice("map"))
	if err != nil {
		return err
	}
	if len(overrides) > 0 {
		fields = applyOverrides(fields, overrides)
		source += " + overrides"
	}

	dims, err := parseDimensions(cmd.StringSlice("dimension"))
	if err != nil {
		return err
	}
	if len(dims) == 0 {
		for _, d := range m.Dimensions {
			dims = append(dims, tasks.Dimension{
				ID:          d.ID,
				Name:        d.Name,
				Description: d.Description,
				Min:         d.Min,
				Max:         d.Max,
				Step:        d.Step,
			})
		}
	}

	task, err := tasks.New(title, description, tasks.Mode(mode), fields, dims, recs)
	if err != nil {
		return err
	}

	printMapping(task, source)
	for _, warning := range task.Warnings() {
		fmt.Printf("  warning: %s\n", warning)
	}

	if cmd.Bool("dry-run") {
		fmt.Printf("\nDry run: %d records, nothing saved.\n", len(task.Records))
		return nil
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

	if err := st.SaveTask(task); err != nil {
		return fmt.Errorf("save task: %w", err)
	}

	audit := newAudit(cfg)
	audit.Append(events.NewTypedEventForTask(events.SourceCLI, events.TaskCreatedPayload{
		Title:    task.Title,
		Mode:     string(task.Mode),
		Records:  len(task.Records),
		Warnings: task.Warnings(),
	}, task.ID))

	fmt.Printf("\nCreated task %s (%d records).\n", task.ID, len(task.Records))
	fmt.Printf("Run `appraise eval %s` to start evaluating.\n", task.ID)
	return nil
}

// importRecords loads and merges every file matching pattern. Record
// IDs stay unique across files.
func importRecords(pattern string) ([]record.Record, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad records glob: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match %q", pattern)
	}
	sort.Strings(matches)

	var all []record.Record
	seen := make(map[string]bool)
	for _, path := range matches {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open records file: %w", err)
		}
		recs, err := record.Import(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, rec := range recs {
			for seen[rec.ID] {
				rec.ID = record.GenerateRecordID()
			}
			seen[rec.ID] = true
			all = append(all, rec)
		}
	}
	return all, nil
}

// readManifest loads and parses a YAML task manifest.
func readManifest(path string) (taskManifest, error) {
	var m taskManifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// parseMappings parses repeated key=role[:Label] flags.
func parseMappings(pairs []string) ([]tasks.FieldMapping, error) {
	var fields []tasks.FieldMapping
	for _, pair := range pairs {
		key, rest, ok := strings.Cut(pair, "=")
		role, label, _ := strings.Cut(rest, ":")
		if !ok || strings.TrimSpace(key) == "" || strings.TrimSpace(role) == "" {
			return nil, fmt.Errorf("bad --map %q, want key=role[:Label]", pair)
		}
		fields = append(fields, tasks.FieldMapping{
			Key:   strings.TrimSpace(key),
			Role:  tasks.Role(strings.TrimSpace(role)),
			Label: strings.TrimSpace(label),
		})
	}
	return fields, nil
}

// applyOverrides rewrites the role, and the label when one is given, of
// each named key. Keys the base mapping does not carry are appended.
func applyOverrides(base, overrides []tasks.FieldMapping) []tasks.FieldMapping {
	for _, o := range overrides {
		found := false
		for i := range base {
			if base[i].Key != o.Key {
				continue
			}
			base[i].Role = o.Role
			if o.Label != "" {
				base[i].Label = o.Label
			}
			found = true
			break
		}
		if !found {
			base = append(base, o)
		}
	}
	return base
}

// parseDimensions parses repeated Name:min:max[:step] flags.
func parseDimensions(specs []string) ([]tasks.Dimension, error) {
	var dims []tasks.Dimension
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 && len(parts) != 4 {
			return nil, fmt.Errorf("bad --dimension %q, want Name:min:max[:step]", spec)
		}
		min, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad --dimension %q: min: %w", spec, err)
		}
		max, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("bad --dimension %q: max: %w", spec, err)
		}
		d := tasks.Dimension{Name: parts[0], Min: min, Max: max}
		if len(parts) == 4 {
			step, err := strconv.ParseFloat(parts[3], 64)
			if err != nil {
				return nil, fmt.Errorf("bad --dimension %q: step: %w", spec, err)
			}
			d.Step = step
		}
		dims = append(dims, d)
	}
	return dims, nil
}

// printMapping shows the field mapping that will drive the evaluation.
func printMapping(task *tasks.Task, source string) {
	fmt.Printf("Field mapping (%s):\n", source)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  KEY\tROLE\tLABEL")
	for _, f := range task.Fields {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", f.Key, f.Role, f.Label)
	}
	w.Flush()

	if len(task.Dimensions) > 0 {
		fmt.Println("Dimensions:")
		dw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(dw, "  NAME\tRANGE\tSTEP")
		for _, d := range task.Dimensions {
			fmt.Fprintf(dw, "  %s\t%g..%g\t%g\n", d.Name, d.Min, d.Max, d.Step)
		}
		dw.Flush()
	}
}
