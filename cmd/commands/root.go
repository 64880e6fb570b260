package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/appraise/internal/config"
	"github.com/dohr-michael/appraise/internal/storage"
	"github.com/dohr-michael/appraise/internal/storage/kvstore"
	"github.com/dohr-michael/appraise/internal/store"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "appraise",
		Usage: "Human evaluation of model outputs, one record at a time",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewCreateCommand(),
			NewTasksCommand(),
			NewInspectCommand(),
			NewEvalCommand(),
			NewExportCommand(),
			NewGatewayCommand(),
			NewStatusCommand(),
			NewAuditCommand(),
			NewMCPServeCommand(),
		},
	}
}

// setupLogging installs a colored slog handler on stderr. Stdout stays
// reserved for command output.
func setupLogging(cmd *cli.Command) {
	level := slog.LevelInfo
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))
}

// loadConfig resolves the --config flag, falling back to defaults when
// the file does not exist.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	return config.LoadOrDefault(cmd.String("config"))
}

// openStore opens the configured persistence backend. The returned
// closer releases the underlying key-value store.
func openStore(cfg *config.Config) (*store.Store, func(), error) {
	if err := os.MkdirAll(config.AppraisePath(), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create appraise dir: %w", err)
	}

	var (
		kv  kvstore.KV
		err error
	)
	switch cfg.Storage.Backend {
	case "sqlite":
		kv, err = kvstore.NewSQLite(cfg.Storage.Path)
	case "file":
		kv, err = kvstore.NewFile(cfg.Storage.Path)
	case "memory":
		kv = kvstore.NewMemory()
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}

	return store.New(kv), func() { kv.Close() }, nil
}

// newAudit returns the audit logger for one-shot commands. Events are
// appended synchronously; there is no bus in a short-lived process.
func newAudit(cfg *config.Config) *storage.EventLogger {
	return storage.NewEventLogger(cfg.Events.AuditDir, nil)
}
