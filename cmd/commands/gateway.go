package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/appraise/internal/config"
	"github.com/dohr-michael/appraise/internal/events"
	"github.com/dohr-michael/appraise/internal/gateway"
	"github.com/dohr-michael/appraise/internal/heartbeat"
	"github.com/dohr-michael/appraise/internal/storage"
)

// NewGatewayCommand returns the gateway subcommand.
func NewGatewayCommand() *cli.Command {
	return &cli.Command{
		Name:  "gateway",
		Usage: "Start the appraise gateway server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
		},
		Action: runGateway,
	}
}

func runGateway(_ context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = cmd.Int("port")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Event bus + audit trail
	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	audit := storage.NewEventLogger(cfg.Events.AuditDir, bus)
	defer audit.Close()

	// Store
	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Liveness file for `appraise status`
	hb := heartbeat.NewWriter(
		config.HeartbeatPath(),
		cfg.Gateway.Addr(),
		cfg.Gateway.HeartbeatInterval.Std(),
		func() int { return len(st.ListTasks()) },
	)
	hb.Start()
	defer hb.Stop()

	// Gateway server
	server := gateway.NewServer(bus, st, cfg.Gateway.Host, cfg.Gateway.Port)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for signal or error
	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
