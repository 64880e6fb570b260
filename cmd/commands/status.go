package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/appraise/internal/config"
	"github.com/dohr-michael/appraise/internal/heartbeat"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show appraise gateway status",
		Action: func(_ context.Context, _ *cli.Command) error {
			status, hb, err := heartbeat.Check(config.HeartbeatPath(), 2*time.Minute)
			if err != nil {
				return fmt.Errorf("check heartbeat: %w", err)
			}

			switch status {
			case heartbeat.StatusAlive:
				fmt.Printf("Gateway: ALIVE on %s (PID %d, uptime %s, %d tasks)\n",
					hb.Addr, hb.PID, hb.Uptime, hb.Tasks)
			case heartbeat.StatusStale:
				age := time.Since(hb.Timestamp).Truncate(time.Second)
				fmt.Printf("Gateway: STALE, PID %d stopped beating %s ago\n", hb.PID, age)
			case heartbeat.StatusDead:
				fmt.Println("Gateway: NOT RUNNING (start it with `appraise gateway`)")
			}

			return nil
		},
	}
}
