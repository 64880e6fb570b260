// Package config loads and validates the appraise configuration file.
//
// The file lives at $APPRAISE_PATH/config.jsonc and is JSONC: JSON with
// comments and trailing commas. Environment values can be injected with
// ${{ .Env.NAME }} templates so secrets stay out of the file itself.
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config is the root of the appraise configuration.
type Config struct {
	Gateway GatewayConfig `json:"gateway"`
	Storage StorageConfig `json:"storage"`
	Events  EventsConfig  `json:"events"`
	Export  ExportConfig  `json:"export"`
	TUI     TUIConfig     `json:"tui"`
}

// GatewayConfig configures the local HTTP gateway.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// HeartbeatInterval is how often the gateway refreshes its liveness
	// file while serving.
	HeartbeatInterval Duration `json:"heartbeat_interval"`
}

// Addr returns the host:port the gateway binds to.
func (g GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// StorageConfig selects the persistence backend.
//
// Backend is one of "sqlite", "file" or "memory". Path is the database
// file for sqlite and the store directory for file; memory ignores it.
type StorageConfig struct {
	Backend string `json:"backend"`
	Path    string `json:"path"`
}

// EventsConfig configures the in-process event bus and its audit trail.
type EventsConfig struct {
	BufferSize int    `json:"buffer_size"`
	AuditDir   string `json:"audit_dir"`
}

// ExportConfig configures where CSV exports land when no explicit
// output path is given.
type ExportConfig struct {
	Dir string `json:"dir"`
}

// TUIConfig configures the evaluation terminal client.
type TUIConfig struct {
	// Theme is "dark" or "light".
	Theme string `json:"theme"`
	// RawRecords starts the record pane in raw JSON mode instead of the
	// rendered view.
	RawRecords bool `json:"raw_records"`
}

// Duration wraps time.Duration so config values can be written as "30s"
// or "2m" instead of nanosecond integers.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
