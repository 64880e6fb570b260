package config

import (
	"os"
	"path/filepath"
)

// AppraisePath returns the appraise home directory. It honors
// $APPRAISE_PATH, then falls back to ~/.appraise, then to ./.appraise
// when the home directory cannot be resolved.
func AppraisePath() string {
	if p := os.Getenv("APPRAISE_PATH"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".appraise"
	}
	return filepath.Join(home, ".appraise")
}

// ConfigPath returns the path of the JSONC config file.
func ConfigPath() string {
	return filepath.Join(AppraisePath(), "config.jsonc")
}

// DotenvPath returns the path of the optional .env file.
func DotenvPath() string {
	return filepath.Join(AppraisePath(), ".env")
}

// HeartbeatPath returns the path of the gateway liveness file.
func HeartbeatPath() string {
	return filepath.Join(AppraisePath(), "heartbeat.json")
}
