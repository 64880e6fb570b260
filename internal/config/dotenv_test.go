package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDotenv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	return path
}

func TestLoadDotenv(t *testing.T) {
	t.Setenv("APPRAISE_DOTENV_A", "")
	os.Unsetenv("APPRAISE_DOTENV_A")
	t.Setenv("APPRAISE_DOTENV_B", "")
	os.Unsetenv("APPRAISE_DOTENV_B")
	t.Setenv("APPRAISE_DOTENV_C", "")
	os.Unsetenv("APPRAISE_DOTENV_C")

	path := writeDotenv(t, `
# comment line
APPRAISE_DOTENV_A=plain
export APPRAISE_DOTENV_B="quoted value"
APPRAISE_DOTENV_C='single'

not-a-pair
`)

	if err := LoadDotenv(path); err != nil {
		t.Fatalf("LoadDotenv: %v", err)
	}
	if got := os.Getenv("APPRAISE_DOTENV_A"); got != "plain" {
		t.Errorf("A = %q, want %q", got, "plain")
	}
	if got := os.Getenv("APPRAISE_DOTENV_B"); got != "quoted value" {
		t.Errorf("B = %q, want quotes stripped", got)
	}
	if got := os.Getenv("APPRAISE_DOTENV_C"); got != "single" {
		t.Errorf("C = %q, want quotes stripped", got)
	}
}

func TestLoadDotenvNeverOverrides(t *testing.T) {
	t.Setenv("APPRAISE_DOTENV_KEEP", "from-env")

	path := writeDotenv(t, "APPRAISE_DOTENV_KEEP=from-file\n")

	if err := LoadDotenv(path); err != nil {
		t.Fatalf("LoadDotenv: %v", err)
	}
	if got := os.Getenv("APPRAISE_DOTENV_KEEP"); got != "from-env" {
		t.Errorf("value = %q, dotenv overrode the environment", got)
	}
}

func TestLoadDotenvMissingFile(t *testing.T) {
	if err := LoadDotenv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("LoadDotenv on missing file: %v", err)
	}
}
