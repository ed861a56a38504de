package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FEED_BASE_URL", "https://feed.example.com")
	t.Setenv("USE_MEMORY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.PollInterval != 60*time.Second {
		t.Errorf("PollInterval = %v, want 60s", cfg.PollInterval)
	}
	if cfg.TargetLine != 2.5 {
		t.Errorf("TargetLine = %v, want 2.5", cfg.TargetLine)
	}
	if cfg.MaxTracked != 3200 {
		t.Errorf("MaxTracked = %d, want 3200", cfg.MaxTracked)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
}

func TestValidateRejectsMissingRequirements(t *testing.T) {
	cfg := &Config{PollInterval: time.Minute, UseMemory: true}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for missing feed URL")
	}

	cfg = &Config{FeedBaseURL: "https://feed.example.com", PollInterval: time.Minute}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for missing postgres DSN without memory mode")
	}

	cfg = &Config{FeedBaseURL: "https://feed.example.com", UseMemory: true, PollInterval: time.Minute, TargetOverrides: "39-2.5"}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for malformed target overrides")
	}
}

func TestTargetsBuildsOverrideTable(t *testing.T) {
	cfg := &Config{TargetLine: 2.5, TargetOverrides: "140:3.25"}

	targets, err := cfg.Targets()
	if err != nil {
		t.Fatalf("Targets failed: %v", err)
	}
	if got := targets.For("140"); got != 3.25 {
		t.Errorf("For(140) = %v, want 3.25", got)
	}
	if got := targets.For("39"); got != 2.5 {
		t.Errorf("For(39) = %v, want default 2.5", got)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nFEED_API_KEY=file-key\nTELEGRAM_TOKEN=\"quoted\"\nNOT_A_PAIR\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	t.Setenv("FEED_API_KEY", "env-key")
	os.Unsetenv("TELEGRAM_TOKEN")
	t.Cleanup(func() { os.Unsetenv("TELEGRAM_TOKEN") })

	LoadEnvFile(path)

	// Real environment wins over the file
	if got := os.Getenv("FEED_API_KEY"); got != "env-key" {
		t.Errorf("FEED_API_KEY = %q, want env-key", got)
	}
	if got := os.Getenv("TELEGRAM_TOKEN"); got != "quoted" {
		t.Errorf("TELEGRAM_TOKEN = %q, want quoted", got)
	}
}
