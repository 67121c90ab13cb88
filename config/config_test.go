package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	minimal := `{"discord": {"token": "abc", "guild_id": "g1"}}`
	if err := os.WriteFile(path, []byte(minimal), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Tickets.PollSeconds != 5 {
		t.Errorf("PollSeconds = %d, want 5", cfg.Tickets.PollSeconds)
	}
	if cfg.Tickets.AlertSeconds != 3600 {
		t.Errorf("AlertSeconds = %d, want 3600", cfg.Tickets.AlertSeconds)
	}
	if cfg.Tickets.DeleteSeconds != 7200 {
		t.Errorf("DeleteSeconds = %d, want 7200", cfg.Tickets.DeleteSeconds)
	}
	if cfg.Whitelist.CooldownHours != 24 {
		t.Errorf("CooldownHours = %d, want 24", cfg.Whitelist.CooldownHours)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Status.Edition != "bedrock" {
		t.Errorf("Edition = %q, want bedrock", cfg.Status.Edition)
	}
}

func TestLoadConfigDeleteBelowAlert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
		"discord": {"token": "abc"},
		"tickets": {"alert_seconds": 600, "delete_seconds": 300}
	}`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// A delete threshold at or below the alert threshold is nonsense, so it
	// gets pushed out to twice the alert.
	if cfg.Tickets.DeleteSeconds != 1200 {
		t.Errorf("DeleteSeconds = %d, want 1200", cfg.Tickets.DeleteSeconds)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing config")
	}
}
