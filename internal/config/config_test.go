package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Lifecycle.ActiveDays != 30 || cfg.Lifecycle.DormantDays != 90 {
		t.Errorf("lifecycle defaults = %+v", cfg.Lifecycle)
	}
	if cfg.Tags.SimilarityThreshold != 0.7 {
		t.Errorf("threshold = %f", cfg.Tags.SimilarityThreshold)
	}
	if cfg.ListenAddr() != "127.0.0.1:38338" {
		t.Errorf("addr = %q", cfg.ListenAddr())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load missing: %v", err)
	}
	if cfg.Server.Port != 38338 {
		t.Errorf("port = %d, want default", cfg.Server.Port)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fileflow.toml")
	body := `
[server]
port = 9000

[storage]
root = "/data/files"

[lifecycle]
active_days = 14
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Storage.Root != "/data/files" {
		t.Errorf("root = %q", cfg.Storage.Root)
	}
	if cfg.Lifecycle.ActiveDays != 14 {
		t.Errorf("active_days = %d, want override 14", cfg.Lifecycle.ActiveDays)
	}
	// Untouched sections keep defaults.
	if cfg.Lifecycle.DormantDays != 90 {
		t.Errorf("dormant_days = %d, want default 90", cfg.Lifecycle.DormantDays)
	}
}

func TestLoadBadToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(path, []byte("[server\nport="), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
