package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
db_path: "test.db"
cloud_storage:
  path: "library"
  enabled: true
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath == "" {
		t.Error("db_path should be set")
	}
	if !cfg.CloudStorage.Enabled {
		t.Error("cloud_storage.enabled should be true")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
db_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestApplyDefaults_ModeSettings(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if got := cfg.ModeSettings.Testing.Limit(); got != 5 {
		t.Errorf("testing limit: got %d, want 5", got)
	}
	if got := cfg.ModeSettings.Daily.Limit(); got != 50 {
		t.Errorf("daily limit: got %d, want 50", got)
	}
	if got := cfg.ModeSettings.Backfill.Limit(); got != 0 {
		t.Errorf("backfill limit: got %d, want 0 (unlimited)", got)
	}
	if !cfg.ModeSettings.Backfill.RespectDateRange {
		t.Error("backfill should respect date range by default")
	}
}

func TestApplyDefaults_RetrySettings(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Retry.MaxWorkerRetries != 2 {
		t.Errorf("max_worker_retries: got %d, want 2", cfg.Retry.MaxWorkerRetries)
	}
	if cfg.Retry.WorkerTimeout != 600 {
		t.Errorf("worker_timeout: got %d, want 600", cfg.Retry.WorkerTimeout)
	}
	if cfg.Retry.WorkerRetryDelay != 5 {
		t.Errorf("worker_retry_delay: got %d, want 5", cfg.Retry.WorkerRetryDelay)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server: ServerConfig{Host: "localhost", Port: 9090},
		DBPath: "/tmp/db",
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
