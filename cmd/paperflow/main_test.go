package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/paperflow/internal/config"
	"github.com/hyperjump/paperflow/internal/models"
	"github.com/hyperjump/paperflow/internal/storage"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		raw     string
		want    models.Mode
		wantErr bool
	}{
		{"test", models.ModeTest, false},
		{"Daily", models.ModeDaily, false},
		{"BACKFILL", models.ModeBackfill, false},
		{"nightly", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseMode(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseMode(%q) expected an error, got nil", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseMode(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("parseMode(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_missingFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := loadConfig(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing, non-default config path")
	}
}

func TestModeLimits(t *testing.T) {
	testingLimit := 5
	dailyLimit := 50
	cfg := &config.Config{
		ModeSettings: config.ModeSettingsConfig{
			Testing:  config.ModeLimits{MaxPapersPerAgent: &testingLimit},
			Daily:    config.ModeLimits{MaxPapersPerAgent: &dailyLimit},
			Backfill: config.ModeLimits{RespectDateRange: false},
		},
	}

	if got := modeLimits(cfg, models.ModeTest).Limit(); got != testingLimit {
		t.Errorf("modeLimits(test).Limit() = %d, want %d", got, testingLimit)
	}
	if got := modeLimits(cfg, models.ModeDaily).Limit(); got != dailyLimit {
		t.Errorf("modeLimits(daily).Limit() = %d, want %d", got, dailyLimit)
	}
	if got := modeLimits(cfg, models.ModeBackfill).Limit(); got != 0 {
		t.Errorf("modeLimits(backfill).Limit() = %d, want 0 (unlimited)", got)
	}
}

func TestSupervisorSettings(t *testing.T) {
	cfg := &config.Config{
		Retry: config.RetryConfig{
			MaxWorkerRetries: 3,
			WorkerTimeout:    120,
			WorkerRetryDelay: 5,
		},
	}
	s := supervisorSettings(cfg)
	if s.MaxWorkerRetries != 3 {
		t.Errorf("MaxWorkerRetries = %d, want 3", s.MaxWorkerRetries)
	}
	if s.WorkerTimeout != 120*time.Second {
		t.Errorf("WorkerTimeout = %v, want 120s", s.WorkerTimeout)
	}
	if s.WorkerRetryDelay != 5*time.Second {
		t.Errorf("WorkerRetryDelay = %v, want 5s", s.WorkerRetryDelay)
	}
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	dir := t.TempDir()
	s, _, err := storage.Open(filepath.Join(dir, "prod.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestComputeStartDateEmptyStoreYieldsZeroTime(t *testing.T) {
	store := openTestStore(t)
	got := computeStartDate(store, 3)
	if !got.IsZero() {
		t.Errorf("computeStartDate() on empty store = %v, want zero time", got)
	}
}

func TestComputeStartDatePullsBackByOverlap(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.AddPaper(&models.Candidate{
		Title:         "Paper A",
		SourceURL:     "https://example.com/a",
		PublishedDate: "2026-07-20",
		Source:        "arxiv",
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	got := computeStartDate(store, 3)
	want := time.Date(2026, 7, 17, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("computeStartDate() = %v, want %v", got, want)
	}
}
