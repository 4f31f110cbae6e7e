// Package config provides configuration loading and structs for paperflow.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a paperflow run.
type Config struct {
	Debug bool `yaml:"debug"`

	DBPath     string `yaml:"db_path"`
	PapersDir  string `yaml:"papers_dir"`
	StagingDir string `yaml:"staging_dir"`
	IngestPath string `yaml:"ingest_path"`

	DateOverlapDays int `yaml:"date_overlap_days"`

	CloudStorage CloudStorageConfig `yaml:"cloud_storage"`
	ModeSettings ModeSettingsConfig `yaml:"mode_settings"`
	Retry        RetryConfig        `yaml:"retry_settings"`
	Sources      SourcesConfig      `yaml:"sources"`
	Server       ServerConfig       `yaml:"server"`
}

// CloudStorageConfig configures the library (two-stage commit target).
type CloudStorageConfig struct {
	Path            string `yaml:"path"`
	Enabled         bool   `yaml:"enabled"`
	CheckDuplicates bool   `yaml:"check_duplicates"`
	BackupPath      string `yaml:"backup_path"`
}

// ModeLimits bounds a single run mode's candidate intake.
type ModeLimits struct {
	// MaxPapersPerAgent is a pointer so nil can denote "unlimited" (spec §6);
	// a non-nil zero value would otherwise be indistinguishable from unset.
	MaxPapersPerAgent *int `yaml:"max_papers_per_agent"`
	PerQueryLimit     int  `yaml:"per_query_limit"`
	RespectDateRange  bool `yaml:"respect_date_range"`
}

// Limit returns the effective per-adapter cap, or 0 for unlimited.
func (m ModeLimits) Limit() int {
	if m.MaxPapersPerAgent == nil {
		return 0
	}
	return *m.MaxPapersPerAgent
}

// ModeSettingsConfig holds the per-mode limits table.
type ModeSettingsConfig struct {
	Testing  ModeLimits `yaml:"testing"`
	Daily    ModeLimits `yaml:"daily"`
	Backfill ModeLimits `yaml:"backfill"`
}

// RetryConfig holds the concurrency/retry knobs (spec §5).
type RetryConfig struct {
	MaxWorkerRetries   int     `yaml:"max_worker_retries"`
	WorkerTimeout      int     `yaml:"worker_timeout"`
	WorkerRetryDelay   int     `yaml:"worker_retry_delay"`
	APIMaxRetries      int     `yaml:"api_max_retries"`
	APIBaseDelay       int     `yaml:"api_base_delay"`
	RequestPacingDelay float64 `yaml:"request_pacing_delay"`
}

// SourceConfig configures a single adapter's enablement and extra knobs.
type SourceConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Query     string   `yaml:"query"`
	VolumeIDs []string `yaml:"volume_ids,omitempty"`
	MetaHost  string   `yaml:"meta_host,omitempty"`
}

// SourcesConfig enumerates the per-adapter configuration block.
type SourcesConfig struct {
	Arxiv      SourceConfig `yaml:"arxiv"`
	LessWrong  SourceConfig `yaml:"lesswrong"`
	AAAI       SourceConfig `yaml:"aaai"`
	OpenReview SourceConfig `yaml:"openreview"`
	Anthology  SourceConfig `yaml:"anthology"`
	Labs       SourceConfig `yaml:"labs"`
}

// ServerConfig holds HTTP status-API settings (see internal/server).
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Load reads and parses a YAML config file, applying defaults and expanding
// relative paths against the config file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.DBPath = expandPath(cfg.DBPath, configDir)
	cfg.PapersDir = expandPath(cfg.PapersDir, configDir)
	cfg.StagingDir = expandPath(cfg.StagingDir, configDir)
	if cfg.IngestPath != "" {
		cfg.IngestPath = expandPath(cfg.IngestPath, configDir)
	}
	if cfg.CloudStorage.Path != "" {
		cfg.CloudStorage.Path = expandPath(cfg.CloudStorage.Path, configDir)
	}
	if cfg.CloudStorage.BackupPath != "" {
		cfg.CloudStorage.BackupPath = expandPath(cfg.CloudStorage.BackupPath, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used for persisting CLI-driven edits
// (e.g. adding a watch directory or toggling a source).
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil && strings.HasPrefix(path, "~") {
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Join(configDir, path)
}
