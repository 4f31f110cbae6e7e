package config

// ApplyDefaults sets default values for any zero values in cfg, mirroring
// the retry/timeout/limit defaults normative in spec §5 and §6.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "data/metadata.db"
	}
	if cfg.PapersDir == "" {
		cfg.PapersDir = "data/papers"
	}
	if cfg.StagingDir == "" {
		cfg.StagingDir = cfg.PapersDir
	}
	if cfg.DateOverlapDays == 0 {
		cfg.DateOverlapDays = 2
	}

	unlimited := func(n int) *int { return &n }
	if cfg.ModeSettings.Testing.PerQueryLimit == 0 {
		five := 5
		cfg.ModeSettings.Testing.MaxPapersPerAgent = &five
		cfg.ModeSettings.Testing.PerQueryLimit = 5
		cfg.ModeSettings.Testing.RespectDateRange = false
	}
	if cfg.ModeSettings.Daily.PerQueryLimit == 0 {
		cfg.ModeSettings.Daily.MaxPapersPerAgent = unlimited(50)
		cfg.ModeSettings.Daily.PerQueryLimit = 100
		cfg.ModeSettings.Daily.RespectDateRange = true
	}
	if cfg.ModeSettings.Backfill.PerQueryLimit == 0 {
		cfg.ModeSettings.Backfill.MaxPapersPerAgent = nil // unlimited
		cfg.ModeSettings.Backfill.PerQueryLimit = 500
		cfg.ModeSettings.Backfill.RespectDateRange = true
	}

	if cfg.Retry.MaxWorkerRetries == 0 {
		cfg.Retry.MaxWorkerRetries = 2
	}
	if cfg.Retry.WorkerTimeout == 0 {
		cfg.Retry.WorkerTimeout = 600
	}
	if cfg.Retry.WorkerRetryDelay == 0 {
		cfg.Retry.WorkerRetryDelay = 5
	}
	if cfg.Retry.APIMaxRetries == 0 {
		cfg.Retry.APIMaxRetries = 3
	}
	if cfg.Retry.APIBaseDelay == 0 {
		cfg.Retry.APIBaseDelay = 2
	}

	if cfg.CloudStorage.BackupPath == "" && cfg.CloudStorage.Path != "" {
		cfg.CloudStorage.BackupPath = cfg.CloudStorage.Path
	}
}
