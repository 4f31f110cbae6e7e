// Package main is the paperflow CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/paperflow/internal/adapter"
	"github.com/hyperjump/paperflow/internal/adapter/aaai"
	"github.com/hyperjump/paperflow/internal/adapter/anthology"
	"github.com/hyperjump/paperflow/internal/adapter/arxiv"
	"github.com/hyperjump/paperflow/internal/adapter/htmlrender"
	"github.com/hyperjump/paperflow/internal/adapter/labs"
	"github.com/hyperjump/paperflow/internal/adapter/lesswrong"
	"github.com/hyperjump/paperflow/internal/adapter/openreview"
	"github.com/hyperjump/paperflow/internal/bus"
	"github.com/hyperjump/paperflow/internal/cli"
	"github.com/hyperjump/paperflow/internal/commit"
	"github.com/hyperjump/paperflow/internal/config"
	"github.com/hyperjump/paperflow/internal/filter"
	"github.com/hyperjump/paperflow/internal/ingestwatch"
	"github.com/hyperjump/paperflow/internal/lock"
	"github.com/hyperjump/paperflow/internal/models"
	"github.com/hyperjump/paperflow/internal/netutil"
	"github.com/hyperjump/paperflow/internal/perrors"
	"github.com/hyperjump/paperflow/internal/sanitize"
	"github.com/hyperjump/paperflow/internal/server"
	"github.com/hyperjump/paperflow/internal/storage"
	"github.com/hyperjump/paperflow/internal/supervisor"
	"github.com/hyperjump/paperflow/internal/worker"
	"github.com/hyperjump/paperflow/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/paperflow/config.yaml"

// loadConfig loads config from path. If path is the default and the file does not exist,
// it tries config.yaml in the current directory (for development).
// Returns the config and the path that was actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if path == defaultConfigPath {
			if unwrap := errors.Unwrap(err); unwrap != nil && os.IsNotExist(unwrap) {
				if cwd, cwdErr := os.Getwd(); cwdErr == nil {
					fallback := filepath.Join(cwd, "config.yaml")
					if _, statErr := os.Stat(fallback); statErr == nil {
						cfg, loadErr := config.Load(fallback)
						if loadErr != nil {
							return nil, "", loadErr
						}
						return cfg, fallback, nil
					}
				}
			}
		}
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "run":
		runPipeline()
	case "status":
		runStatus()
	case "backup":
		runBackup()
	case "rollback":
		runRollback()
	case "watch":
		runWatch()
	case "rename":
		runRename()
	case "version", "--version", "-v":
		fmt.Printf("paperflow version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func parseMode(raw string) (models.Mode, error) {
	switch strings.ToLower(raw) {
	case "test":
		return models.ModeTest, nil
	case "daily":
		return models.ModeDaily, nil
	case "backfill":
		return models.ModeBackfill, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q (want test|daily|backfill)", perrors.ErrConfig, raw)
	}
}

func runPipeline() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	modeFlag := fs.String("mode", "test", "run mode: test|daily|backfill")
	queryFile := fs.String("query-file", "", "path to a boolean query overriding every enabled source's configured query")
	forceLock := fs.Bool("force-lock", false, "override an existing instance lock")
	_ = fs.Parse(os.Args[2:])

	mode, err := parseMode(*modeFlag)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var overrideQuery string
	if *queryFile != "" {
		data, rerr := os.ReadFile(*queryFile)
		if rerr != nil {
			fmt.Printf("Failed to read query file: %v\n", rerr)
			os.Exit(1)
		}
		overrideQuery = strings.TrimSpace(string(data))
	}

	logger := newLogger(cfg.Debug)
	defer logger.Sync()

	runID := uuid.New().String()
	runStartedAt := time.Now()

	instanceLock, err := lock.Acquire(cfg.CloudStorage.Path, runID, *forceLock)
	if err != nil {
		fmt.Printf("Could not acquire instance lock: %v\n", err)
		os.Exit(1)
	}
	defer instanceLock.Release()

	workingPath := commit.EnsureNewRun(cfg.DBPath, runID)
	if err := commit.CopyDatabase(cfg.DBPath, workingPath); err != nil {
		logger.Fatal("failed to snapshot production db", zap.Error(err))
	}
	workingStore, _, err := storage.Open(workingPath, logger)
	if err != nil {
		logger.Fatal("failed to open working store", zap.Error(err))
	}
	if cfg.CloudStorage.CheckDuplicates {
		workingStore.SetLibraryRoot(cfg.CloudStorage.Path)
	}
	defer workingStore.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.New(0)
	tracker := server.NewTracker()
	sv := supervisor.New(ctx, b, workingStore, supervisorSettings(cfg), runID, runStartedAt, logger)

	startConfiguredWorkers(sv, cfg, workingStore, mode, runID, overrideQuery, runStartedAt, logger)

	var watch *ingestwatch.Watcher
	if cfg.IngestPath != "" {
		watch = ingestwatch.New([]string{cfg.IngestPath}, func(c models.Candidate) {
			if err := ingestManual(workingStore, cfg, c, runID); err != nil {
				logger.Warn("run: manual ingest failed", zap.String("path", c.PdfPath), zap.Error(err))
			}
		}, logger)
		if err := watch.Start(ctx); err != nil {
			logger.Warn("run: ingest watcher failed to start", zap.Error(err))
			watch = nil
		}
	}

	// watch is typed *ingestwatch.Watcher; passed through a nil interface
	// variable so an unset ingest_path yields a truly nil WatchDirectoryService
	// rather than a non-nil interface wrapping a nil pointer.
	var watchSvc server.WatchDirectoryService
	if watch != nil {
		watchSvc = watch
	}
	resolvedConfigPath := *configPath
	srv := server.New(tracker, &cfg.Server, logger, watchSvc, resolvedConfigPath, cfg)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("run: status server exited", zap.Error(err))
		}
	}()

	evCtx, evCancel := context.WithCancel(context.Background())
	go sv.RunEventLoop(evCtx, func(ev models.Event) {
		tracker.Record(ev)
		if ev.Type == models.EventLog {
			logger.Info(ev.Text)
		}
	})

	doneCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sv.CheckTimeouts()
				if !sv.IsAnyAlive() {
					close(doneCh)
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var interrupted bool
	select {
	case <-doneCh:
	case <-sigChan:
		interrupted = true
		sv.StopAll()
	}

	_ = sv.Wait()
	evCancel()
	cancel()
	if watch != nil {
		watch.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	_ = srv.Stop(shutdownCtx)
	shutdownCancel()

	if interrupted {
		fmt.Println("Run interrupted; working copy and staging left in place for inspection.")
		os.Exit(1)
	}

	if mode == models.ModeTest || !cfg.CloudStorage.Enabled {
		fmt.Println("Run complete (test mode or commit disabled; nothing promoted).")
		return
	}

	if err := commitRun(cfg, workingStore, runID, logger); err != nil {
		fmt.Printf("Commit failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Run %s committed to %s\n", runID, cfg.CloudStorage.Path)
}

func supervisorSettings(cfg *config.Config) supervisor.Settings {
	return supervisor.Settings{
		MaxWorkerRetries: cfg.Retry.MaxWorkerRetries,
		WorkerTimeout:    time.Duration(cfg.Retry.WorkerTimeout) * time.Second,
		WorkerRetryDelay: time.Duration(cfg.Retry.WorkerRetryDelay) * time.Second,
	}
}

type sourceSpec struct {
	name string
	cfg  config.SourceConfig
}

func startConfiguredWorkers(sv *supervisor.Supervisor, cfg *config.Config, store *storage.Store, mode models.Mode, runID, overrideQuery string, startedAt time.Time, logger *zap.Logger) {
	netSettings := netutil.Settings{
		APIMaxRetries:      cfg.Retry.APIMaxRetries,
		APIBaseDelay:       time.Duration(cfg.Retry.APIBaseDelay) * time.Second,
		RequestPacingDelay: time.Duration(cfg.Retry.RequestPacingDelay * float64(time.Second)),
	}
	limits := modeLimits(cfg, mode)
	stagingDir := cfg.StagingDir
	if stagingDir == "" {
		stagingDir = cfg.PapersDir
	}
	startDate := computeStartDate(store, cfg.DateOverlapDays)

	renderer := htmlrender.Placeholder{}

	for _, spec := range []sourceSpec{
		{"arxiv", cfg.Sources.Arxiv},
		{"lesswrong", cfg.Sources.LessWrong},
		{"aaai", cfg.Sources.AAAI},
		{"openreview", cfg.Sources.OpenReview},
		{"anthology", cfg.Sources.Anthology},
		{"labs", cfg.Sources.Labs},
	} {
		if !spec.cfg.Enabled {
			continue
		}
		query := spec.cfg.Query
		if overrideQuery != "" {
			query = overrideQuery
		}
		q, err := filter.Parse(query)
		if err != nil {
			logger.Warn("run: invalid query, skipping source", zap.String("source", spec.name), zap.Error(err))
			continue
		}

		client := netutil.New(spec.name, netSettings, logger)
		var a adapter.SourceAdapter
		switch spec.name {
		case "arxiv":
			a = arxiv.New(client, logger)
		case "lesswrong":
			a = lesswrong.New(client, renderer, logger)
		case "aaai":
			a = aaai.New(client, logger)
		case "openreview":
			a = openreview.New(client, logger)
		case "anthology":
			a = anthology.New(client, logger, spec.cfg.VolumeIDs, spec.cfg.MetaHost)
		case "labs":
			a = labs.New(client, renderer, logger, nil)
		}

		params := worker.Params{
			Adapter:       a,
			DisplayName:   spec.name,
			Query:         query,
			RunID:         runID,
			Mode:          mode,
			MaxPerAgent:   limits.Limit(),
			PerQueryLimit: limits.PerQueryLimit,
			RespectDates:  limits.RespectDateRange,
			StartDate:     startDate,
			StagingDir:    filepath.Join(stagingDir, spec.name),
			StartedAt:     startedAt,
			LibraryRoot:   cfg.CloudStorage.Path,
		}
		sv.StartWorker(filter.New(q), a, spec.name, params)
	}
}

// computeStartDate derives the search start date for modes that respect
// date ranges: the latest published_date already on file, pulled back by
// date_overlap_days to tolerate late-indexed papers (spec §6,
// date_overlap_days). A store with no rows yet, or a parse failure,
// yields the zero time (no lower bound).
func computeStartDate(store *storage.Store, overlapDays int) time.Time {
	latest, err := store.GetLatestDate()
	if err != nil || latest == "" {
		return time.Time{}
	}
	parsed, err := time.Parse("2006-01-02", latest)
	if err != nil {
		return time.Time{}
	}
	return parsed.AddDate(0, 0, -overlapDays)
}

func modeLimits(cfg *config.Config, mode models.Mode) config.ModeLimits {
	switch mode {
	case models.ModeDaily:
		return cfg.ModeSettings.Daily
	case models.ModeBackfill:
		return cfg.ModeSettings.Backfill
	default:
		return cfg.ModeSettings.Testing
	}
}

// ingestManual folds a manually dropped PDF into the working store: the
// file is copied into the staging tree under its classified category (so
// Promote later treats it exactly like a downloaded paper) before AddPaper
// records it.
func ingestManual(store *storage.Store, cfg *config.Config, c models.Candidate, runID string) error {
	stagingDir := cfg.StagingDir
	if stagingDir == "" {
		stagingDir = cfg.PapersDir
	}
	dest := adapter.CategoryPath(c, filepath.Join(stagingDir, "manual"))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create manual staging dir: %w", err)
	}
	if c.PdfPath != dest {
		data, err := os.ReadFile(c.PdfPath)
		if err != nil {
			return fmt.Errorf("read dropped file: %w", err)
		}
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return fmt.Errorf("write staged file: %w", err)
		}
	}

	c.PdfPath = dest
	c.RunID = runID
	c.DownloadedDate = time.Now().Format(models.RunTimeLayout)
	_, err := store.AddPaper(&c)
	return err
}

func commitRun(cfg *config.Config, workingStore *storage.Store, runID string, logger *zap.Logger) error {
	stagingDir := cfg.StagingDir
	if stagingDir == "" {
		stagingDir = cfg.PapersDir
	}

	// An unattended run skips every conflicting file rather than guessing;
	// a human operator resolves conflicts later via the library tree directly.
	skipConflicts := func(commit.Conflict) commit.Resolution { return commit.ResolutionSkip }
	result, err := commit.Promote(stagingDir, cfg.CloudStorage.Path, skipConflicts)
	if err != nil {
		return fmt.Errorf("promote: %w", err)
	}
	if result.Cancelled {
		return fmt.Errorf("commit cancelled by conflict resolver")
	}
	logger.Info("commit: files promoted", zap.Int("moved", len(result.Moved)), zap.Int("skipped", len(result.Skipped)))

	prodStore, _, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open production store: %w", err)
	}
	defer prodStore.Close()

	synced, err := commit.SyncProduction(workingStore, prodStore, runID, cfg.CloudStorage.Path)
	if err != nil {
		return fmt.Errorf("sync production: %w", err)
	}
	logger.Info("commit: production store synced", zap.Int("synced", synced))
	return nil
}

func newLogger(debug bool) *zap.Logger {
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	runIDFlag := fs.String("run-id", "", "run id to fetch (defaults to the current run)")
	format := fs.String("format", "text", "output format: text|compact|json")
	_ = fs.Parse(os.Args[2:])

	path := "/api/v1/status"
	if *runIDFlag != "" {
		path = "/api/v1/runs/" + url.PathEscape(*runIDFlag)
	}
	resp, err := http.Get(*serverURL + path)
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Printf("Status request failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}

	var run server.RunStatus
	if *runIDFlag != "" {
		if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
			fmt.Printf("Failed to parse response: %v\n", err)
			os.Exit(1)
		}
	} else {
		var out struct {
			Status     string             `json:"status"`
			CurrentRun *server.RunStatus  `json:"current_run"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Failed to parse response: %v\n", err)
			os.Exit(1)
		}
		if out.CurrentRun == nil {
			fmt.Println("idle: no run in progress")
			return
		}
		run = *out.CurrentRun
	}

	_ = cli.WriteRunStatus(os.Stdout, run, cli.OutputFormat(*format))
}

func runBackup() {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	path, err := commit.CreateBackup(cfg.CloudStorage.Path, cfg.DBPath, cfg.CloudStorage.BackupPath, time.Now())
	if err != nil {
		fmt.Printf("Backup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Backup written to %s\n", path)
}

func runRollback() {
	fs := flag.NewFlagSet("rollback", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	source := fs.String("source", "", "source adapter name to roll back")
	runIDFlag := fs.String("run-id", "", "run id, logged only; the rollback covers the source's full history")
	_ = fs.Parse(os.Args[2:])

	if *source == "" {
		fmt.Println("Usage: paperflow rollback --source=<name> --run-id=<id> [--config=...]")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Debug)
	defer logger.Sync()

	store, _, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		fmt.Printf("Failed to open production store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *runIDFlag != "" && logger != nil {
		// A bare run id carries no timestamp of its own; RollbackSource scopes
		// by downloaded_date instead, so run-id is accepted for CLI symmetry
		// with the spec but does not further narrow the rollback window.
		logger.Info("rollback: scoping by full source history, run-id is informational only", zap.String("run_id", *runIDFlag))
	}

	result, err := store.RollbackSource(*source, time.Time{})
	if err != nil {
		fmt.Printf("Rollback failed: %v\n", err)
		os.Exit(1)
	}
	for _, path := range result.DeletedPaths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("rollback: failed to remove file", zap.String("path", path), zap.Error(err))
		}
	}
	fmt.Printf("Rolled back source %q: removed %d file(s)\n", *source, len(result.DeletedPaths))
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: paperflow watch <add|remove|list> [path]")
		fmt.Println("  paperflow watch add <path>     Add a drop-folder to watch")
		fmt.Println("  paperflow watch remove <path>  Remove a watched drop-folder")
		fmt.Println("  paperflow watch list           List watched drop-folders")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[3:])
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: paperflow watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]string{"path": path})
		resp, err := http.Post(*serverURL+"/api/v1/watch/directories", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Add failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: paperflow watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Remove failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/watch/directories")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// runRename mirrors the original's run_beautification maintenance pass:
// re-derive each library PDF's title-cased filename and rename the file in
// place if it differs. Grounded on original_source/src/utils.py.
func runRename() {
	fs := flag.NewFlagSet("rename", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dryRun := fs.Bool("dry-run", false, "print renames without performing them")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	renamed := 0
	err = filepath.Walk(cfg.CloudStorage.Path, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil || info.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		beautified := sanitize.ToTitleCase(strings.ReplaceAll(base, "_", " "))
		newName := sanitize.Filename(beautified, ".pdf")
		if newName == filepath.Base(path) {
			return nil
		}
		target := filepath.Join(filepath.Dir(path), newName)
		fmt.Printf("%s -> %s\n", path, target)
		if !*dryRun {
			if err := os.Rename(path, target); err != nil {
				return fmt.Errorf("rename %s: %w", path, err)
			}
		}
		renamed++
		return nil
	})
	if err != nil {
		fmt.Printf("Rename pass failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%d file(s) renamed\n", renamed)
}

func printUsage() {
	fmt.Println(`paperflow - resilient multi-source research-paper ingestion pipeline

Usage:
  paperflow run [flags]                   Run the ingestion pipeline once
  paperflow status [flags]                Query the running pipeline's status
  paperflow backup [flags]                Snapshot the library and production db
  paperflow rollback [flags]              Roll back a source's writes
  paperflow watch <add|remove|list>       Manage ingest_path drop-folders
  paperflow rename [flags]                Re-sanitize and rename library filenames
  paperflow version                       Show version
  paperflow help                          Show this help

Run Flags:
  --config string       Config file path (default: /usr/local/etc/paperflow/config.yaml)
  --mode string          test|daily|backfill (default: test)
  --query-file string    Override every enabled source's query with this file's contents
  --force-lock           Override an existing instance lock

Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --run-id string    Fetch a specific run instead of the current one
  --format string    text|compact|json (default: text)

Rollback Flags:
  --config string    Config file path
  --source string     Source adapter name (required)
  --run-id string     Run id (logged only; does not narrow the rollback)

Examples:
  paperflow run --mode=daily
  paperflow status --format=compact
  paperflow backup
  paperflow rollback --source=arxiv --run-id=1234
  paperflow watch add /data/drop
  paperflow rename --dry-run`)
}
