// Package worker runs one source adapter through a single ingestion pass:
// search, filter, dedup, download, store — emitting progress over the event
// bus throughout (spec §4.5). One Worker per adapter per run; the supervisor
// owns the worker registry and lifecycle (internal/supervisor).
package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/paperflow/internal/adapter"
	"github.com/hyperjump/paperflow/internal/bus"
	"github.com/hyperjump/paperflow/internal/models"
	"github.com/hyperjump/paperflow/internal/perrors"
	"github.com/hyperjump/paperflow/internal/sanitize"
	"github.com/hyperjump/paperflow/internal/storage"
)

// Params carries the per-run input a worker needs to drive one adapter.
type Params struct {
	Adapter     adapter.SourceAdapter
	DisplayName string
	Query       string
	RunID       string
	Mode        models.Mode

	MaxPerAgent   int // 0 means unlimited
	PerQueryLimit int
	RespectDates  bool
	StartDate     time.Time
	StagingDir    string

	// StartedAt is the run's start time, used verbatim (via
	// models.RunTimeLayout) as DownloadedDate so RollbackSource's
	// "downloaded_date >= ?" bound compares like-for-like sortable strings
	// (spec §4.5 step 6b).
	StartedAt time.Time

	// LibraryRoot is the committed library root, carried through for the
	// supervisor's rollback path — never deleted even when it happens to
	// overlap a staging scan (spec §4.6 step 3).
	LibraryRoot string
}

// RelevanceFilter is the subset of *filter.Filter a worker needs; kept as a
// local interface so this package doesn't need to import internal/filter
// just for one method signature.
type RelevanceFilter interface {
	IsRelevant(title, abstract string) bool
}

// Worker drives a single adapter through one search+filter+download+store pass.
type Worker struct {
	params Params
	store  *storage.Store
	filter RelevanceFilter
	bus    *bus.Bus
	logger *zap.Logger
}

// New constructs a Worker. store may be nil in TEST mode, where no writes occur.
func New(params Params, store *storage.Store, f RelevanceFilter, b *bus.Bus, logger *zap.Logger) *Worker {
	return &Worker{params: params, store: store, filter: f, bus: b, logger: logger}
}

// Run executes the worker's algorithm to completion or until ctx is cancelled.
// Each failure is also published as an ERROR event on the bus; those events
// are what the supervisor's HandleError acts on, while the returned error is
// only logged by the supervisor.
func (w *Worker) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := fmt.Sprintf("%v", r)
			w.emit(ctx, models.Event{Type: models.EventError, Source: w.params.DisplayName, RunID: w.params.RunID, Err: fmt.Errorf("worker panic: %v", r), Stack: stack})
			err = fmt.Errorf("%w: panic in %s: %v", perrors.ErrAdapter, w.params.DisplayName, r)
		}
	}()

	w.emit(ctx, models.Event{Type: models.EventUpdateRow, Source: w.params.DisplayName, Status: "Running", RunID: w.params.RunID, Mode: w.params.Mode})

	startDate := w.params.StartDate
	if !w.params.RespectDates {
		startDate = time.Time{}
	}

	limit := w.params.PerQueryLimit
	candidates, searchErr := w.params.Adapter.Search(ctx, w.params.Query, startDate, limit)
	if searchErr != nil {
		wrapped := fmt.Errorf("%w: %s search: %v", perrors.ErrAdapter, w.params.DisplayName, searchErr)
		w.emit(ctx, models.Event{Type: models.EventError, Source: w.params.DisplayName, RunID: w.params.RunID, Err: wrapped})
		return wrapped
	}
	w.emit(ctx, models.Event{Type: models.EventProgressUpdate, Source: w.params.DisplayName, RunID: w.params.RunID, Found: len(candidates)})

	var kept []models.Candidate
	for _, c := range candidates {
		if w.filter == nil || w.filter.IsRelevant(c.Title, c.Abstract) {
			kept = append(kept, c)
		}
	}

	if w.params.Mode == models.ModeTest {
		w.emit(ctx, models.Event{Type: models.EventUpdateRow, Source: w.params.DisplayName, Status: "Complete", RunID: w.params.RunID, Count: len(kept), Details: fmt.Sprintf("%d relevant of %d found", len(kept), len(candidates))})
		return nil
	}

	max := w.params.MaxPerAgent
	if max > 0 && len(kept) > max {
		kept = kept[:max]
	}

	downloaded, duplicates := 0, 0
	for i, c := range kept {
		if ctx.Err() != nil {
			break
		}

		isDup, dupErr := w.isDuplicate(c)
		if dupErr != nil {
			wrapped := fmt.Errorf("%w: dedup check: %v", perrors.ErrStorage, dupErr)
			w.emit(ctx, models.Event{Type: models.EventError, Source: w.params.DisplayName, RunID: w.params.RunID, Err: wrapped})
			return fmt.Errorf("%w", perrors.ErrAdapter)
		}
		if isDup {
			duplicates++
			w.emitProgress(ctx, i+1, len(kept), downloaded, duplicates)
			continue
		}

		path, dlErr := w.params.Adapter.Download(ctx, c, w.params.StagingDir)
		if dlErr != nil {
			if w.logger != nil {
				w.logger.Warn("worker: download failed", zap.String("source", w.params.DisplayName), zap.String("id", c.ID), zap.Error(dlErr))
			}
			continue
		}

		c.PdfPath = path
		c.DownloadedDate = w.params.StartedAt.Format(models.RunTimeLayout)
		c.RunID = w.params.RunID

		if w.store != nil {
			if _, storeErr := w.store.AddPaper(&c); storeErr != nil {
				wrapped := fmt.Errorf("%w: add_paper: %v", perrors.ErrStorage, storeErr)
				w.emit(ctx, models.Event{Type: models.EventError, Source: w.params.DisplayName, RunID: w.params.RunID, Err: wrapped})
				return fmt.Errorf("%w", perrors.ErrAdapter)
			}
		}

		downloaded++
		w.emitProgress(ctx, i+1, len(kept), downloaded, duplicates)
	}

	if w.params.Mode == models.ModeBackfill && downloaded == 0 && duplicates == 0 {
		wrapped := fmt.Errorf("%w: %s yielded nothing", perrors.ErrBackfillEmpty, w.params.DisplayName)
		w.emit(ctx, models.Event{Type: models.EventError, Source: w.params.DisplayName, RunID: w.params.RunID, Err: wrapped})
		return wrapped
	}

	w.emit(ctx, models.Event{Type: models.EventUpdateRow, Source: w.params.DisplayName, Status: "Complete", RunID: w.params.RunID, Count: downloaded, Details: fmt.Sprintf("New: %d, Duplicates: %d", downloaded, duplicates)})
	return nil
}

func (w *Worker) isDuplicate(c models.Candidate) (bool, error) {
	if w.store == nil {
		return false, nil
	}
	hash := storage.PaperHash(c.SourceURL)
	exists, err := w.store.ExistsByHash(hash)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}
	filename := sanitize.Filename(c.Title, ".pdf")
	return w.store.LibraryHasFilename(filename), nil
}

func (w *Worker) emitProgress(ctx context.Context, i, n, downloaded, duplicates int) {
	details := fmt.Sprintf("Downloading (%d/%d)", i, n)
	if w.params.Mode == models.ModeBackfill {
		details = fmt.Sprintf("New: %d, Duplicates: %d", downloaded, duplicates)
	}
	progress := 0.0
	if n > 0 {
		progress = float64(i) / float64(n)
	}
	w.emit(ctx, models.Event{
		Type: models.EventProgressUpdate, Source: w.params.DisplayName, RunID: w.params.RunID,
		Found: n, Downloaded: downloaded, Progress: progress, Details: details,
	})
}

func (w *Worker) emit(ctx context.Context, ev models.Event) {
	if w.bus == nil {
		return
	}
	_ = w.bus.Publish(ctx, ev)
}
