package server

import (
	"sync"
	"time"

	"github.com/hyperjump/paperflow/internal/models"
)

// SourceStatus is the latest known state of one adapter within a run.
type SourceStatus struct {
	Source     string    `json:"source"`
	Status     string    `json:"status"`
	Found      int       `json:"found"`
	Downloaded int       `json:"downloaded"`
	Progress   float64   `json:"progress"`
	Details    string    `json:"details,omitempty"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RunStatus aggregates every source's status for a single run.
type RunStatus struct {
	RunID     string                  `json:"run_id"`
	Mode      models.Mode             `json:"mode"`
	StartedAt time.Time               `json:"started_at"`
	UpdatedAt time.Time               `json:"updated_at"`
	Sources   map[string]SourceStatus `json:"sources"`
}

// Tracker maintains the in-memory run status table the status API reads
// from, fed by the supervisor's event loop (spec §6's /api/v1/status and
// /api/v1/runs/{run_id}).
type Tracker struct {
	mu      sync.RWMutex
	runs    map[string]*RunStatus
	current string
}

// NewTracker constructs an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{runs: map[string]*RunStatus{}}
}

// Record folds one bus event into the tracker's run/source state.
func (t *Tracker) Record(ev models.Event) {
	if ev.RunID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	run, ok := t.runs[ev.RunID]
	if !ok {
		run = &RunStatus{RunID: ev.RunID, Mode: ev.Mode, StartedAt: time.Now(), Sources: map[string]SourceStatus{}}
		t.runs[ev.RunID] = run
	}
	t.current = ev.RunID
	run.UpdatedAt = time.Now()

	if ev.Source == "" {
		return
	}
	src := run.Sources[ev.Source]
	src.Source = ev.Source
	src.UpdatedAt = time.Now()

	switch ev.Type {
	case models.EventUpdateRow:
		if ev.Status != "" {
			src.Status = ev.Status
		}
		if ev.Count != 0 {
			src.Downloaded = ev.Count
		}
		if ev.Details != "" {
			src.Details = ev.Details
		}
	case models.EventProgressUpdate:
		src.Found = ev.Found
		src.Downloaded = ev.Downloaded
		src.Progress = ev.Progress
		if ev.Details != "" {
			src.Details = ev.Details
		}
	case models.EventError:
		src.Status = "FAILED"
		if ev.Err != nil {
			src.Error = ev.Err.Error()
		}
	}
	run.Sources[ev.Source] = src
}

// Run returns a copy of the named run's status, if known.
func (t *Tracker) Run(runID string) (RunStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.runs[runID]
	if !ok {
		return RunStatus{}, false
	}
	return cloneRun(r), true
}

// Current returns the most recently updated run, if any run has started.
func (t *Tracker) Current() (RunStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == "" {
		return RunStatus{}, false
	}
	r, ok := t.runs[t.current]
	if !ok {
		return RunStatus{}, false
	}
	return cloneRun(r), true
}

func cloneRun(r *RunStatus) RunStatus {
	out := *r
	out.Sources = make(map[string]SourceStatus, len(r.Sources))
	for k, v := range r.Sources {
		out.Sources[k] = v
	}
	return out
}
