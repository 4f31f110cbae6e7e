package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/paperflow/internal/config"
	"github.com/hyperjump/paperflow/internal/models"
)

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func (m *mockWatchService) AddDirectory(path string) error {
	for _, d := range m.dirs {
		if d == path {
			return nil
		}
	}
	m.dirs = append(m.dirs, path)
	return nil
}

func (m *mockWatchService) RemoveDirectory(path string) error {
	for i, d := range m.dirs {
		if d == path {
			m.dirs = append(m.dirs[:i], m.dirs[i+1:]...)
			return nil
		}
	}
	return nil
}

func TestHandleHealth(t *testing.T) {
	srv := New(NewTracker(), &config.ServerConfig{Port: 8080}, zap.NewNop(), nil, "", nil)
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.handleHealth(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
}

func TestHandleStatusIdleWhenNoRuns(t *testing.T) {
	srv := New(NewTracker(), &config.ServerConfig{Port: 8080}, zap.NewNop(), nil, "", nil)
	r := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.handleStatus(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["status"] != "idle" {
		t.Errorf("status: got %v, want idle", out["status"])
	}
}

func TestHandleStatusReflectsCurrentRun(t *testing.T) {
	tracker := NewTracker()
	tracker.Record(models.Event{Type: models.EventUpdateRow, Source: "arxiv", RunID: "run1", Status: "Running", Mode: models.ModeDaily})

	srv := New(tracker, &config.ServerConfig{Port: 8080}, zap.NewNop(), nil, "", nil)
	r := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.handleStatus(w, r)

	var out map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["status"] != "running" {
		t.Errorf("status: got %v, want running", out["status"])
	}
}

func TestHandleRunStatusNotFound(t *testing.T) {
	srv := New(NewTracker(), &config.ServerConfig{Port: 8080}, zap.NewNop(), nil, "", nil)

	r := chi.NewRouter()
	r.Get("/api/v1/runs/{run_id}", srv.handleRunStatus)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: got %d", w.Code)
	}
}

func TestHandleRunStatusFound(t *testing.T) {
	tracker := NewTracker()
	tracker.Record(models.Event{Type: models.EventProgressUpdate, Source: "arxiv", RunID: "run1", Found: 5, Downloaded: 2, Progress: 0.4})

	srv := New(tracker, &config.ServerConfig{Port: 8080}, zap.NewNop(), nil, "", nil)
	r := chi.NewRouter()
	r.Get("/api/v1/runs/{run_id}", srv.handleRunStatus)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/run1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}

	var run RunStatus
	if err := json.NewDecoder(w.Body).Decode(&run); err != nil {
		t.Fatal(err)
	}
	if run.Sources["arxiv"].Found != 5 {
		t.Errorf("found: got %d, want 5", run.Sources["arxiv"].Found)
	}
}

func TestHandleWatchDirectoriesList(t *testing.T) {
	mock := &mockWatchService{dirs: []string{"/tmp/drop"}}
	srv := New(NewTracker(), &config.ServerConfig{Port: 8080}, zap.NewNop(), mock, "", nil)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/watch/directories", nil)
	w := httptest.NewRecorder()
	srv.handleWatchDirectoriesList(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Directories) != 1 || out.Directories[0] != "/tmp/drop" {
		t.Errorf("directories: got %v", out.Directories)
	}
}

func TestHandleWatchDirectoriesList_NotEnabled(t *testing.T) {
	srv := New(NewTracker(), &config.ServerConfig{Port: 8080}, zap.NewNop(), nil, "", nil)
	r := httptest.NewRequest(http.MethodGet, "/api/v1/watch/directories", nil)
	w := httptest.NewRecorder()
	srv.handleWatchDirectoriesList(w, r)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d, want 501", w.Code)
	}
}

func TestHandleWatchDirectoriesAdd(t *testing.T) {
	dir := t.TempDir()
	mock := &mockWatchService{}
	srv := New(NewTracker(), &config.ServerConfig{Port: 8080}, zap.NewNop(), mock, "", nil)

	body, _ := json.Marshal(map[string]string{"path": dir})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/watch/directories", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.handleWatchDirectoriesAdd(w, r)
	if w.Code != http.StatusCreated {
		t.Errorf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	if len(mock.Directories()) != 1 {
		t.Errorf("expected 1 directory, got %v", mock.Directories())
	}
}

func TestHandleWatchDirectoriesAdd_InvalidPath(t *testing.T) {
	dir := t.TempDir()
	mock := &mockWatchService{}
	srv := New(NewTracker(), &config.ServerConfig{Port: 8080}, zap.NewNop(), mock, "", nil)

	body, _ := json.Marshal(map[string]string{"path": dir + "/nonexistent"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/watch/directories", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.handleWatchDirectoriesAdd(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleWatchDirectoriesRemove(t *testing.T) {
	dir := t.TempDir()
	mock := &mockWatchService{dirs: []string{dir}}
	srv := New(NewTracker(), &config.ServerConfig{Port: 8080}, zap.NewNop(), mock, "", nil)

	r := httptest.NewRequest(http.MethodDelete, "/api/v1/watch/directories?path="+dir, nil)
	w := httptest.NewRecorder()
	srv.handleWatchDirectoriesRemove(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	if len(mock.Directories()) != 0 {
		t.Errorf("expected 0 directories, got %v", mock.Directories())
	}
}

func TestTrackerRecordCoalescesLatestSourceState(t *testing.T) {
	tracker := NewTracker()
	tracker.Record(models.Event{Type: models.EventProgressUpdate, Source: "arxiv", RunID: "run1", Found: 10, Downloaded: 1})
	tracker.Record(models.Event{Type: models.EventProgressUpdate, Source: "arxiv", RunID: "run1", Found: 10, Downloaded: 4})
	tracker.Record(models.Event{Type: models.EventUpdateRow, Source: "arxiv", RunID: "run1", Status: "Complete", Count: 4})

	run, ok := tracker.Run("run1")
	if !ok {
		t.Fatal("expected run1 to be tracked")
	}
	src := run.Sources["arxiv"]
	if src.Downloaded != 4 || src.Status != "Complete" {
		t.Errorf("unexpected source state: %+v", src)
	}
	if time.Since(run.UpdatedAt) > time.Second {
		t.Errorf("expected UpdatedAt to be recent, got %v", run.UpdatedAt)
	}
}
