package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/hyperjump/paperflow/internal/bus"
	"github.com/hyperjump/paperflow/internal/models"
	"github.com/hyperjump/paperflow/internal/storage"
	"github.com/hyperjump/paperflow/internal/worker"
)

type alwaysRelevant struct{}

func (alwaysRelevant) IsRelevant(string, string) bool { return true }

type slowAdapter struct{ block chan struct{} }

func (s *slowAdapter) Name() string { return "slow" }
func (s *slowAdapter) Search(ctx context.Context, query string, startDate time.Time, maxResults int) ([]models.Candidate, error) {
	<-s.block
	return nil, nil
}
func (s *slowAdapter) Download(ctx context.Context, c models.Candidate, dir string) (string, error) {
	return "", nil
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	dir := t.TempDir()
	s, _, err := storage.Open(dir+"/test.db", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSupervisorIsAnyAliveAndStopAll(t *testing.T) {
	store := openTestStore(t)
	b := bus.New(64)
	sv := New(context.Background(), b, store, Settings{WorkerTimeout: time.Minute, MaxWorkerRetries: 0, WorkerRetryDelay: time.Millisecond}, "run1", time.Now(), nil)

	a := &slowAdapter{block: make(chan struct{})}
	sv.StartWorker(alwaysRelevant{}, a, "slow", worker.Params{DisplayName: "slow", Mode: models.ModeTest})

	if !sv.IsAnyAlive() {
		t.Fatal("expected a worker to be alive immediately after start")
	}

	sv.StopAll()
	close(a.block)
	_ = sv.Wait()
}

func TestSupervisorCheckTimeoutsEmitsErrorForStaleHeartbeat(t *testing.T) {
	store := openTestStore(t)
	b := bus.New(64)
	sv := New(context.Background(), b, store, Settings{WorkerTimeout: time.Millisecond, MaxWorkerRetries: 0}, "run1", time.Now(), nil)

	a := &slowAdapter{block: make(chan struct{})}
	sv.StartWorker(alwaysRelevant{}, a, "slow", worker.Params{DisplayName: "slow", Mode: models.ModeTest})

	time.Sleep(5 * time.Millisecond)
	sv.CheckTimeouts()

	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-b.Events():
			if ev.Type == models.EventUpdateRow {
				continue // the worker's own "Running" row update precedes the timeout
			}
			if ev.Type != models.EventError {
				t.Fatalf("expected ERROR event, got %v", ev.Type)
			}
			close(a.block)
			return
		case <-deadline:
			t.Fatal("timed out waiting for timeout error event")
		}
	}
}
