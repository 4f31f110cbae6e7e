// Package lock implements the per-library instance lock (spec §5): a
// single file under the library root that prevents two runs from starting
// concurrently against the same library, with a force-override escape
// hatch. No example repo in the pack wires a file-locking library (e.g.
// gofrs/flock); the lock only needs to detect a stale PID on the same
// host, which os.FindProcess plus a zero-signal probe already covers, so
// this stays on the standard library — see DESIGN.md.
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

const fileName = ".paperflow.lock"

// Info is the lock file's contents, useful for diagnosing a held lock.
type Info struct {
	PID       int       `json:"pid"`
	RunID     string    `json:"run_id"`
	Host      string    `json:"host"`
	StartedAt time.Time `json:"started_at"`
}

// Lock represents a held instance lock; Release removes the backing file.
type Lock struct {
	path string
}

// Acquire creates the lock file under libraryRoot for runID. If a lock
// already exists and its recorded PID is still alive, Acquire fails with
// ErrHeld unless force is true, in which case the stale (or live) lock is
// overwritten.
func Acquire(libraryRoot, runID string, force bool) (*Lock, error) {
	if err := os.MkdirAll(libraryRoot, 0755); err != nil {
		return nil, fmt.Errorf("create library root: %w", err)
	}
	path := filepath.Join(libraryRoot, fileName)

	if existing, err := readInfo(path); err == nil {
		if !force && processAlive(existing.PID) {
			return nil, fmt.Errorf("%w: held by pid %d (run %s) since %s", ErrHeld, existing.PID, existing.RunID, existing.StartedAt.Format(time.RFC3339))
		}
	}

	info := Info{PID: os.Getpid(), RunID: runID, StartedAt: time.Now()}
	if host, err := os.Hostname(); err == nil {
		info.Host = host
	}
	data, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("marshal lock info: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	return &Lock{path: path}, nil
}

// Release removes the lock file. Safe to call on an already-removed lock.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	err := os.Remove(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Holder reads the current lock file under libraryRoot, if any.
func Holder(libraryRoot string) (*Info, error) {
	info, err := readInfo(filepath.Join(libraryRoot, fileName))
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func readInfo(path string) (Info, error) {
	var info Info
	data, err := os.ReadFile(path)
	if err != nil {
		return info, err
	}
	err = json.Unmarshal(data, &info)
	return info, err
}

// processAlive reports whether pid names a live process on this host, via
// a zero-signal probe (no-op on the target, just existence/permission check).
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}

// ErrHeld is returned by Acquire when a live process already holds the lock.
var ErrHeld = fmt.Errorf("instance lock held")
