package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir, "run1", false)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, fileName)); err != nil {
		t.Fatalf("expected lock file to exist: %v", err)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, fileName)); !os.IsNotExist(err) {
		t.Fatalf("expected lock file removed, got err=%v", err)
	}
}

func TestAcquireFailsWhileHeldBySelf(t *testing.T) {
	dir := t.TempDir()

	l1, err := Acquire(dir, "run1", false)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l1.Release()

	_, err = Acquire(dir, "run2", false)
	if !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
}

func TestAcquireWithForceOverridesExistingLock(t *testing.T) {
	dir := t.TempDir()

	l1, err := Acquire(dir, "run1", false)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l1.Release()

	l2, err := Acquire(dir, "run2", true)
	if err != nil {
		t.Fatalf("expected force Acquire to succeed, got %v", err)
	}
	defer l2.Release()

	holder, err := Holder(dir)
	if err != nil {
		t.Fatalf("Holder: %v", err)
	}
	if holder.RunID != "run2" {
		t.Fatalf("expected run2 to hold the lock, got %q", holder.RunID)
	}
}

func TestHolderReturnsErrorWhenNoLockExists(t *testing.T) {
	dir := t.TempDir()
	if _, err := Holder(dir); err == nil {
		t.Fatal("expected an error when no lock file exists")
	}
}
