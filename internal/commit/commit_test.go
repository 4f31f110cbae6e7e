package commit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/paperflow/internal/models"
	"github.com/hyperjump/paperflow/internal/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	dir := t.TempDir()
	s, _, err := storage.Open(filepath.Join(dir, "prod.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func TestScanConflictsDetectsExistingTarget(t *testing.T) {
	root := t.TempDir()
	staging := filepath.Join(root, "staging")
	library := filepath.Join(root, "library")

	writeFile(t, filepath.Join(staging, "ML", "paper.pdf"), "staged-bytes")
	writeFile(t, filepath.Join(library, "ML", "paper.pdf"), "library-bytes")
	writeFile(t, filepath.Join(staging, "ML", "new.pdf"), "new-bytes")

	conflicts, err := ScanConflicts(staging, library)
	if err != nil {
		t.Fatalf("ScanConflicts: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected exactly one conflict, got %d", len(conflicts))
	}
	if conflicts[0].Filename != "paper.pdf" || conflicts[0].Category != "ML" {
		t.Fatalf("unexpected conflict: %+v", conflicts[0])
	}
}

func TestScanConflictsNoStagingDirIsNotAnError(t *testing.T) {
	root := t.TempDir()
	conflicts, err := ScanConflicts(filepath.Join(root, "missing"), filepath.Join(root, "library"))
	if err != nil {
		t.Fatalf("expected no error for missing staging dir, got %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %d", len(conflicts))
	}
}

func TestPromoteMovesNonConflictingFiles(t *testing.T) {
	root := t.TempDir()
	staging := filepath.Join(root, "staging")
	library := filepath.Join(root, "library")
	writeFile(t, filepath.Join(staging, "NLP", "a.pdf"), "a-bytes")

	result, err := Promote(staging, library, nil)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if result.Cancelled {
		t.Fatal("did not expect cancellation")
	}
	if len(result.Moved) != 1 {
		t.Fatalf("expected one moved file, got %d", len(result.Moved))
	}

	target := filepath.Join(library, "NLP", "a.pdf")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected file at %s: %v", target, err)
	}
	if _, err := os.Stat(staging); !os.IsNotExist(err) {
		t.Fatalf("expected staging dir removed after promote, got err=%v", err)
	}
}

func TestPromoteSkipsConflictWhenResolverSaysSkip(t *testing.T) {
	root := t.TempDir()
	staging := filepath.Join(root, "staging")
	library := filepath.Join(root, "library")
	writeFile(t, filepath.Join(staging, "ML", "dup.pdf"), "staged")
	writeFile(t, filepath.Join(library, "ML", "dup.pdf"), "original")

	resolve := func(Conflict) Resolution { return ResolutionSkip }
	result, err := Promote(staging, library, resolve)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("expected one skipped file, got %d", len(result.Skipped))
	}

	content, err := os.ReadFile(filepath.Join(library, "ML", "dup.pdf"))
	if err != nil {
		t.Fatalf("read library file: %v", err)
	}
	if string(content) != "original" {
		t.Fatalf("expected library copy untouched, got %q", content)
	}
}

func TestPromoteOverwritesConflictWhenResolverSaysOverwrite(t *testing.T) {
	root := t.TempDir()
	staging := filepath.Join(root, "staging")
	library := filepath.Join(root, "library")
	writeFile(t, filepath.Join(staging, "ML", "dup.pdf"), "staged")
	writeFile(t, filepath.Join(library, "ML", "dup.pdf"), "original")

	resolve := func(Conflict) Resolution { return ResolutionOverwrite }
	result, err := Promote(staging, library, resolve)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if len(result.Moved) != 1 {
		t.Fatalf("expected one moved file, got %d", len(result.Moved))
	}

	content, err := os.ReadFile(filepath.Join(library, "ML", "dup.pdf"))
	if err != nil {
		t.Fatalf("read library file: %v", err)
	}
	if string(content) != "staged" {
		t.Fatalf("expected library copy overwritten with staged content, got %q", content)
	}
}

func TestPromoteCancelAllLeavesStagingUntouched(t *testing.T) {
	root := t.TempDir()
	staging := filepath.Join(root, "staging")
	library := filepath.Join(root, "library")
	writeFile(t, filepath.Join(staging, "ML", "dup.pdf"), "staged")
	writeFile(t, filepath.Join(library, "ML", "dup.pdf"), "original")

	resolve := func(Conflict) Resolution { return ResolutionCancelAll }
	result, err := Promote(staging, library, resolve)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if !result.Cancelled {
		t.Fatal("expected Cancelled to be true")
	}
	if _, err := os.Stat(filepath.Join(staging, "ML", "dup.pdf")); err != nil {
		t.Fatalf("expected staging file to remain after cancel, got %v", err)
	}
}

func TestSyncProductionAddsMovedPapersAndMarksSynced(t *testing.T) {
	root := t.TempDir()
	staging := filepath.Join(root, "staging")
	library := filepath.Join(root, "library")
	writeFile(t, filepath.Join(staging, "ML", "a.pdf"), "a-bytes")

	working := openTestStore(t)
	if _, err := working.AddPaper(&models.Candidate{
		Title:     "A Great Paper",
		SourceURL: "https://example.com/a",
		PdfPath:   filepath.Join(staging, "ML", "a.pdf"),
		Source:    "arxiv",
		RunID:     "run-1",
	}); err != nil {
		t.Fatalf("seed working store: %v", err)
	}

	if _, err := Promote(staging, library, nil); err != nil {
		t.Fatalf("Promote: %v", err)
	}

	prod := openTestStore(t)
	n, err := SyncProduction(working, prod, "run-1", library)
	if err != nil {
		t.Fatalf("SyncProduction: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 synced paper, got %d", n)
	}

	papers, err := prod.GetUnsynced()
	if err != nil {
		t.Fatalf("GetUnsynced: %v", err)
	}
	if len(papers) != 0 {
		t.Fatalf("expected no unsynced papers after sync, got %d", len(papers))
	}
}

func TestSyncProductionMarksSkippedPaperAsRejected(t *testing.T) {
	root := t.TempDir()
	staging := filepath.Join(root, "staging")
	library := filepath.Join(root, "library")
	writeFile(t, filepath.Join(staging, "ML", "dup.pdf"), "staged")
	writeFile(t, filepath.Join(library, "ML", "dup.pdf"), "original")

	working := openTestStore(t)
	if _, err := working.AddPaper(&models.Candidate{
		Title:     "Duplicate Paper",
		SourceURL: "https://example.com/dup",
		PdfPath:   filepath.Join(staging, "ML", "dup.pdf"),
		Source:    "arxiv",
		RunID:     "run-2",
	}); err != nil {
		t.Fatalf("seed working store: %v", err)
	}

	resolve := func(Conflict) Resolution { return ResolutionSkip }
	if _, err := Promote(staging, library, resolve); err != nil {
		t.Fatalf("Promote: %v", err)
	}

	prod := openTestStore(t)
	n, err := SyncProduction(working, prod, "run-2", library)
	if err != nil {
		t.Fatalf("SyncProduction: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 synced papers for a rejected one, got %d", n)
	}

	papers, err := prod.GetPapersByRunID("run-2")
	if err != nil {
		t.Fatalf("GetPapersByRunID: %v", err)
	}
	if len(papers) != 1 || papers[0].PdfPath != models.RejectedSentinel {
		t.Fatalf("expected one paper with PdfPath=REJECTED, got %+v", papers)
	}
}

func TestCopyDatabaseCopiesExistingFile(t *testing.T) {
	root := t.TempDir()
	prod := filepath.Join(root, "prod.db")
	writeFile(t, prod, "prod-bytes")
	working := filepath.Join(root, "prod.working-run1.db")

	if err := CopyDatabase(prod, working); err != nil {
		t.Fatalf("CopyDatabase: %v", err)
	}
	content, err := os.ReadFile(working)
	if err != nil {
		t.Fatalf("read working db: %v", err)
	}
	if string(content) != "prod-bytes" {
		t.Fatalf("unexpected working db content: %q", content)
	}
}

func TestCopyDatabaseMissingProdIsNotAnError(t *testing.T) {
	root := t.TempDir()
	working := filepath.Join(root, "prod.working-run1.db")
	if err := CopyDatabase(filepath.Join(root, "missing.db"), working); err != nil {
		t.Fatalf("expected no error for missing production db, got %v", err)
	}
	if _, err := os.Stat(working); !os.IsNotExist(err) {
		t.Fatalf("expected no working db created, got err=%v", err)
	}
}

func TestEnsureNewRunProducesSiblingPath(t *testing.T) {
	got := EnsureNewRun("/data/metadata.db", "run123")
	want := "/data/metadata.working-run123.db"
	if got != want {
		t.Fatalf("EnsureNewRun() = %q, want %q", got, want)
	}
}

func TestCreateBackupProducesZipWithLibraryAndDB(t *testing.T) {
	root := t.TempDir()
	library := filepath.Join(root, "library")
	writeFile(t, filepath.Join(library, "ML", "a.pdf"), "a-bytes")
	writeFile(t, filepath.Join(library, "~$lock.tmp"), "should be skipped")

	dbPath := filepath.Join(root, "metadata.db")
	writeFile(t, dbPath, "fake-db-bytes")

	backupDir := filepath.Join(root, "backups")
	now := time.Date(2026, 7, 30, 10, 20, 5, 0, time.UTC)

	path, err := CreateBackup(library, dbPath, backupDir, now)
	if err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}
	if filepath.Base(path) != "Research_Backup_073026.05.zip" {
		t.Fatalf("unexpected backup filename: %s", filepath.Base(path))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected backup archive to exist: %v", err)
	}
}
