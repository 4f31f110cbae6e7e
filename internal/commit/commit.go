package commit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/paperflow/internal/models"
	"github.com/hyperjump/paperflow/internal/perrors"
	"github.com/hyperjump/paperflow/internal/storage"
)

// Resolution is the user's choice for a single conflicting file (spec §4.7 step 2).
type Resolution string

const (
	ResolutionOverwrite Resolution = "overwrite"
	ResolutionSkip      Resolution = "skip"
	ResolutionCancelAll Resolution = "cancel_all"
)

// Conflict describes a staging file whose target already exists in the
// library, with enough metadata for a three-way overwrite/skip/cancel
// decision (grounded on original_source/src/cloud_transfer.py's Conflict).
type Conflict struct {
	Filename       string
	Category       string
	StagingPath    string
	LibraryPath    string
	StagingSize    int64
	LibrarySize    int64
	StagingModTime time.Time
	LibraryModTime time.Time
}

// Resolver decides the resolution for each detected conflict. Returning
// ResolutionCancelAll from any call aborts the whole commit.
type Resolver func(Conflict) Resolution

// Result summarizes what a commit did.
type Result struct {
	Moved     []string
	Skipped   []string
	Cancelled bool
}

// ScanConflicts walks stagingDir for PDFs whose target path under
// libraryRoot (same category subdirectory) already exists.
func ScanConflicts(stagingDir, libraryRoot string) ([]Conflict, error) {
	var conflicts []Conflict
	if _, err := os.Stat(stagingDir); os.IsNotExist(err) {
		return conflicts, nil
	}

	err := filepath.Walk(stagingDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".pdf") {
			return nil
		}
		rel, relErr := filepath.Rel(stagingDir, path)
		if relErr != nil {
			return nil
		}
		category := filepath.Dir(rel)
		if category == "." {
			category = "Uncategorized"
		}
		libraryPath := filepath.Join(libraryRoot, category, filepath.Base(path))

		libInfo, statErr := os.Stat(libraryPath)
		if statErr != nil {
			return nil // no conflict
		}
		conflicts = append(conflicts, Conflict{
			Filename:       filepath.Base(path),
			Category:       category,
			StagingPath:    path,
			LibraryPath:    libraryPath,
			StagingSize:    info.Size(),
			LibrarySize:    libInfo.Size(),
			StagingModTime: info.ModTime(),
			LibraryModTime: libInfo.ModTime(),
		})
		return nil
	})
	return conflicts, err
}

// Promote moves every file under stagingDir into libraryRoot, consulting
// resolve for files that already exist at their target. It only touches
// the filesystem; SyncProduction folds the moved (or skipped) papers'
// metadata into the production store afterward (spec §4.7).
func Promote(stagingDir, libraryRoot string, resolve Resolver) (*Result, error) {
	result := &Result{}

	conflicts, err := ScanConflicts(stagingDir, libraryRoot)
	if err != nil {
		return nil, fmt.Errorf("scan conflicts: %w", err)
	}
	conflictPaths := map[string]Resolution{}
	for _, c := range conflicts {
		res := ResolutionSkip
		if resolve != nil {
			res = resolve(c)
		}
		if res == ResolutionCancelAll {
			result.Cancelled = true
			return result, nil
		}
		conflictPaths[c.StagingPath] = res
	}

	walkErr := filepath.Walk(stagingDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(stagingDir, path)
		if relErr != nil {
			return nil
		}
		category := filepath.Dir(rel)
		if category == "." {
			category = "Uncategorized"
		}
		target := filepath.Join(libraryRoot, category, filepath.Base(path))

		if res, isConflict := conflictPaths[path]; isConflict && res == ResolutionSkip {
			result.Skipped = append(result.Skipped, path)
			return nil
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("%w: create library category dir: %v", perrors.ErrCommitConflict, err)
		}
		if err := moveFile(path, target); err != nil {
			return fmt.Errorf("%w: move %s: %v", perrors.ErrCommitConflict, path, err)
		}
		result.Moved = append(result.Moved, target)
		return nil
	})
	if walkErr != nil {
		return result, walkErr
	}

	_ = os.RemoveAll(stagingDir)
	return result, nil
}

// SyncProduction folds every paper the working store recorded for runID
// into the production store, after Promote has moved (or skipped) their
// files: a paper whose file landed in the library is added/merged with
// its final library path and marked synced; one that was skipped as an
// unresolved conflict is retained only for dedup, per the pdf_path
// "REJECTED" sentinel storage.Store already defines.
func SyncProduction(working, prod *storage.Store, runID, libraryRoot string) (int, error) {
	papers, err := working.GetPapersByRunID(runID)
	if err != nil {
		return 0, fmt.Errorf("list run papers: %w", err)
	}

	var syncedIDs []int64
	for _, p := range papers {
		filename := filepath.Base(p.PdfPath)
		category := filepath.Base(filepath.Dir(p.PdfPath))
		target := filepath.Join(libraryRoot, category, filename)

		candidate := models.Candidate{
			Title:          p.Title,
			Abstract:       p.Abstract,
			Authors:        p.Authors,
			PublishedDate:  p.PublishedDate,
			SourceURL:      p.SourceURL,
			Language:       p.Language,
			Source:         p.Source,
			DownloadedDate: p.DownloadedDate,
			RunID:          p.RunID,
		}
		if _, err := os.Stat(target); err == nil {
			candidate.PdfPath = target
		} else {
			candidate.PdfPath = models.RejectedSentinel
		}

		id, err := prod.AddPaper(&candidate)
		if err != nil {
			return 0, fmt.Errorf("sync paper %q: %w", p.Title, err)
		}
		if candidate.PdfPath != models.RejectedSentinel {
			syncedIDs = append(syncedIDs, id)
		}
	}

	if len(syncedIDs) > 0 {
		if err := prod.MarkSynced(syncedIDs); err != nil {
			return 0, fmt.Errorf("mark synced: %w", err)
		}
	}
	return len(syncedIDs), nil
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	// Cross-device rename (e.g. staging and library on different
	// filesystems) falls back to copy+remove.
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// EnsureNewRun computes the two-stage commit's working-copy path for runID,
// a sibling of prodPath in the same directory.
func EnsureNewRun(prodPath, runID string) string {
	dir := filepath.Dir(prodPath)
	base := strings.TrimSuffix(filepath.Base(prodPath), filepath.Ext(prodPath))
	return filepath.Join(dir, fmt.Sprintf("%s.working-%s%s", base, runID, filepath.Ext(prodPath)))
}

// CopyDatabase copies prodPath to workingPath, establishing the run's
// working_db as a point-in-time copy of the production store (spec §4.7).
// A missing prodPath (first-ever run) is not an error; working_db starts
// empty and storage.Open creates its schema.
func CopyDatabase(prodPath, workingPath string) error {
	in, err := os.Open(prodPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open production db: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(workingPath), 0755); err != nil {
		return fmt.Errorf("create working db dir: %w", err)
	}
	out, err := os.Create(workingPath)
	if err != nil {
		return fmt.Errorf("create working db: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy production db: %w", err)
	}
	return out.Close()
}
