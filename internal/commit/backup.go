// Package commit implements the two-stage commit pipeline: timestamped
// backup of the existing library, staging-to-library promotion with
// conflict resolution, and production-store synchronization (spec §4.7).
// Grounded on original_source/src/backup.py (zip-archive snapshot,
// "Research_Backup_<MMDDYY.ss>.zip" naming, Library/ prefix inside the
// archive) and original_source/src/cloud_transfer.py (staging/cloud
// conflict scan and resolution). Uses archive/zip from the standard
// library — no example repo in the pack wires a third-party zip library,
// and archive/zip already covers the original's zipfile.ZIP_DEFLATED
// usage exactly; see DESIGN.md.
package commit

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CreateBackup zips libraryRoot (as "Library/...") plus dbPath (at the
// archive root) into backupDir, named Research_Backup_<MMDDYY.ss>.zip per
// spec §6's persisted-state layout. now is passed in rather than read from
// time.Now() internally so callers can produce deterministic filenames in
// tests.
func CreateBackup(libraryRoot, dbPath, backupDir string, now time.Time) (string, error) {
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("Research_Backup_%s.zip", now.Format("010206.05"))
	backupPath := filepath.Join(backupDir, name)

	f, err := os.Create(backupPath)
	if err != nil {
		return "", fmt.Errorf("create backup archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	if libraryRoot != "" {
		if err := addTreeToZip(zw, libraryRoot, "Library"); err != nil {
			return "", fmt.Errorf("archive library tree: %w", err)
		}
	}
	if dbPath != "" {
		if _, statErr := os.Stat(dbPath); statErr == nil {
			if err := addFileToZip(zw, dbPath, filepath.Base(dbPath)); err != nil {
				return "", fmt.Errorf("archive database: %w", err)
			}
		}
	}

	return backupPath, nil
}

func addTreeToZip(zw *zip.Writer, root, arcPrefix string) error {
	_, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil
	}
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, "~$") || base == "Thumbs.db" {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return addFileToZip(zw, path, filepath.Join(arcPrefix, rel))
	})
}

func addFileToZip(zw *zip.Writer, srcPath, arcName string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   filepath.ToSlash(arcName),
		Method: zip.Deflate,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
