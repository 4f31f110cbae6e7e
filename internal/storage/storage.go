// Package storage implements the versioned relational metadata store
// (spec §4.3): schema migrations, URL-centric hash dedup, cross-source
// merge, run-scoped queries, and rollback.
//
// Grounded on the teacher's internal/storage/sqlite.go (database/sql over
// github.com/mattn/go-sqlite3, WAL mode, directory creation on open),
// generalized from a document/chunk store to the single `papers` table
// this spec describes, with the dedup protocol from
// original_source/src/storage.py (StorageManager.add_paper / _merge_sources
// / rollback_source).
package storage

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/paperflow/internal/hashing"
	"github.com/hyperjump/paperflow/internal/models"
	"github.com/hyperjump/paperflow/internal/perrors"
)

// Store implements the storage engine against a single SQLite file. A
// Store can wrap either the production database or a run's working copy;
// the caller is responsible for only ever mutating the working copy
// during a run (invariant I6).
type Store struct {
	db          *sql.DB
	logger      *zap.Logger
	readOnly    bool
	libraryRoot string
}

// SetLibraryRoot records the library root this store's commit phase targets,
// used by LibraryHasFilename's secondary duplicate check. A Store with no
// library root configured (e.g. the working copy during a TEST run) always
// reports no duplicates.
func (s *Store) SetLibraryRoot(root string) {
	s.libraryRoot = root
}

// Open opens or creates the SQLite database at path, creating parent
// directories as needed, enabling WAL, and bringing the schema up to
// CurrentVersion. If the on-disk schema version exceeds CurrentVersion,
// the store is opened read-only and newerThanSupported is true.
func Open(path string, logger *zap.Logger) (store *Store, newerThanSupported bool, err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, false, fmt.Errorf("%w: create database directory: %v", perrors.ErrStorage, err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, false, fmt.Errorf("%w: open database: %v", perrors.ErrStorage, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, false, fmt.Errorf("%w: enable WAL: %v", perrors.ErrStorage, err)
	}

	version, newer, err := ensureSchema(db)
	if err != nil {
		_ = db.Close()
		return nil, false, fmt.Errorf("%w: migrate schema: %v", perrors.ErrStorage, err)
	}
	if newer && logger != nil {
		logger.Warn("database schema is newer than supported; opening read-only",
			zap.Int("on_disk_version", version), zap.Int("supported_version", CurrentVersion))
	}

	return &Store{db: db, logger: logger, readOnly: newer}, newer, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CopyTo makes a byte-identical copy of the database file at srcPath (for
// example a run's working copy, or a backup snapshot, of the production db).
func CopyTo(srcPath, dstPath string) error {
	if dir := filepath.Dir(dstPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := os.ReadFile(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // no production db yet; working copy starts empty
		}
		return err
	}
	return os.WriteFile(dstPath, data, 0644)
}

func primaryURL(sourceURL string) string {
	// SourceURL may already carry a single URL (Candidate) or a
	// semicolon-joined list (Paper); dedup always hashes the first one.
	parts := strings.SplitN(sourceURL, ";", 2)
	return strings.TrimSpace(parts[0])
}

// PaperHash computes the primary dedup hash a candidate's source URL would
// be stored under, for callers (e.g. the worker's pre-download dedup check)
// that need to test existence before constructing a full Candidate.
func PaperHash(sourceURL string) int64 {
	return hashing.StableHash(hashing.NormalizeURL(primaryURL(sourceURL)))
}

// LibraryHasFilename reports whether a file with the given sanitized
// basename already exists anywhere under the library root, the secondary
// duplicate check spec §4.5 requires alongside the hash lookup (guards
// against the same paper reaching the library via two different URLs).
func (s *Store) LibraryHasFilename(filename string) bool {
	if s.libraryRoot == "" || filename == "" {
		return false
	}
	found := false
	_ = filepath.WalkDir(s.libraryRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found {
			return nil
		}
		if !d.IsDir() && filepath.Base(path) == filename {
			found = true
		}
		return nil
	})
	return found
}

// AddPaper is the central dedup protocol (spec §4.3). It returns the id of
// the inserted or matched row.
func (s *Store) AddPaper(c *models.Candidate) (int64, error) {
	if s.readOnly {
		return 0, fmt.Errorf("%w: store is read-only (schema newer than supported)", perrors.ErrStorage)
	}

	pHash := hashing.StableHash(hashing.NormalizeURL(primaryURL(c.SourceURL)))
	tHash := hashing.StableHash(hashing.NormalizeTitle(c.Title))

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", perrors.ErrStorage, err)
	}
	defer tx.Rollback()

	if pHash != 0 {
		var existingID int64
		err := tx.QueryRow(`SELECT id FROM papers WHERE paper_hash = ?`, pHash).Scan(&existingID)
		switch {
		case err == sql.ErrNoRows:
			// fall through to title-hash lookup / insert
		case err != nil:
			return 0, fmt.Errorf("%w: %v", perrors.ErrStorage, err)
		default:
			if err := s.mergeTx(tx, existingID, c); err != nil {
				return 0, err
			}
			return existingID, tx.Commit()
		}
	}

	if mergeID, ok, err := s.findTitleDuplicateTx(tx, tHash, c); err != nil {
		return 0, err
	} else if ok {
		if err := s.mergeTx(tx, mergeID, c); err != nil {
			return 0, err
		}
		return mergeID, tx.Commit()
	}

	res, err := tx.Exec(`
		INSERT INTO papers (paper_hash, title_hash, title, abstract, authors,
			published_date, pdf_path, source_url, downloaded_date, source,
			synced_to_cloud, language, category, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		nullIfZero(pHash), tHash, c.Title, c.Abstract, c.Authors, c.PublishedDate,
		c.PdfPath, c.SourceURL, c.DownloadedDate, c.Source, c.Language, "", c.RunID,
	)
	if err != nil {
		// UNIQUE(paper_hash) violation from a concurrent insert: fall back
		// to lookup+merge rather than failing (spec §5 ordering guarantee).
		if pHash != 0 {
			var existingID int64
			if qerr := tx.QueryRow(`SELECT id FROM papers WHERE paper_hash = ?`, pHash).Scan(&existingID); qerr == nil {
				if merr := s.mergeTx(tx, existingID, c); merr != nil {
					return 0, merr
				}
				return existingID, tx.Commit()
			}
		}
		return 0, fmt.Errorf("%w: insert: %v", perrors.ErrStorage, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", perrors.ErrStorage, err)
	}
	return id, tx.Commit()
}

func nullIfZero(h int64) interface{} {
	if h == 0 {
		return nil
	}
	return h
}

// findTitleDuplicateTx implements I4: title_hash collisions require
// title-equality and an abstract-prefix (first 500 normalized chars) match.
func (s *Store) findTitleDuplicateTx(tx *sql.Tx, tHash int64, c *models.Candidate) (int64, bool, error) {
	rows, err := tx.Query(`SELECT id, title, abstract FROM papers WHERE title_hash = ?`, tHash)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", perrors.ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var title, abstract string
		if err := rows.Scan(&id, &title, &abstract); err != nil {
			return 0, false, fmt.Errorf("%w: %v", perrors.ErrStorage, err)
		}
		if !strings.EqualFold(title, c.Title) {
			continue
		}
		if abstractPrefix(abstract) == abstractPrefix(c.Abstract) {
			return id, true, nil
		}
	}
	return 0, false, rows.Err()
}

func abstractPrefix(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	if len(s) > 500 {
		return s[:500]
	}
	return s
}

// mergeTx extends source/source_url on the existing row without
// overwriting title, abstract, or pdf_path (spec §4.3.1).
func (s *Store) mergeTx(tx *sql.Tx, id int64, c *models.Candidate) error {
	var source, sourceURL string
	if err := tx.QueryRow(`SELECT source, source_url FROM papers WHERE id = ?`, id).Scan(&source, &sourceURL); err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrStorage, err)
	}

	newSource := appendIfAbsent(source, ", ", c.Source)
	newURLs := appendURLIfAbsent(sourceURL, c.SourceURL)

	if newSource == source && newURLs == sourceURL {
		if s.logger != nil {
			s.logger.Debug("merge: no change", zap.Int64("id", id))
		}
		return nil
	}

	if _, err := tx.Exec(`UPDATE papers SET source = ?, source_url = ? WHERE id = ?`, newSource, newURLs, id); err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrStorage, err)
	}
	if s.logger != nil {
		s.logger.Info("merged duplicate paper", zap.Int64("id", id), zap.String("source", newSource))
	}
	return nil
}

func appendIfAbsent(list, sep, value string) string {
	if value == "" {
		return list
	}
	for _, existing := range splitNonEmpty(list, sep) {
		if existing == value {
			return list
		}
	}
	if list == "" {
		return value
	}
	return list + sep + value
}

func appendURLIfAbsent(list, value string) string {
	if value == "" {
		return list
	}
	normalizedValue := hashing.NormalizeURL(value)
	for _, existing := range splitNonEmpty(list, ";") {
		if hashing.NormalizeURL(existing) == normalizedValue {
			return list
		}
	}
	if list == "" {
		return value
	}
	return list + ";" + value
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetLatestDate returns the most recent published_date across all papers,
// or "" if the store is empty.
func (s *Store) GetLatestDate() (string, error) {
	var latest sql.NullString
	err := s.db.QueryRow(`SELECT MAX(published_date) FROM papers`).Scan(&latest)
	if err != nil {
		return "", fmt.Errorf("%w: %v", perrors.ErrStorage, err)
	}
	return latest.String, nil
}

// GetPapersByRunID returns every row produced by the given run.
func (s *Store) GetPapersByRunID(runID string) ([]*models.Paper, error) {
	return s.queryPapers(`SELECT id, paper_hash, title_hash, title, abstract, authors,
		published_date, downloaded_date, language, source, source_url, pdf_path,
		synced_to_cloud, run_id, category FROM papers WHERE run_id = ?`, runID)
}

// GetUnsynced returns every row not yet promoted to the library.
func (s *Store) GetUnsynced() ([]*models.Paper, error) {
	return s.queryPapers(`SELECT id, paper_hash, title_hash, title, abstract, authors,
		published_date, downloaded_date, language, source, source_url, pdf_path,
		synced_to_cloud, run_id, category FROM papers WHERE synced_to_cloud = 0`)
}

func (s *Store) queryPapers(query string, args ...interface{}) ([]*models.Paper, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", perrors.ErrStorage, err)
	}
	defer rows.Close()

	var out []*models.Paper
	for rows.Next() {
		p := &models.Paper{}
		var synced int
		if err := rows.Scan(&p.ID, &p.PaperHash, &p.TitleHash, &p.Title, &p.Abstract, &p.Authors,
			&p.PublishedDate, &p.DownloadedDate, &p.Language, &p.Source, &p.SourceURL, &p.PdfPath,
			&synced, &p.RunID, &p.Category); err != nil {
			return nil, fmt.Errorf("%w: %v", perrors.ErrStorage, err)
		}
		p.SyncedToCloud = synced != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced sets synced_to_cloud = 1 for the given ids.
func (s *Store) MarkSynced(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrStorage, err)
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(`UPDATE papers SET synced_to_cloud = 1 WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrStorage, err)
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.Exec(id); err != nil {
			return fmt.Errorf("%w: %v", perrors.ErrStorage, err)
		}
	}
	return tx.Commit()
}

// UpdatePdfPath sets pdf_path and synced_to_cloud=1 for the row matching
// paperHash.
func (s *Store) UpdatePdfPath(paperHash int64, newPath string) error {
	_, err := s.db.Exec(`UPDATE papers SET pdf_path = ?, synced_to_cloud = 1 WHERE paper_hash = ?`, newPath, paperHash)
	if err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrStorage, err)
	}
	return nil
}

// RollbackResult reports what RollbackSource did, for the caller to act on
// (deleting files, honoring the "never delete under the library root"
// invariant).
type RollbackResult struct {
	// DeletedPaths are pdf_path values of rows removed entirely (sole-owner rows).
	DeletedPaths []string
}

// RollbackSource implements spec §4.3's rollback_source: rows solely owned
// by sourceName produced since startTime are deleted (their paths
// returned for the caller to delete); multi-source rows are stripped of
// sourceName and kept.
func (s *Store) RollbackSource(sourceName string, startTime time.Time) (*RollbackResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", perrors.ErrStorage, err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT id, source, source_url, pdf_path FROM papers
		WHERE (source = ? OR source LIKE ? OR source LIKE ? OR source LIKE ?)
		AND downloaded_date >= ?`,
		sourceName, sourceName+", %", "%, "+sourceName, "%, "+sourceName+", %",
		startTime.Format(models.RunTimeLayout))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", perrors.ErrStorage, err)
	}

	type row struct {
		id                  int64
		source, sourceURL, pdfPath string
	}
	var matched []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.source, &r.sourceURL, &r.pdfPath); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: %v", perrors.ErrStorage, err)
		}
		matched = append(matched, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", perrors.ErrStorage, err)
	}

	result := &RollbackResult{}
	for _, r := range matched {
		sources := splitNonEmpty(r.source, ", ")
		urls := splitNonEmpty(r.sourceURL, ";")

		if len(sources) <= 1 {
			if _, err := tx.Exec(`DELETE FROM papers WHERE id = ?`, r.id); err != nil {
				return nil, fmt.Errorf("%w: %v", perrors.ErrStorage, err)
			}
			if r.pdfPath != "" && r.pdfPath != models.RejectedSentinel {
				result.DeletedPaths = append(result.DeletedPaths, r.pdfPath)
			}
			continue
		}

		idx := indexOf(sources, sourceName)
		var newSources, newURLs []string
		for i, src := range sources {
			if i == idx {
				continue
			}
			newSources = append(newSources, src)
			if i < len(urls) {
				newURLs = append(newURLs, urls[i])
			}
		}
		if _, err := tx.Exec(`UPDATE papers SET source = ?, source_url = ? WHERE id = ?`,
			strings.Join(newSources, ", "), strings.Join(newURLs, ";"), r.id); err != nil {
			return nil, fmt.Errorf("%w: %v", perrors.ErrStorage, err)
		}
	}

	return result, tx.Commit()
}

func indexOf(list []string, v string) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

// ExistsByHash reports whether a row with the given paper_hash already
// exists (used by the worker's pre-download dedup check).
func (s *Store) ExistsByHash(hash int64) (bool, error) {
	if hash == 0 {
		return false, nil
	}
	var id int64
	err := s.db.QueryRow(`SELECT id FROM papers WHERE paper_hash = ?`, hash).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", perrors.ErrStorage, err)
	}
	return true, nil
}
