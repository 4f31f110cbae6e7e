// Package models defines the core data structures shared across the ingestion pipeline.
package models

import "time"

// Paper is the unit of record in the metadata store (spec §3.1).
type Paper struct {
	ID             int64  `db:"id"`
	PaperHash      int64  `db:"paper_hash"`
	TitleHash      int64  `db:"title_hash"`
	Title          string `db:"title"`
	Abstract       string `db:"abstract"`
	Authors        string `db:"authors"`
	PublishedDate  string `db:"published_date"`
	DownloadedDate string `db:"downloaded_date"`
	Language       string `db:"language"`
	// Source is a comma-separated, first-seen-ordered list of adapter names.
	Source string `db:"source"`
	// SourceURL is a semicolon-separated list parallel to Source.
	SourceURL string `db:"source_url"`
	// PdfPath is absolute; the sentinel "REJECTED" marks a user-rejected paper
	// retained only for deduplication.
	PdfPath       string `db:"pdf_path"`
	SyncedToCloud bool   `db:"synced_to_cloud"`
	RunID         string `db:"run_id"`
	Category      string `db:"category"`
}

// RejectedSentinel marks a user-rejected paper retained for dedup purposes only.
const RejectedSentinel = "REJECTED"

// RunTimeLayout is the sortable timestamp format written to DownloadedDate
// and compared against by RollbackSource (spec §4.5 step 6b, §4.6 step 3).
// Lexicographic and chronological order coincide for this layout, which is
// what a plain SQL "downloaded_date >= ?" bound relies on; it must never be
// mixed with a different-width format (e.g. date-only or RFC3339) on either
// side of that comparison.
const RunTimeLayout = "2006-01-02 15:04:05"

// Candidate is what a SourceAdapter yields from Search, before dedup/download.
type Candidate struct {
	ID             string // source-local identifier
	Title          string
	Authors        string
	PublishedDate  string // ISO 8601 or bare year
	Abstract       string
	SourceURL      string
	PdfURL         string
	Language       string
	Source         string
	PdfPath        string
	DownloadedDate string
	RunID          string

	// RawHTML carries page content forward for adapters that synthesize a PDF
	// from scraped HTML instead of downloading one directly (e.g. lab blogs).
	RawHTML string
}

// Mode is the worker execution mode.
type Mode string

const (
	ModeTest     Mode = "TEST"
	ModeDaily    Mode = "DAILY"
	ModeBackfill Mode = "BACKFILL"
)

// Run is an ephemeral grouping identifying one pipeline invocation.
type Run struct {
	ID        string
	StartedAt time.Time
	Mode      Mode
	Query     string
}

// SchemaVersion is one row of the append-only migration log.
type SchemaVersion struct {
	Version   int
	AppliedAt time.Time
}
