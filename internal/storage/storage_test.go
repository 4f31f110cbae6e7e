package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/paperflow/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metadata.db")
	s, newer, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if newer {
		t.Fatalf("fresh database reported as newer than supported")
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// S3 from spec.md §8.
func TestAddPaperMergesByNormalizedURL(t *testing.T) {
	s := openTestStore(t)

	id1, err := s.AddPaper(&models.Candidate{
		Title: "T", SourceURL: "http://example.com/x?utm_source=foo", Source: "A",
	})
	if err != nil {
		t.Fatalf("first AddPaper: %v", err)
	}

	id2, err := s.AddPaper(&models.Candidate{
		Title: "T", SourceURL: "https://example.com/x", Source: "B",
	})
	if err != nil {
		t.Fatalf("second AddPaper: %v", err)
	}

	if id1 != id2 {
		t.Fatalf("expected single merged row, got ids %d and %d", id1, id2)
	}

	papers, err := s.GetUnsynced()
	if err != nil {
		t.Fatalf("GetUnsynced: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("expected exactly 1 row, got %d", len(papers))
	}
	if papers[0].Source != "A, B" {
		t.Fatalf("expected source 'A, B', got %q", papers[0].Source)
	}
}

func TestAddPaperTitleDedup(t *testing.T) {
	s := openTestStore(t)

	abstract := "This is a sufficiently long abstract shared across both duplicate submissions of the same underlying paper for dedup testing purposes."

	id1, err := s.AddPaper(&models.Candidate{Title: "Same Title", Abstract: abstract, Source: "A"})
	if err != nil {
		t.Fatalf("first AddPaper: %v", err)
	}
	id2, err := s.AddPaper(&models.Candidate{Title: "same title", Abstract: abstract, Source: "B"})
	if err != nil {
		t.Fatalf("second AddPaper: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected title-hash dedup to merge rows")
	}
}

// S5 from spec.md §8.
func TestRollbackSource(t *testing.T) {
	s := openTestStore(t)
	start := time.Now()

	solo1, err := s.AddPaper(&models.Candidate{Title: "Solo 1", SourceURL: "https://a.com/1", Source: "S", PdfPath: "/staging/solo1.pdf", DownloadedDate: start.Format(models.RunTimeLayout)})
	if err != nil {
		t.Fatalf("AddPaper: %v", err)
	}
	_, err = s.AddPaper(&models.Candidate{Title: "Solo 2", SourceURL: "https://a.com/2", Source: "S", PdfPath: "/staging/solo2.pdf", DownloadedDate: start.Format(models.RunTimeLayout)})
	if err != nil {
		t.Fatalf("AddPaper: %v", err)
	}
	sharedID, err := s.AddPaper(&models.Candidate{Title: "Shared", SourceURL: "https://a.com/3", Source: "S", PdfPath: "/staging/shared.pdf", DownloadedDate: start.Format(models.RunTimeLayout)})
	if err != nil {
		t.Fatalf("AddPaper: %v", err)
	}
	_, err = s.AddPaper(&models.Candidate{Title: "Shared", SourceURL: "https://a.com/3-alt", Source: "T", DownloadedDate: start.Format(models.RunTimeLayout)})
	if err != nil {
		t.Fatalf("AddPaper: %v", err)
	}

	result, err := s.RollbackSource("S", start.Add(-time.Second))
	if err != nil {
		t.Fatalf("RollbackSource: %v", err)
	}
	if len(result.DeletedPaths) != 2 {
		t.Fatalf("expected 2 deleted paths, got %d: %v", len(result.DeletedPaths), result.DeletedPaths)
	}

	_, err = s.queryPapers(`SELECT id, paper_hash, title_hash, title, abstract, authors,
		published_date, downloaded_date, language, source, source_url, pdf_path,
		synced_to_cloud, run_id, category FROM papers WHERE id = ?`, solo1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	remaining, err := s.GetUnsynced()
	if err != nil {
		t.Fatalf("GetUnsynced: %v", err)
	}
	var found bool
	for _, p := range remaining {
		if p.ID == sharedID {
			found = true
			if p.Source != "T" {
				t.Fatalf("expected shared row source to be 'T', got %q", p.Source)
			}
		}
		if p.ID == solo1 {
			t.Fatalf("solo row should have been deleted")
		}
	}
	if !found {
		t.Fatalf("shared row should survive rollback")
	}
}
