package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hyperjump/paperflow/internal/classify"
	"github.com/hyperjump/paperflow/internal/models"
	"github.com/hyperjump/paperflow/internal/netutil"
	"github.com/hyperjump/paperflow/internal/sanitize"
)

// CategoryPath returns the idempotent, classification-based target path
// for a candidate's PDF under dir, shared by every adapter's Download
// implementation (spec §4.4's filename-sanitization contract).
func CategoryPath(c models.Candidate, dir string) string {
	category := classify.Classify(c.Title, c.Abstract, c.Authors)
	filename := sanitize.Filename(c.Title, ".pdf")
	return filepath.Join(dir, sanitize.Filename(category, ""), filename)
}

// FetchPDF downloads pdfURL to destPath through client, returning destPath
// unchanged if a file already exists there (idempotent on filesystem).
func FetchPDF(ctx context.Context, client *netutil.Client, pdfURL, destPath string) (string, error) {
	if _, err := os.Stat(destPath); err == nil {
		return destPath, nil
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("create category directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "paperflow/1.0 (+research ingestion)")

	resp, err := client.Do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %d", pdfURL, resp.StatusCode)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("write file: %w", err)
	}
	return destPath, nil
}
