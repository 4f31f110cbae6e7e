// Package openreview implements the SourceAdapter for the reviewing
// platform's V2 REST API, grounded on
// original_source/src/searchers/openreview_searcher.py (search_notes
// keyword search restricted to content='title', nested V2 note.content
// field shape, and the /pdf?id= download URL convention with a custom
// content.pdf override when present).
package openreview

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/paperflow/internal/adapter"
	"github.com/hyperjump/paperflow/internal/models"
	"github.com/hyperjump/paperflow/internal/netutil"
)

const (
	sourceName = "openreview"
	apiBase    = "https://api2.openreview.net"
)

type noteContentField struct {
	Value json.RawMessage `json:"value"`
}

type note struct {
	ID          string `json:"id"`
	CDate       int64  `json:"cdate"`
	Invitations []string `json:"invitations"`
	Content     map[string]noteContentField `json:"content"`
}

type searchResponse struct {
	Notes []note `json:"notes"`
}

// Adapter implements adapter.SourceAdapter for the reviewing platform.
type Adapter struct {
	client *netutil.Client
	logger *zap.Logger
}

func New(client *netutil.Client, logger *zap.Logger) *Adapter {
	return &Adapter{client: client, logger: logger}
}

func (a *Adapter) Name() string { return sourceName }

func (a *Adapter) Search(ctx context.Context, query string, startDate time.Time, maxResults int) ([]models.Candidate, error) {
	limit := 100
	if maxResults > 0 {
		limit = maxResults
	}

	v := url.Values{}
	v.Set("term", query)
	v.Set("content", "title")
	v.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+"/notes/search?"+v.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("openreview: build request: %w", err)
	}

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("openreview: decode response: %w", err)
	}

	var candidates []models.Candidate
	for _, n := range parsed.Notes {
		if ctx.Err() != nil {
			break
		}
		if len(candidates) >= limit {
			break
		}

		title := stringField(n.Content, "title")
		if title == "" {
			continue
		}

		pubDate := time.UnixMilli(n.CDate).UTC()
		if !startDate.IsZero() && pubDate.Before(startDate) {
			continue
		}

		authors := strings.Join(stringSliceField(n.Content, "authors"), ", ")
		abstract := stringField(n.Content, "abstract")

		pdfURL := apiBase + "/pdf?id=" + n.ID
		if pdfVal := stringField(n.Content, "pdf"); pdfVal != "" {
			if strings.HasPrefix(pdfVal, "/") {
				pdfURL = apiBase + pdfVal
			} else {
				pdfURL = pdfVal
			}
		}

		candidates = append(candidates, models.Candidate{
			ID:            n.ID,
			Title:         title,
			Authors:       authors,
			PublishedDate: pubDate.Format("2006-01-02"),
			Abstract:      abstract,
			SourceURL:     "https://openreview.net/forum?id=" + n.ID,
			PdfURL:        pdfURL,
			Language:      "en",
			Source:        sourceName,
		})
	}

	if a.logger != nil {
		a.logger.Info("openreview search complete", zap.Int("kept", len(candidates)))
	}
	return candidates, nil
}

func (a *Adapter) Download(ctx context.Context, c models.Candidate, dir string) (string, error) {
	if c.PdfURL == "" {
		return "", fmt.Errorf("openreview: candidate %q has no pdf_url", c.ID)
	}
	dest := adapter.CategoryPath(c, dir)
	return adapter.FetchPDF(ctx, a.client, c.PdfURL, dest)
}

func stringField(content map[string]noteContentField, key string) string {
	field, ok := content[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(field.Value, &s); err == nil {
		return s
	}
	return ""
}

func stringSliceField(content map[string]noteContentField, key string) []string {
	field, ok := content[key]
	if !ok {
		return nil
	}
	var s []string
	if err := json.Unmarshal(field.Value, &s); err == nil {
		return s
	}
	return nil
}
