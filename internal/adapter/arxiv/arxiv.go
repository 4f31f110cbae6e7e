// Package arxiv implements the SourceAdapter for the open preprint server's
// Atom export API, grounded on original_source/src/searchers/arxiv_searcher.py
// (arxiv.Client/arxiv.Search pagination, date-cutoff early break, English
// default language) but parsed in Go with github.com/mmcdole/gofeed against
// the same query/Atom-feed shape instead of the Python `arxiv` package.
package arxiv

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/hyperjump/paperflow/internal/adapter"
	"github.com/hyperjump/paperflow/internal/models"
	"github.com/hyperjump/paperflow/internal/netutil"
)

const (
	sourceName = "arxiv"
	apiBase    = "http://export.arxiv.org/api/query"
	pageSize   = 100
)

// Adapter implements adapter.SourceAdapter for the preprint server.
type Adapter struct {
	client *netutil.Client
	logger *zap.Logger
}

// New constructs an arXiv adapter using the given resilient HTTP client.
func New(client *netutil.Client, logger *zap.Logger) *Adapter {
	return &Adapter{client: client, logger: logger}
}

func (a *Adapter) Name() string { return sourceName }

// Search paginates the Atom API, translating the structured ANDNOT/AND/OR
// query into arXiv's own "AND NOT" syntax, stopping early once a result
// older than startDate is seen (results are returned newest-first).
func (a *Adapter) Search(ctx context.Context, query string, startDate time.Time, maxResults int) ([]models.Candidate, error) {
	arxivQuery := strings.Join(strings.Fields(strings.ReplaceAll(query, "ANDNOT", "AND NOT")), " ")

	safeLimit := 2000
	if maxResults > 0 {
		safeLimit = maxResults * 10
		if safeLimit > 2000 {
			safeLimit = 2000
		}
	}

	var candidates []models.Candidate
	fp := gofeed.NewParser()

	for start := 0; start < safeLimit; start += pageSize {
		if err := ctx.Err(); err != nil {
			return candidates, nil
		}

		batch := pageSize
		if start+batch > safeLimit {
			batch = safeLimit - start
		}

		feedURL := apiBase + "?" + url.Values{
			"search_query": {arxivQuery},
			"start":        {strconv.Itoa(start)},
			"max_results":  {strconv.Itoa(batch)},
			"sortBy":       {"submittedDate"},
			"sortOrder":    {"descending"},
		}.Encode()

		feed, err := fp.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			if a.logger != nil {
				a.logger.Error("arxiv feed parse failed", zap.Error(err))
			}
			break
		}
		if len(feed.Items) == 0 {
			break
		}

		reachedCutoff := false
		for _, item := range feed.Items {
			if ctx.Err() != nil {
				return candidates, nil
			}

			published := itemPublished(item)
			if !startDate.IsZero() && published.Before(startDate) {
				reachedCutoff = true
				break
			}

			candidates = append(candidates, models.Candidate{
				ID:            entryID(item.GUID),
				Title:         strings.TrimSpace(item.Title),
				Authors:       joinAuthors(item),
				PublishedDate: published.Format("2006-01-02"),
				Abstract:      strings.ReplaceAll(item.Description, "\n", " "),
				SourceURL:     item.GUID,
				PdfURL:        pdfLink(item),
				Language:      "en",
				Source:        sourceName,
			})
		}
		if reachedCutoff || len(feed.Items) < batch {
			break
		}
	}

	return candidates, nil
}

func (a *Adapter) Download(ctx context.Context, c models.Candidate, dir string) (string, error) {
	if c.PdfURL == "" {
		return "", fmt.Errorf("arxiv: candidate %q has no pdf_url", c.ID)
	}
	dest := adapter.CategoryPath(c, dir)
	return adapter.FetchPDF(ctx, a.client, c.PdfURL, dest)
}

func itemPublished(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	return time.Time{}
}

func joinAuthors(item *gofeed.Item) string {
	names := make([]string, 0, len(item.Authors))
	for _, a := range item.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, ", ")
}

func entryID(guid string) string {
	parts := strings.Split(guid, "/")
	return parts[len(parts)-1]
}

func pdfLink(item *gofeed.Item) string {
	for _, l := range item.Links {
		if strings.Contains(l, "/pdf/") {
			return l
		}
	}
	if item.GUID != "" {
		return strings.Replace(item.GUID, "/abs/", "/pdf/", 1)
	}
	return ""
}
