// Package aaai implements the SourceAdapter for the conference's OAI-PMH
// feed, grounded on original_source/src/searchers/aaai_searcher.py (Sickle
// ListRecords harvesting with a broad-recall local keyword filter, a
// MAX_SCAN_LIMIT safety brake, and a guessed PDF URL derived from the
// landing-page article id). Parsed here with encoding/xml directly against
// the OAI-PMH protocol instead of through the Python `sickle` client.
package aaai

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/paperflow/internal/adapter"
	"github.com/hyperjump/paperflow/internal/models"
	"github.com/hyperjump/paperflow/internal/netutil"
)

const (
	sourceName   = "aaai"
	endpoint     = "https://ojs.aaai.org/index.php/AAAI/oai"
	maxScanLimit = 2000
)

type oaiRecord struct {
	Metadata struct {
		DC struct {
			Title      []string `xml:"title"`
			Creator    []string `xml:"creator"`
			Description []string `xml:"description"`
			Date       []string `xml:"date"`
			Language   []string `xml:"language"`
			Identifier []string `xml:"identifier"`
		} `xml:"dc"`
	} `xml:"metadata"`
}

type oaiResponse struct {
	ListRecords struct {
		Records         []oaiRecord `xml:"record"`
		ResumptionToken string      `xml:"resumptionToken"`
	} `xml:"ListRecords"`
}

// Adapter implements adapter.SourceAdapter for the AAAI conference feed.
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

	from := startDate
	if from.IsZero() {
		from = time.Now().AddDate(-2, 0, 0)
		if a.logger != nil {
			a.logger.Warn("no start date provided, defaulting AAAI search window", zap.Time("from", from))
		}
	}

	keywords := adapter.ExtractSimpleKeywords(query)

	var candidates []models.Candidate
	scanned := 0
	resumptionToken := ""

	for {
		if ctx.Err() != nil || scanned > maxScanLimit || len(candidates) >= limit {
			break
		}

		reqURL := buildListRecordsURL(from, resumptionToken)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return candidates, fmt.Errorf("aaai: build request: %w", err)
		}

		resp, err := a.client.Do(ctx, req)
		if err != nil {
			return candidates, err
		}
		var parsed oaiResponse
		decodeErr := xml.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()
		if decodeErr != nil {
			if a.logger != nil {
				a.logger.Error("aaai OAI-PMH decode failed", zap.Error(decodeErr))
			}
			break
		}

		if len(parsed.ListRecords.Records) == 0 {
			break
		}

		for _, rec := range parsed.ListRecords.Records {
			scanned++
			if scanned > maxScanLimit || len(candidates) >= limit {
				break
			}
			if ctx.Err() != nil {
				break
			}

			c, ok := toCandidate(rec, keywords)
			if !ok {
				continue
			}
			candidates = append(candidates, c)
		}

		resumptionToken = parsed.ListRecords.ResumptionToken
		if resumptionToken == "" {
			break
		}
	}

	if a.logger != nil {
		a.logger.Info("aaai search complete", zap.Int("kept", len(candidates)), zap.Int("scanned", scanned))
	}
	return candidates, nil
}

func toCandidate(rec oaiRecord, keywords []string) (models.Candidate, bool) {
	dc := rec.Metadata.DC
	if len(dc.Title) == 0 || dc.Title[0] == "" {
		return models.Candidate{}, false
	}
	title := dc.Title[0]
	abstract := "No Abstract"
	if len(dc.Description) > 0 {
		abstract = dc.Description[0]
	}

	if len(keywords) > 0 {
		lowerTitle := strings.ToLower(title)
		lowerAbstract := strings.ToLower(abstract)
		matched := false
		for _, kw := range keywords {
			if strings.Contains(lowerTitle, kw) || strings.Contains(lowerAbstract, kw) {
				matched = true
				break
			}
		}
		if !matched {
			return models.Candidate{}, false
		}
	}

	var landingURL string
	for _, id := range dc.Identifier {
		if strings.Contains(id, "article/view/") {
			landingURL = id
			break
		}
	}
	if landingURL == "" {
		return models.Candidate{}, false
	}

	articleID := landingURL[strings.LastIndex(landingURL, "/")+1:]
	pdfURL := strings.Replace(landingURL, "/view/", "/download/", 1) + "/" + articleID

	pubDate := ""
	if len(dc.Date) > 0 {
		pubDate = dc.Date[0]
	}
	if len(pubDate) == 4 {
		pubDate += "-01-01"
	}

	language := "en"
	if len(dc.Language) > 0 {
		lang := strings.ToLower(dc.Language[0])
		if !strings.Contains(lang, "eng") && lang != "en" {
			language = lang[:min(2, len(lang))]
		}
	}

	return models.Candidate{
		ID:            "aaai_" + articleID,
		Title:         title,
		Authors:       strings.Join(dc.Creator, ", "),
		PublishedDate: pubDate,
		Abstract:      abstract,
		SourceURL:     landingURL,
		PdfURL:        pdfURL,
		Language:      language,
		Source:        sourceName,
	}, true
}

func (a *Adapter) Download(ctx context.Context, c models.Candidate, dir string) (string, error) {
	if c.PdfURL == "" {
		return "", fmt.Errorf("aaai: candidate %q has no pdf_url", c.ID)
	}
	dest := adapter.CategoryPath(c, dir)
	path, err := adapter.FetchPDF(ctx, a.client, c.PdfURL, dest)
	if err == nil {
		return path, nil
	}

	// Guessed PDF URL can 404; fall back to scraping the landing page is an
	// adapter-specific site quirk, explicitly out of scope for the core
	// (spec §1); surface as a plain download failure instead.
	return "", err
}

func buildListRecordsURL(from time.Time, resumptionToken string) string {
	v := url.Values{}
	if resumptionToken != "" {
		v.Set("verb", "ListRecords")
		v.Set("resumptionToken", resumptionToken)
	} else {
		v.Set("verb", "ListRecords")
		v.Set("metadataPrefix", "oai_dc")
		v.Set("from", from.Format("2006-01-02"))
	}
	return endpoint + "?" + v.Encode()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
