// Package lesswrong implements the SourceAdapter for the community blog,
// grounded on original_source/src/searchers/lesswrong_searcher.py: a
// GraphQL POST fetching the newest posts (the platform has no anonymous
// full-text search), client-side filtered by a trusted-author allowlist
// and taxonomy keywords, then converted to a candidate with the full
// htmlBody carried forward for PDF synthesis at download time.
package lesswrong

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/hyperjump/paperflow/internal/adapter"
	"github.com/hyperjump/paperflow/internal/adapter/htmlrender"
	"github.com/hyperjump/paperflow/internal/models"
	"github.com/hyperjump/paperflow/internal/netutil"
)

const (
	sourceName = "lesswrong"
	apiURL     = "https://www.lesswrong.com/graphql"
)

var requiredKeywords = []string{
	"agentic", "ai safety", "ai alignment", "consciousness",
	"personhood", "persona", "future ai", "red team", "red teaming",
	"taxonomy", "alignment", "safety",
}

// trustedAuthors mirrors the original's allowlist of recognized AI-safety
// researchers, organizations, and community contributors.
var trustedAuthors = []string{
	"anthropic", "openai", "deepmind", "alignment research center",
	"miri", "machine intelligence research institute", "redwood research",
	"ai safety camp", "center for ai safety", "far ai",
	"eliezer yudkowsky", "paul christiano", "rohin shah", "buck shlegeris",
	"evan hubinger", "chris olah", "ajeya cotra", "holden karnofsky",
	"nate soares", "scott alexander", "zvi mowshowitz", "gwern",
	"jacob steinhardt", "dan hendrycks", "ethan perez", "sam bowman",
	"owain evans", "stuart russell", "max tegmark", "nick bostrom",
	"katja grace", "daniel kokotajlo", "richard ngo", "victoria krakovna",
	"jan leike", "john wentworth", "vanessa kosoy", "abram demski",
	"scott garrabrant", "alex turner", "quintin pope", "neel nanda",
	"steven byrnes", "lucius bushnaq", "marius hobbhahn", "fabien roger",
	"lawrence chan", "nina rimsky", "cody rushing", "garrett baker",
	"mrinank sharma", "jared kaplan", "sam marks", "bilal chughtai",
	"adria garriga-alonso", "nora belrose", "curt tigges", "joseph miller",
	"evan miyazono", "akbir khan", "jared quincy davis",
	"habryka", "oliver habryka", "raemon", "ben pace", "ruby",
	"wei dai", "kaj sotala", "anna salamon", "andrew critch",
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]int `json:"variables"`
}

type post struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	PageURL  string `json:"pageUrl"`
	PostedAt string `json:"postedAt"`
	HTMLBody string `json:"htmlBody"`
	User     struct {
		DisplayName string `json:"displayName"`
	} `json:"user"`
}

type graphqlResponse struct {
	Data struct {
		Posts struct {
			Results []post `json:"results"`
		} `json:"posts"`
	} `json:"data"`
}

// Adapter implements adapter.SourceAdapter for the community blog.
type Adapter struct {
	client   *netutil.Client
	renderer htmlrender.Renderer
	logger   *zap.Logger
}

// New constructs a community-blog adapter. renderer may be nil to use the
// htmlrender.Placeholder stub.
func New(client *netutil.Client, renderer htmlrender.Renderer, logger *zap.Logger) *Adapter {
	if renderer == nil {
		renderer = htmlrender.Placeholder{}
	}
	return &Adapter{client: client, renderer: renderer, logger: logger}
}

func (a *Adapter) Name() string { return sourceName }

func (a *Adapter) Search(ctx context.Context, query string, startDate time.Time, maxResults int) ([]models.Candidate, error) {
	fetchLimit := maxResults * 5
	if fetchLimit <= 0 {
		fetchLimit = 50
	}

	body, err := json.Marshal(graphqlRequest{
		Query: `query($limit: Int) {
			posts(input: { terms: { view: "new", limit: $limit } }) {
				results { _id title pageUrl postedAt htmlBody user { displayName } }
			}
		}`,
		Variables: map[string]int{"limit": fetchLimit},
	})
	if err != nil {
		return nil, fmt.Errorf("lesswrong: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("lesswrong: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("lesswrong: decode response: %w", err)
	}

	var candidates []models.Candidate
	for _, p := range parsed.Data.Posts.Results {
		if ctx.Err() != nil {
			return candidates, nil
		}
		if p.HTMLBody == "" {
			continue
		}

		abstractText := extractText(p.HTMLBody, 2000)
		combined := strings.ToLower(p.Title + " " + abstractText)
		if !containsAny(combined, requiredKeywords) {
			continue
		}

		author := p.User.DisplayName
		if author == "" {
			author = "Unknown"
		}
		if !containsAny(strings.ToLower(author), trustedAuthors) {
			continue
		}

		publishedDate := "Unknown"
		var pubTime time.Time
		if p.PostedAt != "" {
			datePart := strings.SplitN(p.PostedAt, "T", 2)[0]
			publishedDate = datePart
			if t, err := time.Parse("2006-01-02", datePart); err == nil {
				pubTime = t
			}
		}
		if !startDate.IsZero() && !pubTime.IsZero() && pubTime.Before(startDate) {
			continue
		}

		sourceURL := p.PageURL
		if sourceURL != "" && !strings.HasPrefix(sourceURL, "http") {
			sourceURL = "https://www.lesswrong.com" + sourceURL
		}

		candidates = append(candidates, models.Candidate{
			ID:            p.ID,
			Title:         p.Title,
			Authors:       author,
			PublishedDate: publishedDate,
			Abstract:      extractText(p.HTMLBody, 1000) + "...",
			SourceURL:     sourceURL,
			Language:      "en",
			Source:        sourceName,
			RawHTML:       p.HTMLBody,
		})
	}

	if a.logger != nil {
		a.logger.Info("lesswrong search complete", zap.Int("kept", len(candidates)), zap.Int("fetched", len(parsed.Data.Posts.Results)))
	}
	return candidates, nil
}

func (a *Adapter) Download(ctx context.Context, c models.Candidate, dir string) (string, error) {
	if c.RawHTML == "" {
		return "", fmt.Errorf("lesswrong: candidate %q has no html content", c.ID)
	}
	dest := adapter.CategoryPath(c, dir)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("lesswrong: create category directory: %w", err)
	}
	if err := a.renderer.RenderToPDF(ctx, c.RawHTML, dest); err != nil {
		return "", fmt.Errorf("lesswrong: render PDF: %w", err)
	}
	return dest, nil
}

func extractText(html string, limit int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	text := doc.Text()
	if len(text) > limit {
		return text[:limit]
	}
	return text
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

