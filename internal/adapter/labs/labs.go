// Package labs implements the SourceAdapter for AI-lab blog/research pages,
// grounded on original_source/src/searchers/lab_scraper.py: RSS feeds parsed
// directly where labs publish one, headless-browser scraping for labs that
// don't, and a "Read the Paper" button-click fallback during download before
// giving up to HTML-to-PDF synthesis. Uses github.com/mmcdole/gofeed for RSS,
// github.com/go-rod/rod for the headless browser (in place of playwright),
// and github.com/PuerkitoBio/goquery for HTML parsing (in place of
// BeautifulSoup).
package labs

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/hyperjump/paperflow/internal/adapter"
	"github.com/hyperjump/paperflow/internal/adapter/htmlrender"
	"github.com/hyperjump/paperflow/internal/models"
	"github.com/hyperjump/paperflow/internal/netutil"
)

const sourceName = "labs"

type labSourceType string

const (
	typeRSS    labSourceType = "rss"
	typeScrape labSourceType = "scrape"
)

type labSource struct {
	Name           string
	URL            string
	Type           labSourceType
	FilterKeywords []string
	Selector       string
}

// defaultLabSources mirrors the original's lab_sources list: one entry per
// AI lab, either an RSS feed or a homepage to scrape with a headless browser.
var defaultLabSources = []labSource{
	{Name: "Anthropic", URL: "https://raw.githubusercontent.com/Olshansk/rss-feeds/main/feeds/feed_anthropic_research.xml", Type: typeRSS},
	{Name: "OpenAI", URL: "https://openai.com/news/rss.xml", Type: typeRSS, FilterKeywords: []string{"research", "model", "gpt", "o1", "sora"}},
	{Name: "DeepMind", URL: "https://deepmind.google/blog/rss.xml", Type: typeRSS, FilterKeywords: []string{"research", "science", "alpha"}},
	{Name: "Meta AI", URL: "https://ai.meta.com/blog/rss/", Type: typeRSS, FilterKeywords: []string{"research", "llama", "fair"}},
	{Name: "Google Research", URL: "https://blog.google/technology/ai/rss/", Type: typeRSS},
	{Name: "Microsoft Research", URL: "https://www.microsoft.com/en-us/research/feed/", Type: typeRSS, FilterKeywords: []string{"ai", "machine learning", "llm"}},
	{Name: "Mistral", URL: "https://mistral.ai/news/", Type: typeScrape, Selector: "div.news-card, article, section div a h3", FilterKeywords: []string{"research", "model", "mistral"}},
	{Name: "NVIDIA", URL: "https://blogs.nvidia.com/blog/category/deep-learning/feed/", Type: typeRSS},
}

// researchURLPatterns identify a homepage nav link that points at a lab's
// research/publications section, worth following before scraping articles.
var researchURLPatterns = []string{
	"/research", "/publications", "/papers", "/blog/research",
	"/science", "/technical", "/ai-research", "/publication",
}

var (
	leadingDateRe = regexp.MustCompile(`^[A-Z][a-z]{2}\s\d{1,2},\s\d{4}\s*`)
	pdfHrefRe     = regexp.MustCompile(`(?i)\.pdf$`)
	paperButtonRe = regexp.MustCompile(`(?i)read (the )?paper|view paper|download paper`)
)

var titleGluedCategories = []string{"Alignment", "Interpretability", "Societal Impacts", "Economic Research", "Research"}
var abstractGluedCategories = []string{"Alignment", "Interpretability", "Societal Impacts", "Economic Research", "Research", "Safety", "Product", "Announcements"}

// browserLauncher abstracts headless-browser page fetch/interaction so tests
// can substitute a fake without spinning up a real rod/Chromium instance.
type browserLauncher interface {
	FetchRenderedHTML(ctx context.Context, pageURL string) (string, error)
	FindPDFViaButton(ctx context.Context, pageURL string) (string, error)
}

// rodLauncher is the production browserLauncher backed by a headless
// Chromium instance via go-rod.
type rodLauncher struct {
	logger *zap.Logger
}

func (r *rodLauncher) browser() (*rod.Browser, error) {
	controlURL, err := launcher.New().Headless(true).Launch()
	if err != nil {
		return nil, fmt.Errorf("labs: launch browser: %w", err)
	}
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("labs: connect browser: %w", err)
	}
	return b, nil
}

func (r *rodLauncher) newPage(ctx context.Context, b *rod.Browser, pageURL string) (*rod.Page, error) {
	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("labs: open page: %w", err)
	}
	if err := page.Timeout(60 * time.Second).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("labs: navigate to %s: %w", pageURL, err)
	}
	_ = page.WaitLoad()
	time.Sleep(2 * time.Second)
	return page, nil
}

func (r *rodLauncher) FetchRenderedHTML(ctx context.Context, pageURL string) (string, error) {
	b, err := r.browser()
	if err != nil {
		return "", err
	}
	defer b.Close()

	page, err := r.newPage(ctx, b, pageURL)
	if err != nil {
		return "", err
	}
	defer page.Close()

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("labs: read page content: %w", err)
	}
	return html, nil
}

func (r *rodLauncher) FindPDFViaButton(ctx context.Context, pageURL string) (string, error) {
	b, err := r.browser()
	if err != nil {
		return "", err
	}
	defer b.Close()

	page, err := r.newPage(ctx, b, pageURL)
	if err != nil {
		return "", err
	}
	defer page.Close()

	el, err := page.Timeout(5 * time.Second).ElementR("a, button", paperButtonRe.String())
	if err != nil {
		return "", nil // button not found is not an error, just a miss
	}
	if href, aerr := el.Attribute("href"); aerr == nil && href != nil && *href != "" {
		if strings.HasSuffix(*href, ".pdf") {
			return resolveURL(pageURL, *href), nil
		}
	}

	_ = el.Click(proto.InputMouseButtonLeft, 1)
	time.Sleep(2 * time.Second)
	if info, ierr := page.Info(); ierr == nil && strings.HasSuffix(info.URL, ".pdf") {
		return info.URL, nil
	}
	return "", nil
}

// Adapter implements adapter.SourceAdapter for AI-lab blogs, combining RSS
// feeds and headless-browser scraping across a fixed set of lab sources.
type Adapter struct {
	client   *netutil.Client
	launcher browserLauncher
	renderer htmlrender.Renderer
	logger   *zap.Logger
	sources  []labSource
}

// New constructs a labs adapter. renderer may be nil to use the
// htmlrender.Placeholder stub; sources may be nil to use the default lab list.
func New(client *netutil.Client, renderer htmlrender.Renderer, logger *zap.Logger, sources []labSource) *Adapter {
	if renderer == nil {
		renderer = htmlrender.Placeholder{}
	}
	if sources == nil {
		sources = defaultLabSources
	}
	return &Adapter{
		client:   client,
		launcher: &rodLauncher{logger: logger},
		renderer: renderer,
		logger:   logger,
		sources:  sources,
	}
}

func (a *Adapter) Name() string { return sourceName }

func (a *Adapter) Search(ctx context.Context, query string, startDate time.Time, maxResults int) ([]models.Candidate, error) {
	limit := 50
	if maxResults > 0 {
		limit = maxResults
	}

	var all []models.Candidate
	for _, lab := range a.sources {
		if ctx.Err() != nil {
			break
		}
		if a.logger != nil {
			a.logger.Info("labs: checking source", zap.String("lab", lab.Name))
		}

		var found []models.Candidate
		var err error
		switch lab.Type {
		case typeRSS:
			found, err = a.processRSS(ctx, lab, startDate)
		case typeScrape:
			found, err = a.processScrape(ctx, lab)
		}
		if err != nil && a.logger != nil {
			a.logger.Warn("labs: source failed", zap.String("lab", lab.Name), zap.Error(err))
		}
		all = append(all, found...)
	}

	if len(all) > limit {
		all = all[:limit]
	}
	if a.logger != nil {
		a.logger.Info("labs search complete", zap.Int("kept", len(all)))
	}
	return all, nil
}

func (a *Adapter) processRSS(ctx context.Context, lab labSource, startDate time.Time) ([]models.Candidate, error) {
	fp := gofeed.NewParser()
	feed, err := fp.ParseURLWithContext(lab.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var candidates []models.Candidate
	for _, item := range feed.Items {
		title := cleanLabTitle(item.Title)
		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		if len(lab.FilterKeywords) > 0 && !containsAnyFold(title+summary, lab.FilterKeywords) {
			continue
		}

		var pubDate time.Time
		if item.PublishedParsed != nil {
			pubDate = item.PublishedParsed.UTC()
		}
		if !startDate.IsZero() && !pubDate.IsZero() && pubDate.Before(startDate) {
			continue
		}

		publishedDate := "Unknown"
		if !pubDate.IsZero() {
			publishedDate = pubDate.Format("2006-01-02")
		}

		abstractText := htmlToText(summary)
		abstractText = cleanLabAbstract(abstractText, title)
		if len(abstractText) > 1000 {
			abstractText = abstractText[:1000]
		}

		id := item.GUID
		if id == "" {
			id = item.Link
		}

		candidates = append(candidates, models.Candidate{
			ID:            id,
			Title:         title,
			Authors:       lab.Name,
			PublishedDate: publishedDate,
			Abstract:      abstractText + "...",
			SourceURL:     item.Link,
			Language:      "en",
			Source:        sourceName,
		})
	}
	return candidates, nil
}

func (a *Adapter) processScrape(ctx context.Context, lab labSource) ([]models.Candidate, error) {
	html, err := a.launcher.FetchRenderedHTML(ctx, lab.URL)
	if err != nil || html == "" {
		return nil, err
	}

	baseURL := lab.URL
	if researchURL := findResearchPageURL(baseURL, html); researchURL != "" && researchURL != baseURL {
		if a.logger != nil {
			a.logger.Info("labs: found research page", zap.String("lab", lab.Name), zap.String("url", researchURL))
		}
		if researchHTML, rerr := a.launcher.FetchRenderedHTML(ctx, researchURL); rerr == nil && researchHTML != "" {
			html = researchHTML
			baseURL = researchURL
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	selector := lab.Selector
	if selector == "" {
		selector = "article"
	}
	articles := doc.Find(selector)
	if articles.Length() == 0 {
		articles = doc.Find("a[href]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			return strings.Contains(href, "/news/") || strings.Contains(href, "/blog/") ||
				strings.Contains(href, "/research/") || strings.Contains(href, "/publication")
		})
	}

	var candidates []models.Candidate
	articles.EachWithBreak(func(_ int, art *goquery.Selection) bool {
		if ctx.Err() != nil {
			return false
		}

		title := strings.TrimSpace(art.Find("h1,h2,h3,a,span").First().Text())
		if title == "" && goquery.NodeName(art) == "a" {
			title = strings.TrimSpace(art.Text())
		}
		if len(title) < 5 {
			return true
		}

		link, ok := art.Find("a[href]").First().Attr("href")
		if !ok {
			if href, ok2 := art.Attr("href"); ok2 {
				link, ok = href, true
			}
		}
		if !ok || link == "" {
			return true
		}
		link = resolveURL(baseURL, link)

		if len(lab.FilterKeywords) > 0 && !containsAnyFold(title, lab.FilterKeywords) {
			return true
		}

		pdfURL := ""
		if href, ok := art.Find("a[href]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			h, _ := s.Attr("href")
			return pdfHrefRe.MatchString(h)
		}).First().Attr("href"); ok {
			pdfURL = resolveURL(baseURL, href)
		}

		candidates = append(candidates, models.Candidate{
			ID:            link,
			Title:         title,
			Authors:       lab.Name,
			PublishedDate: time.Now().Format("2006-01-02"),
			SourceURL:     link,
			PdfURL:        pdfURL,
			Language:      "en",
			Source:        sourceName,
		})
		return true
	})

	return candidates, nil
}

func (a *Adapter) Download(ctx context.Context, c models.Candidate, dir string) (string, error) {
	dest := adapter.CategoryPath(c, dir)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("labs: create category directory: %w", err)
	}

	// Strategy 1: direct PDF URL already discovered during search.
	if c.PdfURL != "" {
		if path, err := adapter.FetchPDF(ctx, a.client, c.PdfURL, dest); err == nil {
			return path, nil
		} else if a.logger != nil {
			a.logger.Warn("labs: direct pdf download failed", zap.String("id", c.ID), zap.Error(err))
		}
	}

	// Strategy 2: headless-browser button click to find the PDF.
	if pdfURL, err := a.launcher.FindPDFViaButton(ctx, c.SourceURL); err == nil && pdfURL != "" {
		if path, ferr := adapter.FetchPDF(ctx, a.client, pdfURL, dest); ferr == nil {
			return path, nil
		}
	}

	// Strategy 3: fall back to HTML-to-PDF synthesis of the rendered page.
	html := c.RawHTML
	if html == "" {
		var err error
		html, err = a.launcher.FetchRenderedHTML(ctx, c.SourceURL)
		if err != nil || html == "" {
			return "", fmt.Errorf("labs: no pdf and no renderable content for %q", c.ID)
		}
	}
	if err := a.renderer.RenderToPDF(ctx, html, dest); err != nil {
		return "", fmt.Errorf("labs: render PDF: %w", err)
	}
	return dest, nil
}

func cleanLabTitle(title string) string {
	if title == "" {
		return ""
	}
	title = leadingDateRe.ReplaceAllString(title, "")
	for _, cat := range titleGluedCategories {
		if strings.HasPrefix(title, cat) {
			title = strings.TrimPrefix(title, cat)
		}
	}
	return strings.TrimSpace(title)
}

func cleanLabAbstract(text, title string) string {
	if text == "" {
		return ""
	}
	text = leadingDateRe.ReplaceAllString(text, "")
	for _, cat := range abstractGluedCategories {
		if strings.HasPrefix(text, cat) {
			text = strings.TrimSpace(strings.TrimPrefix(text, cat))
		}
	}
	if len(title) > 5 && strings.HasPrefix(strings.ToLower(text), strings.ToLower(title)) {
		text = text[len(title):]
		text = strings.TrimLeft(text, ":- \t")
	}
	return strings.TrimSpace(text)
}

func findResearchPageURL(baseURL, html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	found := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		lowerHref := strings.ToLower(href)
		for _, pattern := range researchURLPatterns {
			if strings.Contains(lowerHref, pattern) || strings.Contains(text, "research") ||
				strings.Contains(text, "publications") || strings.Contains(text, "papers") {
				found = resolveURL(baseURL, href)
				return false
			}
		}
		return true
	})
	return found
}

func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return doc.Text()
}

func resolveURL(base, ref string) string {
	if strings.HasPrefix(ref, "http") {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

func containsAnyFold(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
