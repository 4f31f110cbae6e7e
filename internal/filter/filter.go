package filter

import (
	"regexp"
	"strings"
)

// DefaultMaxDistance is the proximity window (in characters) between
// adjacent required-group term occurrences (spec §4.2 step 7).
const DefaultMaxDistance = 10000

var (
	urlPatternRe     = regexp.MustCompile(`https?://|www\.|\[.*?\]\(.*?\)`)
	listMarkerRe     = regexp.MustCompile(`\n[-*]|\n\d+\.`)
	productAnnounceRe = regexp.MustCompile(`(?i)(announcing|introducing|launches|unveils)`)
	productNounRe    = regexp.MustCompile(`(?i)(solution|platform|service|tool)`)
)

var aggregatorTitleMarkers = []string{
	"roundup", "weekly links", "daily links", "news digest", "link collection", "reading list",
}

var researchIndicatorWords = []string{
	"method", "experiment", "result", "evaluate", "benchmark", "dataset",
	"hypothesis", "analysis", "methodology", "ablation",
}

var marketingPhrases = []string{
	"buy now", "sign up today", "limited time offer", "subscribe now",
	"schedule a call", "request a quote", "contact sales", "book a demo",
	"free trial", "discount code", "promo code", "shop our", "add to cart",
}

// Filter evaluates candidates against a compiled Query plus the fixed
// default-exclusion and heuristic checks. MaxDistance controls the
// proximity check; zero means DefaultMaxDistance.
type Filter struct {
	Query       *Query
	MaxDistance int
}

// New returns a Filter for q using the default proximity window.
func New(q *Query) *Filter {
	return &Filter{Query: q, MaxDistance: DefaultMaxDistance}
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// IsRelevant applies the ordered checks of spec §4.2; the first failing
// check short-circuits the result to false.
func (f *Filter) IsRelevant(title, abstract string) bool {
	content := strings.ToLower(title + " " + abstract)

	// 2. Default exclusions.
	for _, phrase := range defaultExcluded {
		if strings.Contains(content, phrase) {
			return false
		}
	}

	// 3. Aggregator heuristic, with research-indicator exception.
	if f.isAggregator(strings.ToLower(title), abstract, content) {
		return false
	}

	// 4. Marketing heuristic.
	if f.isMarketing(strings.ToLower(title), abstract) {
		return false
	}

	// 5. User exclusions.
	for _, term := range f.Query.UserExcluded {
		if strings.Contains(content, strings.ToLower(term)) {
			return false
		}
	}

	// 6. Required groups must each have a present term.
	positions := make([][]int, len(f.Query.RequiredGroups))
	for i, group := range f.Query.RequiredGroups {
		found := false
		for _, term := range group {
			idx := indexAllCI(content, term)
			if len(idx) > 0 {
				found = true
				positions[i] = append(positions[i], idx...)
			}
		}
		if !found {
			return false
		}
	}

	// 7. Proximity between adjacent required groups.
	maxDist := f.MaxDistance
	if maxDist == 0 {
		maxDist = DefaultMaxDistance
	}
	for i := 0; i < len(positions)-1; i++ {
		if !withinDistance(positions[i], positions[i+1], maxDist) {
			return false
		}
	}

	return true
}

func (f *Filter) isAggregator(lowerTitle, abstract, content string) bool {
	abstractWords := wordCount(abstract)

	aTitleMatch := false
	for _, m := range aggregatorTitleMarkers {
		if strings.Contains(lowerTitle, m) {
			aTitleMatch = true
			break
		}
	}
	condA := aTitleMatch && len(abstract) < 100

	urlCount := len(urlPatternRe.FindAllString(abstract, -1))
	density := 0.0
	if abstractWords > 0 {
		density = float64(urlCount) / float64(abstractWords)
	}
	condB := abstractWords < 300 && density > 0.40

	listMarkers := len(listMarkerRe.FindAllString(abstract, -1))
	condC := abstractWords < 500 && urlCount >= 10 && listMarkers >= 5

	if !(condA || condB || condC) {
		return false
	}

	if abstractWords >= 150 {
		indicatorCount := 0
		lowerAbstract := strings.ToLower(abstract)
		for _, w := range researchIndicatorWords {
			if strings.Contains(lowerAbstract, w) {
				indicatorCount++
			}
		}
		if indicatorCount >= 3 {
			return false
		}
	}

	_ = content
	return true
}

func (f *Filter) isMarketing(lowerTitle, abstract string) bool {
	lowerAbstract := strings.ToLower(abstract)
	marketingCount := 0
	for _, p := range marketingPhrases {
		if strings.Contains(lowerAbstract, p) || strings.Contains(lowerTitle, p) {
			marketingCount++
		}
	}
	if marketingCount >= 2 {
		return true
	}

	if productAnnounceRe.MatchString(lowerTitle) && productNounRe.MatchString(lowerTitle) && wordCount(abstract) < 150 {
		return true
	}
	return false
}

// indexAllCI returns the byte offsets of every case-insensitive occurrence
// of term in content (content is assumed already lowercased).
func indexAllCI(content, term string) []int {
	term = strings.ToLower(term)
	if term == "" {
		return nil
	}
	var out []int
	start := 0
	for {
		idx := strings.Index(content[start:], term)
		if idx < 0 {
			break
		}
		pos := start + idx
		out = append(out, pos)
		start = pos + len(term)
	}
	return out
}

// withinDistance reports whether some pair (a in as, b in bs) satisfies
// |a-b| <= maxDist.
func withinDistance(as, bs []int, maxDist int) bool {
	for _, a := range as {
		for _, b := range bs {
			d := a - b
			if d < 0 {
				d = -d
			}
			if d <= maxDist {
				return true
			}
		}
	}
	return false
}
