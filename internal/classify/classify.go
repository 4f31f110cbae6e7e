// Package classify assigns a Paper to a fixed category set based on
// keyword rules over its title/abstract, with an author-based override
// (spec §4.4), grounded on original_source/src/classifier.py.
package classify

import "strings"

const (
	CategoryByrnes             = "Byrnes"
	CategoryRedTeaming         = "Red Teaming"
	CategoryAlignmentResearch  = "Alignment Research"
	CategoryAgenticAI          = "Agentic AI"
	CategoryConsciousness      = "Consciousness"
	CategoryFutures            = "Futures"
	CategoryTaxonomyResearch   = "Taxonomy Research"
	CategoryAISafetyUnspecified = "AI Safety (Unspecified)"
)

// overrideAuthors maps a lowercased author substring to its dedicated category.
var overrideAuthors = map[string]string{
	"steven byrnes": CategoryByrnes,
}

// rules is ordered; the first matching category wins.
var rules = []struct {
	category string
	keywords []string
}{
	{CategoryRedTeaming, []string{"red team", "jailbreak", "prompt injection", "adversarial", "attack", "exploit", "trojan", "backdoor"}},
	{CategoryAlignmentResearch, []string{"alignment", "constitutional ai", "rlhf", "dpo", "preference optimization", "value learning", "reward modeling"}},
	{CategoryAgenticAI, []string{"agent", "multi-agent", "autonomous system", "autonomy", "planning", "tool use"}},
	{CategoryConsciousness, []string{"consciousness", "personhood", "sentience", "qualia", "subjective experience", "persona ", "personality"}},
	{CategoryFutures, []string{"future", "forecast", "predict", "trajectory", "scenario", "long-term", "existential", "x-risk"}},
	{CategoryTaxonomyResearch, []string{"taxonomy", "survey", "landscape", "review", "framework", "categorization", "overview"}},
}

// Classify returns the category for a paper given its title, abstract, and authors.
func Classify(title, abstract, authors string) string {
	if authors != "" {
		lowerAuthors := strings.ToLower(authors)
		for needle, category := range overrideAuthors {
			if strings.Contains(lowerAuthors, needle) {
				return category
			}
		}
	}

	text := strings.ToLower(title + " " + abstract)
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return CategoryAISafetyUnspecified
}
