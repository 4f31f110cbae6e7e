package adapter

import "strings"

var queryStopWords = map[string]struct{}{
	"and": {}, "or": {}, "not": {}, "andnot": {}, "to": {}, "in": {}, "of": {}, "the": {}, "a": {}, "an": {},
}

// ExtractSimpleKeywords extracts bare lowercase keywords from a structured
// boolean query string by stripping operators/punctuation, for adapters
// whose upstream search API has no native boolean grammar and instead
// harvests broadly then filters locally by simple substring recall
// (grounded on original_source/src/utils.py's extract_simple_keywords,
// shared across the AAAI and anthology archive adapters there too).
func ExtractSimpleKeywords(query string) []string {
	replacer := strings.NewReplacer("(", " ", ")", " ", `"`, " ", "'", " ")
	cleaned := strings.ToLower(replacer.Replace(query))

	seen := map[string]struct{}{}
	var keywords []string
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) <= 1 {
			continue
		}
		if _, isStop := queryStopWords[tok]; isStop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
	}
	return keywords
}
