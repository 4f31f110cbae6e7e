// Package sanitize implements the Title-Case and filesystem-safe filename
// contract shared by every source adapter (spec §4.4), grounded on
// to_title_case/sanitize_filename in original_source/src/utils.py.
package sanitize

import (
	"regexp"
	"strings"
)

// acronyms are preserved in fixed casing regardless of input case.
var acronyms = map[string]string{
	"AI": "AI", "AGI": "AGI", "LLM": "LLM", "LLMS": "LLMs", "NLP": "NLP",
	"RL": "RL", "RLHF": "RLHF", "ML": "ML", "GPT": "GPT", "GAN": "GAN",
	"KBQA": "KBQA", "SQL": "SQL", "GUI": "GUI", "API": "API", "RAG": "RAG",
}

var minorWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "but": {}, "for": {}, "at": {}, "by": {},
	"from": {}, "in": {}, "into": {}, "of": {}, "off": {}, "on": {}, "onto": {},
	"out": {}, "over": {}, "up": {}, "with": {}, "as": {}, "to": {},
}

var (
	sourceSuffixRe = regexp.MustCompile(` \| .*$`)
	parenYearRe    = regexp.MustCompile(`\(\d{4}\)`)
	bracketYearRe  = regexp.MustCompile(`\[\d{4}\]`)
	isoDateRe      = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	junkCharsRe    = regexp.MustCompile(`[|*~]`)
	nonWordRe      = regexp.MustCompile(`[^\w]`)
	leadingPunctRe = regexp.MustCompile(`^[^\w]*`)
	trailingPunctRe = regexp.MustCompile(`[^\w]*$`)
	reservedCharsRe = regexp.MustCompile(`[<>:"/\\|?*_]`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// ToTitleCase converts text to Title Case, preserving a fixed set of
// research acronyms in their canonical casing.
func ToTitleCase(text string) string {
	if text == "" {
		return ""
	}

	text = sourceSuffixRe.ReplaceAllString(text, "")
	text = parenYearRe.ReplaceAllString(text, "")
	text = bracketYearRe.ReplaceAllString(text, "")
	text = isoDateRe.ReplaceAllString(text, "")
	text = junkCharsRe.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "_", " ")
	text = strings.ReplaceAll(text, "-", " ")

	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	titleWords := make([]string, 0, len(words))
	for i, word := range words {
		cleanUpper := strings.ToUpper(nonWordRe.ReplaceAllString(word, ""))
		if canon, ok := acronyms[cleanUpper]; ok {
			prefix := leadingPunctRe.FindString(word)
			suffix := trailingPunctRe.FindString(word)
			titleWords = append(titleWords, prefix+canon+suffix)
			continue
		}

		wordForCase := strings.ToLower(nonWordRe.ReplaceAllString(word, ""))
		_, minor := minorWords[wordForCase]
		if i == 0 || i == len(words)-1 || !minor {
			if countUpper(word) > 1 && len(word) > 1 {
				titleWords = append(titleWords, word)
			} else {
				titleWords = append(titleWords, capitalize(word))
			}
		} else {
			titleWords = append(titleWords, strings.ToLower(word))
		}
	}

	return strings.Join(titleWords, " ")
}

func countUpper(s string) int {
	n := 0
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			n++
		}
	}
	return n
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
}

// Filename returns a filesystem-safe filename for title: Title-Case, strip
// reserved characters, collapse whitespace, truncate to 150 chars, with a
// fallback for empty titles and the given extension appended verbatim.
func Filename(title, extension string) string {
	clean := ToTitleCase(title)
	safe := reservedCharsRe.ReplaceAllString(clean, " ")
	safe = strings.TrimSpace(whitespaceRe.ReplaceAllString(safe, " "))
	if len(safe) > 150 {
		safe = safe[:150]
	}
	safe = strings.TrimSpace(safe)
	if safe == "" {
		safe = "Untitled Paper"
	}
	return safe + extension
}
