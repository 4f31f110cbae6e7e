// Package filter implements the structured boolean relevance-filter query
// grammar and the is_relevant heuristic pipeline (spec §4.2).
//
// The ANDNOT/paren-group/quoted-term parsing structure is grounded on
// original_source/src/filter.py's FilterManager; the grammar itself,
// validation rules, and the aggregator/marketing/proximity heuristics
// below are specified in full by spec.md §4.2 (the retrieved Python source
// implements an earlier, simpler version of the same idea).
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/paperflow/internal/perrors"
)

// Group is an OR-set of quoted terms within a required AND-of-ORs position.
type Group []string

// Query is the compiled form of a boolean relevance expression.
type Query struct {
	RequiredGroups []Group
	UserExcluded   []string
	Raw            string
}

var (
	andnotSplitRe = regexp.MustCompile(`(?i)\bANDNOT\b`)
	andSplitRe    = regexp.MustCompile(`(?i)\bAND\b`)
	orSplitRe     = regexp.MustCompile(`(?i)\bOR\b`)
	quotedTermRe  = regexp.MustCompile(`"([^"]*)"`)
	unsupportedOpRe = regexp.MustCompile(`(?i)\b(XOR|NAND|NOR)\b`)
)

// Parse validates and compiles a query string into a Query. It returns
// perrors.ErrInvalidQuery, wrapped with the specific rule violated, on
// any validation failure.
func Parse(raw string) (*Query, error) {
	if err := validate(raw); err != nil {
		return nil, err
	}

	var includePart, excludePart string
	if loc := andnotSplitRe.FindStringIndex(raw); loc != nil {
		includePart = raw[:loc[0]]
		excludePart = raw[loc[1]:]
	} else {
		includePart = raw
	}

	groups, err := parseGroups(includePart)
	if err != nil {
		return nil, err
	}

	var userExcluded []string
	if strings.TrimSpace(excludePart) != "" {
		excludeGroups, err := parseGroups(excludePart)
		if err != nil {
			return nil, err
		}
		for _, g := range excludeGroups {
			userExcluded = append(userExcluded, g...)
		}
	}

	return &Query{RequiredGroups: groups, UserExcluded: userExcluded, Raw: raw}, nil
}

// parseGroups splits on top-level AND and extracts the OR-terms of each
// parenthesized or bare group.
func parseGroups(s string) ([]Group, error) {
	var groups []Group
	for _, part := range splitTopLevel(s, andSplitRe) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		terms := quotedTermRe.FindAllStringSubmatch(part, -1)
		if len(terms) == 0 {
			return nil, fmt.Errorf("%w: group contains no quoted term: %q", perrors.ErrInvalidQuery, part)
		}
		var g Group
		for _, m := range terms {
			g = append(g, m[1])
		}
		groups = append(groups, g)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: at least one required group is needed", perrors.ErrInvalidQuery)
	}
	return groups, nil
}

// splitTopLevel splits s on sep, but never inside a quoted term or inside parentheses.
func splitTopLevel(s string, sep *regexp.Regexp) []string {
	var parts []string
	last := 0
	for _, loc := range sep.FindAllStringIndex(s, -1) {
		prefix := s[:loc[0]]
		if strings.Count(prefix, `"`)%2 != 0 || strings.Count(prefix, "(") != strings.Count(prefix, ")") {
			continue
		}
		parts = append(parts, s[last:loc[0]])
		last = loc[1]
	}
	return append(parts, s[last:])
}

func validate(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("%w: query is empty", perrors.ErrInvalidQuery)
	}
	if strings.Count(trimmed, `"`)%2 != 0 {
		return fmt.Errorf("%w: unbalanced quotes", perrors.ErrInvalidQuery)
	}
	if strings.Count(trimmed, "(") != strings.Count(trimmed, ")") {
		return fmt.Errorf("%w: unbalanced parentheses", perrors.ErrInvalidQuery)
	}
	if regexp.MustCompile(`\(\s*\)`).MatchString(trimmed) {
		return fmt.Errorf("%w: empty group", perrors.ErrInvalidQuery)
	}
	if unsupportedOpRe.MatchString(trimmed) {
		return fmt.Errorf("%w: unsupported operator (XOR/NAND/NOR)", perrors.ErrInvalidQuery)
	}
	if !quotedTermRe.MatchString(trimmed) {
		return fmt.Errorf("%w: at least one quoted inclusion term is required", perrors.ErrInvalidQuery)
	}
	if regexp.MustCompile(`(?i)^\s*ANDNOT\b`).MatchString(trimmed) {
		return fmt.Errorf("%w: query must not start with ANDNOT", perrors.ErrInvalidQuery)
	}
	return nil
}
