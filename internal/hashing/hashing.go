// Package hashing implements stable hashing and URL normalization (spec §4.1).
//
// Grounded on the teacher's internal/fileid package, which hashes a cleaned
// absolute path with SHA-256 for a content-addressed document id; here the
// same primitive is generalized to hash normalized URLs and titles into a
// signed 64-bit dedup key instead of a hex string.
package hashing

import (
	"crypto/sha256"
	"encoding/binary"
	"net/url"
	"sort"
	"strings"
)

// trackingParams are stripped by NormalizeURL regardless of source.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"ref":          {},
	"source":       {},
	"fbclid":       {},
	"gclid":        {},
}

// NormalizeURL forces https, lowercases the host, strips a trailing slash
// from the path, removes known tracking query params, drops the fragment,
// and re-encodes the remaining query in stable (sorted) key order.
//
// NormalizeURL is idempotent: NormalizeURL(NormalizeURL(u)) == NormalizeURL(u).
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	q := u.Query()
	for k := range trackingParams {
		q.Del(k)
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var qb strings.Builder
	for i, k := range keys {
		vals := q[k]
		sort.Strings(vals)
		for j, v := range vals {
			if i > 0 || j > 0 {
				qb.WriteByte('&')
			}
			qb.WriteString(url.QueryEscape(k))
			qb.WriteByte('=')
			qb.WriteString(url.QueryEscape(v))
		}
	}
	u.RawQuery = qb.String()

	return u.String()
}

// StableHash returns SHA-256(s), interpreting the first 8 bytes as a
// big-endian signed int64. It is a pure function of the UTF-8 bytes of s
// and is identical across processes and platforms. StableHash("") == 0.
func StableHash(s string) int64 {
	if s == "" {
		return 0
	}
	sum := sha256.Sum256([]byte(s))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// NormalizeTitle lowercases a title and strips all non-alphanumeric runes,
// producing the canonical form hashed into Paper.TitleHash.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
