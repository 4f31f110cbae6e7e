package hashing

import "testing"

func TestStableHashEmpty(t *testing.T) {
	if got := StableHash(""); got != 0 {
		t.Fatalf("StableHash(\"\") = %d, want 0", got)
	}
}

func TestStableHashStable(t *testing.T) {
	a := StableHash("https://example.com/paper")
	b := StableHash("https://example.com/paper")
	if a != b {
		t.Fatalf("StableHash not stable across calls: %d != %d", a, b)
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	u := "HTTP://Example.COM/x/?utm_source=foo&b=2&a=1#frag"
	once := NormalizeURL(u)
	twice := NormalizeURL(once)
	if once != twice {
		t.Fatalf("NormalizeURL not idempotent: %q != %q", once, twice)
	}
}

func TestNormalizeURLStripsTracking(t *testing.T) {
	got := NormalizeURL("https://example.com/x?utm_source=foo")
	want := NormalizeURL("https://example.com/x")
	if got != want {
		t.Fatalf("tracking param not stripped: %q != %q", got, want)
	}
}

func TestNormalizeURLForcesHTTPS(t *testing.T) {
	got := NormalizeURL("http://Example.COM/path")
	if got != "https://example.com/path" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeTitleStripsPunctuation(t *testing.T) {
	if got := NormalizeTitle("AI Safety: A Survey!"); got != "aisafetyasurvey" {
		t.Fatalf("got %q", got)
	}
}
