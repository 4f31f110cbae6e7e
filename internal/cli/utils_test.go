package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/paperflow/internal/models"
	"github.com/hyperjump/paperflow/internal/server"
)

func sampleRun() server.RunStatus {
	return server.RunStatus{
		RunID:     "run-123",
		Mode:      models.ModeDaily,
		StartedAt: time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC),
		Sources: map[string]server.SourceStatus{
			"arxiv": {Source: "arxiv", Status: "Complete", Found: 10, Downloaded: 8, Progress: 1, Details: "New: 8, Duplicates: 2"},
			"labs":  {Source: "labs", Status: "FAILED", Error: "adapter error: timeout"},
		},
	}
}

func TestWriteRunStatus_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRunStatus(&buf, sampleRun(), OutputJSON); err != nil {
		t.Fatalf("WriteRunStatus(json): %v", err)
	}
	var decoded server.RunStatus
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.RunID != "run-123" || decoded.Sources["arxiv"].Found != 10 {
		t.Errorf("unexpected decoded run: %+v", decoded)
	}
}

func TestWriteRunStatus_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRunStatus(&buf, sampleRun(), OutputText); err != nil {
		t.Fatalf("WriteRunStatus(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"run-123", "DAILY", "arxiv", "Complete", "found: 10", "labs", "FAILED", "error: adapter error: timeout"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteRunStatus_compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRunStatus(&buf, sampleRun(), OutputCompact); err != nil {
		t.Fatalf("WriteRunStatus(compact): %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("compact should have 3 lines (header + 2 sources), got %d: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "run=run-123") {
		t.Errorf("first line should be header: %q", lines[0])
	}
	// sources are sorted by name: arxiv before labs
	if !strings.Contains(lines[1], "arxiv") || !strings.Contains(lines[2], "labs") {
		t.Errorf("expected sorted source lines, got %v", lines[1:])
	}
}

func TestWriteRunStatus_unknownFormatTreatedAsText(t *testing.T) {
	var buf bytes.Buffer
	err := WriteRunStatus(&buf, sampleRun(), OutputFormat("unknown"))
	if err != nil {
		t.Fatalf("WriteRunStatus(unknown): %v", err)
	}
	if !strings.Contains(buf.String(), "run-123") {
		t.Errorf("unknown format should fall back to text; got %q", buf.String())
	}
}

func TestSanitizeForLine(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want string
	}{
		{"empty", "", ""},
		{"no change", "hello world", "hello world"},
		{"newline", "a\nb", "a b"},
		{"multiple newlines", "a\n\nb", "a  b"},
		{"tab", "a\tb", "a b"},
		{"newline and tab", "a\nb\tc", "a b c"},
		{"leading trailing space", "  x  ", "x"},
		{"leading newline", "\nhello", "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeForLine(tt.s)
			if got != tt.want {
				t.Errorf("SanitizeForLine(%q) = %q, want %q", tt.s, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"empty", "", 5, ""},
		{"short", "hi", 5, "hi"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 5, "hello..."},
		{"maxLen zero", "ab", 0, "ab"},
		{"maxLen negative", "ab", -1, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.s, tt.maxLen)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxWords int
		want     string
	}{
		{"empty", "", 3, ""},
		{"few words", "one two", 3, "one two"},
		{"exact", "one two three", 3, "one two three"},
		{"more", "one two three four", 3, "one two three..."},
		{"single long", "word", 1, "word"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateWords(tt.s, tt.maxWords)
			if got != tt.want {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
			}
		})
	}
}

func TestPrintRunStatus(t *testing.T) {
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() {
		os.Stdout = oldStdout
		_ = w.Close()
	}()
	PrintRunStatus(sampleRun())
	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	out := buf.String()
	if !strings.Contains(out, "run-123") {
		t.Errorf("PrintRunStatus should write to stdout; got %q", out)
	}
}
