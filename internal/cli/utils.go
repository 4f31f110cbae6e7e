// Package cli provides output helpers for the paperflow command-line
// surface (spec §6 CLI SURFACE), adapted from the teacher's
// internal/cli/utils.go search-result writer into a run-status writer.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/hyperjump/paperflow/internal/server"
)

// OutputFormat is the format for run-status output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one source per line.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteRunStatus writes a run's status to w in the given format.
func WriteRunStatus(w io.Writer, run server.RunStatus, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	case OutputCompact:
		writeRunStatusCompact(w, run)
		return nil
	default:
		writeRunStatusText(w, run)
		return nil
	}
}

func sortedSourceNames(run server.RunStatus) []string {
	names := make([]string, 0, len(run.Sources))
	for name := range run.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeRunStatusText(w io.Writer, run server.RunStatus) {
	fmt.Fprintf(w, "\nRun %s (%s) — started %s\n\n", run.RunID, run.Mode, run.StartedAt.Format("2006-01-02 15:04:05"))
	for _, name := range sortedSourceNames(run) {
		src := run.Sources[name]
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%-12s %s\n", name, src.Status)
		fmt.Fprintf(w, "  found: %d  downloaded: %d  progress: %.0f%%\n", src.Found, src.Downloaded, src.Progress*100)
		if src.Details != "" {
			fmt.Fprintf(w, "  %s\n", src.Details)
		}
		if src.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", src.Error)
		}
	}
	fmt.Fprintln(w)
}

func writeRunStatusCompact(w io.Writer, run server.RunStatus) {
	fmt.Fprintf(w, "run=%s mode=%s\n", run.RunID, run.Mode)
	for _, name := range sortedSourceNames(run) {
		src := run.Sources[name]
		fmt.Fprintf(w, "%-12s %-10s found=%d downloaded=%d progress=%.0f%%\n", name, src.Status, src.Found, src.Downloaded, src.Progress*100)
	}
}

// PrintRunStatus prints a run's status to stdout in text format.
func PrintRunStatus(run server.RunStatus) {
	_ = WriteRunStatus(os.Stdout, run, OutputText)
}

// SanitizeForLine replaces newlines and tabs with spaces for single-line output.
func SanitizeForLine(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "\t", " "))
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
