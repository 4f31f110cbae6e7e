// Package adapter defines the uniform SourceAdapter contract (spec §4.4):
// search(query, start_date, max_results, cancel) -> candidates and
// download(candidate) -> pdf_path. Concrete adapters for the six
// bibliographic sources live in subpackages.
package adapter

import (
	"context"
	"time"

	"github.com/hyperjump/paperflow/internal/models"
)

// SourceAdapter is the single polymorphic seam of the pipeline (design
// note in spec §9): every concrete adapter is a plain value implementing
// these two operations.
type SourceAdapter interface {
	// Name is the adapter's source identifier, stored in Paper.Source.
	Name() string

	// Search yields candidates for query, honoring startDate (if non-zero),
	// maxResults (0 selects the adapter's own default cap), and ctx
	// cancellation. Implementations
	// must return promptly after ctx is cancelled; partial results already
	// produced are valid.
	Search(ctx context.Context, query string, startDate time.Time, maxResults int) ([]models.Candidate, error)

	// Download fetches (or synthesizes) the PDF for c and returns its
	// absolute path under dir, categorized into a subdirectory. It is
	// idempotent: if the computed path already exists, it is returned
	// without re-fetching.
	Download(ctx context.Context, c models.Candidate, dir string) (string, error)
}
