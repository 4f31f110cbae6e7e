// Package perrors defines the error taxonomy used across the pipeline (spec §7).
//
// Each sentinel is wrapped with fmt.Errorf("...: %w", Err*) at the point of
// failure rather than carried through a bespoke error type, matching the
// wrapping convention already used in the config and storage packages this
// module was adapted from.
package perrors

import "errors"

var (
	// ErrConfig marks a missing or invalid configuration; fatal at startup.
	ErrConfig = errors.New("config error")

	// ErrInvalidQuery marks a relevance-filter query that failed validation.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNetwork marks a transient network failure, retried with backoff
	// inside the adapter before being promoted to ErrAdapter.
	ErrNetwork = errors.New("network error")

	// ErrAdapter marks a fatal-to-this-worker adapter failure.
	ErrAdapter = errors.New("adapter error")

	// ErrStorage marks a write failure against the working store.
	ErrStorage = errors.New("storage error")

	// ErrTimeout is synthesized by the supervisor when a worker heartbeat expires.
	ErrTimeout = errors.New("worker timeout")

	// ErrBackfillEmpty marks that every worker returned zero new papers in
	// BACKFILL mode.
	ErrBackfillEmpty = errors.New("backfill produced no new papers")

	// ErrCommitConflict is recoverable; surfaced for user resolution during commit.
	ErrCommitConflict = errors.New("commit conflict")
)
