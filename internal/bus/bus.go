// Package bus implements the typed, bounded progress event bus that carries
// worker status to the supervisor and, from there, to the CLI/HTTP status
// surface (spec §5, §6). It is a multi-producer/single-consumer channel
// wrapper: producers are workers, the consumer is the supervisor's event
// loop. Backpressure is intentional — producers block rather than drop, and
// only the non-terminal UPDATE_ROW/PROGRESS_UPDATE variants are coalescable;
// terminal delivery (ERROR, DONE, and a terminal UPDATE_ROW status) must
// never be lost.
package bus

import (
	"context"

	"github.com/hyperjump/paperflow/internal/models"
)

// DefaultCapacity bounds the channel so a stalled consumer applies
// backpressure to producers instead of growing memory without limit.
const DefaultCapacity = 256

// Bus is a bounded, typed event channel. The zero value is not usable; use New.
type Bus struct {
	events chan models.Event
}

// New constructs a Bus with the given capacity. capacity <= 0 uses DefaultCapacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{events: make(chan models.Event, capacity)}
}

// Publish blocks until the event is enqueued or ctx is done. This is the
// backpressure point: a full bus means a slow consumer, and producers are
// made to wait rather than silently drop events.
func (b *Bus) Publish(ctx context.Context, ev models.Event) error {
	select {
	case b.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events exposes the receive side for the single consumer (supervisor).
func (b *Bus) Events() <-chan models.Event {
	return b.events
}

// Close signals no further events will be published. Only the owning
// producer side (the supervisor, once all workers have been joined) should
// call this.
func (b *Bus) Close() {
	close(b.events)
}

// IsTerminal reports whether an event must never be coalesced away — the
// consumer side's guarantee that status bars/UIs always see the final word.
func IsTerminal(ev models.Event) bool {
	switch ev.Type {
	case models.EventError, models.EventDone:
		return true
	case models.EventUpdateRow:
		return ev.Status == "Complete" || ev.Status == "Failed" || ev.Status == "HALTED" || ev.Status == "FAILED"
	default:
		return false
	}
}

// Coalesce folds a new non-terminal update over the last seen update per
// source, keeping only the most recent details — the supervisor's status
// table only ever needs the latest row per source, per spec §5 backpressure
// rules. Terminal events always pass through untouched.
func Coalesce(last map[string]models.Event, ev models.Event) {
	if IsTerminal(ev) || ev.Source == "" {
		return
	}
	last[ev.Source] = ev
}
