package events

import (
	"slices"
	"time"
)

// Recorder is the pending-event buffer owned by an aggregate. State
// transition methods record events synchronously; the persistence boundary
// publishes them strictly after its commit succeeds and then clears the
// buffer, so a consumer never observes an event for a rolled-back
// transition.
//
// The buffer is a plain value embedded in the aggregate, not shared state:
// only the aggregate's own methods append to it.
type Recorder struct {
	pending []Event
}

// Record appends an event, stamping OccurredAt if the transition did not.
func (r *Recorder) Record(e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	r.pending = append(r.pending, e)
}

// Pending returns the recorded events in append order. The slice is a copy;
// mutating it does not touch the buffer.
func (r *Recorder) Pending() []Event {
	return slices.Clone(r.pending)
}

// Clear empties the buffer. Called by the owning service after a publish
// cycle completes.
func (r *Recorder) Clear() {
	r.pending = nil
}
