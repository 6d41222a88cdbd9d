package analyzer

import (
	"context"
	"sync/atomic"
)

// ProgressFunc receives a progress update: the number of completed items,
// the total registered so far, and the path of the item that just finished.
type ProgressFunc func(current, total int, path string)

// Tracker counts completed analysis items and forwards updates to an
// optional callback. Analysis phases register their work with Add before
// ticking, so the total grows as the run discovers what it has to do.
// Safe for concurrent use.
type Tracker struct {
	current  atomic.Int64
	total    atomic.Int64
	callback ProgressFunc
}

// NewTracker creates a tracker. A nil callback is valid; the tracker then
// only counts.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Add registers n more items of upcoming work.
func (t *Tracker) Add(n int) {
	t.total.Add(int64(n))
}

// Tick records the completion of one item and notifies the callback.
func (t *Tracker) Tick(path string) {
	cur := t.current.Add(1)
	if t.callback != nil {
		t.callback(int(cur), int(t.total.Load()), path)
	}
}

// Current returns how many items have completed.
func (t *Tracker) Current() int {
	return int(t.current.Load())
}

// Total returns how many items have been registered.
func (t *Tracker) Total() int {
	return int(t.total.Load())
}

type trackerKey struct{}

// WithTracker attaches a progress tracker to the context. Analysis phases
// retrieve it with TrackerFromContext and tick it as they complete files.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext returns the tracker attached to ctx, or nil when
// progress is not being observed.
func TrackerFromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}
