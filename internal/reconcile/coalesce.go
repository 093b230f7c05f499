package reconcile

import (
	"sync"
	"time"

	"github.com/mkarvonen/orderwatch/internal/feed"
)

// DefaultWindow is the coalescing window for near-simultaneous
// snapshots from concurrent page contexts (split view renders the same
// order list in two iframes that report within milliseconds of each
// other).
const DefaultWindow = 1500 * time.Millisecond

// Coalescer collapses snapshots arriving within a fixed window into the
// single snapshot with the highest combined count, so a context
// reporting a transient partial view cannot overwrite a complete one.
// The window is fixed from the first arrival; later arrivals never
// extend it.
type Coalescer struct {
	mu      sync.Mutex
	window  time.Duration
	pending *feed.Snapshot
	timer   *time.Timer
	closed  bool
	flush   func(feed.Snapshot)
}

// NewCoalescer creates a coalescer delivering the winning snapshot of
// each window to flush. flush is called from a timer goroutine and must
// be safe to call concurrently with Add (the watcher's flush sends an
// inbox message, which is).
func NewCoalescer(window time.Duration, flush func(feed.Snapshot)) *Coalescer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Coalescer{window: window, flush: flush}
}

// Add offers a snapshot to the current window, opening one if none is
// active. The snapshot with the higher collect+wolt total wins the
// window.
func (c *Coalescer) Add(snap feed.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if c.pending == nil {
		c.pending = &snap
		c.timer = time.AfterFunc(c.window, c.fire)
		return
	}
	if snap.Total() > c.pending.Total() {
		c.pending = &snap
	}
}

func (c *Coalescer) fire() {
	c.mu.Lock()
	snap := c.pending
	c.pending = nil
	c.timer = nil
	c.mu.Unlock()

	if snap != nil {
		c.flush(*snap)
	}
}

// Close flushes any pending window and stops the coalescer. Flushing on
// teardown rather than dropping avoids losing a final legitimate
// update.
func (c *Coalescer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	snap := c.pending
	c.pending = nil
	c.mu.Unlock()

	if snap != nil {
		c.flush(*snap)
	}
}
