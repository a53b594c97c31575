package control

import (
	"sync"

	"github.com/sanverite/smartproxy/internal/registry"
)

// EventFeedCapacity is the ring buffer size spec.md §4.9 names as the
// default capacity of recent_events.
const EventFeedCapacity = 1000

// EventFeed is a fixed-capacity ring buffer of the most recent
// runway status-change events. The prober is its only writer.
type EventFeed struct {
	mu   sync.Mutex
	buf  []registry.StatusChange
	next int  // index to write next
	full bool // buf has wrapped at least once
}

// NewEventFeed constructs a feed with the given capacity. A capacity
// of 0 falls back to EventFeedCapacity.
func NewEventFeed(capacity int) *EventFeed {
	if capacity <= 0 {
		capacity = EventFeedCapacity
	}
	return &EventFeed{buf: make([]registry.StatusChange, capacity)}
}

// Publish appends a status-change event, overwriting the oldest entry
// once the buffer is full.
func (f *EventFeed) Publish(ev registry.StatusChange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf[f.next] = ev
	f.next = (f.next + 1) % len(f.buf)
	if f.next == 0 {
		f.full = true
	}
}

// Recent returns up to n of the most recently published events,
// oldest first. n <= 0 or n greater than the number stored returns
// everything currently held.
func (f *EventFeed) Recent(n int) []registry.StatusChange {
	f.mu.Lock()
	defer f.mu.Unlock()

	size := f.next
	if f.full {
		size = len(f.buf)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]registry.StatusChange, 0, n)
	start := f.next - n
	for i := 0; i < n; i++ {
		idx := (start + i + len(f.buf)) % len(f.buf)
		out = append(out, f.buf[idx])
	}
	return out
}
