package control

import "sync/atomic"

// Stats tracks the three session counters spec.md §4.9 exposes.
// total_sessions is monotonic; active_sessions rises and falls with
// in-flight relays; failed_sessions only counts sessions that never
// forwarded a byte. Plain atomics are sufficient since the mutation is
// a single increment/decrement, per spec.md §5 ("monotonic counters
// with atomic increments suffice").
type Stats struct {
	total  int64
	active int64
	failed int64

	observer Observer
}

// Observer receives the same signals Stats does, so the Prometheus
// exporter can mirror session counters without Stats importing the
// metrics package directly.
type Observer interface {
	ObserveSessionStarted()
	ObserveSessionActiveDelta(delta int)
	ObserveSessionFailed()
}

// NewStats constructs an empty Stats. observer may be nil.
func NewStats(observer Observer) *Stats {
	return &Stats{observer: observer}
}

// StatsSnapshot is the read model returned by Snapshot.
type StatsSnapshot struct {
	Total  int64
	Active int64
	Failed int64
}

func (s *Stats) IncTotal() {
	atomic.AddInt64(&s.total, 1)
	if s.observer != nil {
		s.observer.ObserveSessionStarted()
	}
}

// IncActive and DecActive implement relay.ActiveCounter.
func (s *Stats) IncActive() {
	atomic.AddInt64(&s.active, 1)
	if s.observer != nil {
		s.observer.ObserveSessionActiveDelta(1)
	}
}

func (s *Stats) DecActive() {
	atomic.AddInt64(&s.active, -1)
	if s.observer != nil {
		s.observer.ObserveSessionActiveDelta(-1)
	}
}

func (s *Stats) IncFailed() {
	atomic.AddInt64(&s.failed, 1)
	if s.observer != nil {
		s.observer.ObserveSessionFailed()
	}
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Total:  atomic.LoadInt64(&s.total),
		Active: atomic.LoadInt64(&s.active),
		Failed: atomic.LoadInt64(&s.failed),
	}
}
