package control

import (
	"time"

	"github.com/sanverite/smartproxy/internal/registry"
)

// RunwayEntry is one row of runway_view(): a runway's identity plus
// the read model fields spec.md §4.9 lists (status, last-probe age,
// latest latency per probe target).
type RunwayEntry struct {
	Key          registry.Key
	Interface    string
	Upstream     *registry.UpstreamProxy
	Status       registry.Status
	LastProbeAge time.Duration
	Latencies    map[string]time.Duration // target -> latest latency
}

// RunwayView builds the current per-runway read model. targets is the
// prober's configured reachability target set; it is passed in rather
// than discovered because the registry only stores latencies keyed by
// (target, runway), not a reverse index of which targets exist.
func RunwayView(reg *registry.Registry, targets []string, now time.Time) []RunwayEntry {
	snapshots := reg.SnapshotRunways()
	out := make([]RunwayEntry, 0, len(snapshots))
	for _, s := range snapshots {
		entry := RunwayEntry{
			Key:       s.Key,
			Interface: s.Interface,
			Upstream:  s.Upstream,
			Status:    s.Status,
			Latencies: make(map[string]time.Duration),
		}
		if !s.LastProbeAt.IsZero() {
			entry.LastProbeAge = now.Sub(s.LastProbeAt)
		}
		for _, target := range targets {
			if lat, ok := reg.Latency(target, s.Key); ok {
				entry.Latencies[target] = lat
			}
		}
		out = append(out, entry)
	}
	return out
}
