package registry

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Status is a runway's most recently observed reachability.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusUp      Status = "up"
	StatusDown    Status = "down"
)

// UpstreamProxy is a chained HTTP CONNECT proxy, uniquely identified by
// (Host, Port).
type UpstreamProxy struct {
	Host string
	Port int
}

// Key returns the stable identity of the upstream, suitable for use as
// a map key component.
func (u UpstreamProxy) Key() string {
	return u.Host + ":" + strconv.Itoa(u.Port)
}

// Key is the stable identity of a Runway: (interface, upstream-or-nil).
// It is a plain comparable struct so it can be used directly as a Go
// map key, unlike the heterogeneous tuple the original implementation
// keyed its runway table with.
type Key struct {
	Interface string
	// Upstream is the empty string for a direct runway.
	Upstream string
}

// Direct reports whether this key identifies a direct (non-proxied)
// runway.
func (k Key) Direct() bool { return k.Upstream == "" }

// Runway is one concrete egress path: an interface bound either to a
// direct outbound connection or to a chained upstream CONNECT proxy.
type Runway struct {
	Key          Key
	Interface    string
	InterfaceIP  string // "" if unknown, "0.0.0.0" for the synthetic interface
	Upstream     *UpstreamProxy
	Status       Status
	LastProbeAt  time.Time
}

// LatencyRecord is the most recently observed latency of one runway
// against one target. Records are overwritten by every successful
// probe and never explicitly deleted, per spec.
type LatencyRecord struct {
	Target  string // "host:port" or resolved IP:port used as the probe target
	Runway  Key
	Latency time.Duration
}

// StatusChange is published whenever a probe's outcome differs from a
// runway's prior observed status. Steady-state probes never publish.
type StatusChange struct {
	Runway  Key
	From    Status
	To      Status
	Latency time.Duration
	At      time.Time
}

// Registry owns the runway set, per-runway status, and per-target
// latency samples for the lifetime of the process. The prober is the
// sole writer of status and latency; every other reader gets an
// immutable snapshot and tolerates a momentarily stale value.
//
// Concurrency: reads take an RLock and copy out what they need before
// releasing it, so readers never hold a reference into registry-owned
// memory. The single-writer discipline (only the prober calls
// UpdateStatus) is what keeps status-change logging from racing itself;
// the mutex alone would not be enough to guarantee transitions are
// reported in order if two writers existed.
type Registry struct {
	mu sync.RWMutex

	runways   map[Key]*Runway
	order     []Key // stable enumeration order, direct runways first per interface
	latencies map[string]map[Key]time.Duration // target -> runway -> latency

	rrCounter uint64 // round_robin selection counter, advances once per selection
}

// New builds the registry as the cross-product of interfaces x
// ({direct} U upstreams), each runway starting in StatusUnknown.
// ifaceIPv4 resolves an interface name to its bind IP (platform.IfaceIPv4
// or a test double).
func New(interfaces []string, upstreams []UpstreamProxy, ifaceIPv4 func(string) (string, bool)) *Registry {
	r := &Registry{
		runways:   make(map[Key]*Runway),
		latencies: make(map[string]map[Key]time.Duration),
	}

	for _, ifaceName := range interfaces {
		ip, _ := ifaceIPv4(ifaceName)

		directKey := Key{Interface: ifaceName}
		r.runways[directKey] = &Runway{
			Key:         directKey,
			Interface:   ifaceName,
			InterfaceIP: ip,
			Status:      StatusUnknown,
		}
		r.order = append(r.order, directKey)

		for _, up := range upstreams {
			up := up
			key := Key{Interface: ifaceName, Upstream: up.Key()}
			r.runways[key] = &Runway{
				Key:         key,
				Interface:   ifaceName,
				InterfaceIP: ip,
				Upstream:    &up,
				Status:      StatusUnknown,
			}
			r.order = append(r.order, key)
		}
	}

	return r
}

// Snapshot is an immutable, defensively-copied view of one runway.
type Snapshot struct {
	Key         Key
	Interface   string
	InterfaceIP string
	Upstream    *UpstreamProxy
	Status      Status
	LastProbeAt time.Time
}

// SnapshotRunways returns every runway in stable enumeration order.
// Wait-free with respect to the prober: it takes a brief RLock and
// copies, never blocking on or being blocked by a writer for longer
// than that copy takes.
func (r *Registry) SnapshotRunways() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Snapshot, 0, len(r.order))
	for _, k := range r.order {
		rw := r.runways[k]
		out = append(out, Snapshot{
			Key:         rw.Key,
			Interface:   rw.Interface,
			InterfaceIP: rw.InterfaceIP,
			Upstream:    rw.Upstream,
			Status:      rw.Status,
			LastProbeAt: rw.LastProbeAt,
		})
	}
	return out
}

// Lookup returns a single runway snapshot by key.
func (r *Registry) Lookup(key Key) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rw, ok := r.runways[key]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		Key:         rw.Key,
		Interface:   rw.Interface,
		InterfaceIP: rw.InterfaceIP,
		Upstream:    rw.Upstream,
		Status:      rw.Status,
		LastProbeAt: rw.LastProbeAt,
	}, true
}

// UpdateStatus is the sole mutator of runway status, called only from
// the prober. It returns the StatusChange event if, and only if, this
// probe's outcome differs from the prior observed status; callers
// publish the returned event to the event feed themselves so the
// registry stays free of feed-specific concerns.
func (r *Registry) UpdateStatus(key Key, up bool, latency time.Duration, now time.Time) (StatusChange, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rw, ok := r.runways[key]
	if !ok {
		return StatusChange{}, false
	}

	next := StatusDown
	if up {
		next = StatusUp
	}

	prev := rw.Status
	rw.Status = next
	rw.LastProbeAt = now

	if prev == next {
		return StatusChange{}, false
	}
	return StatusChange{
		Runway:  key,
		From:    prev,
		To:      next,
		Latency: latency,
		At:      now,
	}, true
}

// RecordLatency appends/overwrites the latency sample for (target, key).
func (r *Registry) RecordLatency(target string, key Key, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byRunway, ok := r.latencies[target]
	if !ok {
		byRunway = make(map[Key]time.Duration)
		r.latencies[target] = byRunway
	}
	byRunway[key] = latency
}

// Latency returns the most recent latency sample for (target, key), if
// any.
func (r *Registry) Latency(target string, key Key) (time.Duration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byRunway, ok := r.latencies[target]
	if !ok {
		return 0, false
	}
	lat, ok := byRunway[key]
	return lat, ok
}

// LatenciesForTarget returns a defensive copy of every recorded
// latency for the given target, keyed by runway.
func (r *Registry) LatenciesForTarget(target string) map[Key]time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[Key]time.Duration, len(r.latencies[target]))
	for k, v := range r.latencies[target] {
		out[k] = v
	}
	return out
}

// Available returns the sequence of up-runways. When preferDirect is
// set, direct runways sort before proxied ones; ties keep enumeration
// order in both groups.
func (r *Registry) Available(preferDirect bool) []Snapshot {
	all := r.SnapshotRunways()
	up := make([]Snapshot, 0, len(all))
	for _, s := range all {
		if s.Status == StatusUp {
			up = append(up, s)
		}
	}
	if !preferDirect {
		return up
	}
	sort.SliceStable(up, func(i, j int) bool {
		return up[i].Key.Direct() && !up[j].Key.Direct()
	})
	return up
}

// NextRoundRobin advances and returns the round-robin counter. The
// counter is registry-local and advances once per selection call, not
// once per candidate tried by a caller, per spec.
func (r *Registry) NextRoundRobin() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.rrCounter
	r.rrCounter++
	return v
}
