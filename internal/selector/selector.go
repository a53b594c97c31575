package selector

import (
	"sort"

	"github.com/sanverite/smartproxy/internal/registry"
)

// Policy names one of the three pluggable selection policies.
type Policy string

const (
	FirstAvailable Policy = "first_available"
	RoundRobin     Policy = "round_robin"
	Latency        Policy = "latency"
)

// Select orders the registry's up-runways for one client request
// against target ("host:port" or a resolved IP:port — whatever the
// latency records were recorded under). It returns an empty list when
// no up-runway exists; the caller must surface apperr.ErrNoRunwayAvailable.
func Select(reg *registry.Registry, target string, policy Policy) []registry.Snapshot {
	switch policy {
	case FirstAvailable:
		return selectFirstAvailable(reg)
	case RoundRobin:
		return selectRoundRobin(reg)
	case Latency:
		return selectLatency(reg, target)
	default:
		// An unrecognized policy degrades to first_available rather
		// than returning nothing; config.Validate rejects unknown
		// policies before they ever reach here, so this path only
		// guards against programmer error.
		return selectFirstAvailable(reg)
	}
}

func selectFirstAvailable(reg *registry.Registry) []registry.Snapshot {
	return reg.Available(true)
}

// selectRoundRobin rotates the up-runway list by a registry-local
// counter that advances once per call, not once per candidate tried —
// the whole rotated list is returned so the dialer can still fall back.
func selectRoundRobin(reg *registry.Registry) []registry.Snapshot {
	up := reg.Available(false)
	if len(up) == 0 {
		return nil
	}
	offset := int(reg.NextRoundRobin() % uint64(len(up)))
	rotated := make([]registry.Snapshot, len(up))
	for i := range up {
		rotated[i] = up[(offset+i)%len(up)]
	}
	return rotated
}

// selectLatency sorts up-runways ascending by the most recent latency
// sample recorded for target; runways with no sample sort last, among
// themselves in enumeration order (sort.SliceStable preserves that).
func selectLatency(reg *registry.Registry, target string) []registry.Snapshot {
	up := reg.Available(false)
	if len(up) == 0 {
		return nil
	}
	samples := reg.LatenciesForTarget(target)

	type scored struct {
		snap    registry.Snapshot
		known   bool
		latency int64
	}
	scoredList := make([]scored, len(up))
	for i, s := range up {
		lat, ok := samples[s.Key]
		scoredList[i] = scored{snap: s, known: ok, latency: int64(lat)}
	}

	sort.SliceStable(scoredList, func(i, j int) bool {
		a, b := scoredList[i], scoredList[j]
		if a.known != b.known {
			return a.known // known sorts before unknown
		}
		if !a.known {
			return false // both unknown: keep enumeration order
		}
		return a.latency < b.latency
	})

	out := make([]registry.Snapshot, len(scoredList))
	for i, s := range scoredList {
		out[i] = s.snap
	}
	return out
}
