// Package selector implements the three runway selection policies
// named in spec.md §4.4: first_available (direct-first enumeration
// order), round_robin (rotated by a registry-local counter that
// advances once per selection), and latency (ascending by the most
// recent sample for the requested target, unknowns sorted last).
//
// Select always returns a full ordered list, never a single winner —
// the dialer owns fallback across the list on connect failure.
package selector
