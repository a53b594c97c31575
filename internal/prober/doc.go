// Package prober runs the periodic reachability loop spec.md §4.3
// describes: every probe_interval seconds it fans out one probe per
// (runway, reachability target) pair, waits for the cycle to finish
// or its deadline to expire, and writes the outcome back to the
// registry. Status transitions are published to an event feed; a
// prober cycle never overlaps itself.
package prober
