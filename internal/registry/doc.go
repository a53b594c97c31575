// Package registry holds the runway set: the cross-product of
// interfaces and {direct, each upstream proxy}, their current
// reachability status, and per-target latency samples.
//
// # Ownership
//
// The registry owns every Runway value for the process lifetime — the
// set is built once at startup (New) and never rebuilt; reconfiguring
// interfaces or upstreams requires a restart, per spec. Sessions and
// the selector only ever see Snapshot copies, never the live Runway.
//
// # Concurrency
//
// Many readers, one writer. The writer is always the prober, and
// UpdateStatus is the only method that mutates status — this
// single-writer discipline is what keeps status-change events in
// order without a separate log-serialization lock. Readers take a
// brief RLock, copy, and release; they are never blocked behind a
// probe in flight and may observe a status one cycle stale.
package registry
