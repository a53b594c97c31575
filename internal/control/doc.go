// Package control is the read-only observation and command surface
// spec.md §4.9 describes: session stats, a bounded feed of runway
// status-change events, a per-runway view derived from the registry,
// and the reload_config entry point. The HTTP API in internal/api is
// a thin transport wrapper around this package; nothing here depends
// on net/http.
package control
