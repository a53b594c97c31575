// Package session runs one accepted connection through the full
// pipeline: protocol dispatch, resolution, runway selection, dialing,
// and relay. It is the Go-native restructuring of
// original_source/smart_proxy.py's handle_client into explicit,
// independently testable stages; a panic inside Handle is recovered
// by the caller's per-connection goroutine, never by this package.
package session
