// Package relay copies bytes between a client connection and its
// outbound leg, per spec.md §4.8: two independent 64 KiB copy loops,
// proper half-close on each direction's termination, and full close
// of both sockets once both loops have ended.
package relay
