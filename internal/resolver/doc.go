// Package resolver is a thin, pure-delegation wrapper over net.Resolver,
// per spec.md §4.6: literals pass through unchanged, names resolve to
// an IPv4 address when available and an IPv6 address otherwise.
// Resolution is per-session and uncached; DNS identity is not a runway
// dimension here (see DESIGN.md).
package resolver
