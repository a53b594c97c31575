// Package frontend dispatches an accepted connection to the matching
// protocol handler and extracts the client's requested target.
//
// Dispatch reads exactly one byte within DispatchTimeout; 0x05 selects
// SOCKS5 (RFC 1928, CONNECT only, with RFC 1929 auth when enabled),
// anything matching "CONNECT" over the next few bytes selects HTTP/1.1
// CONNECT (with Basic Proxy-Authorization when enabled). Anything else
// is a protocol error and the caller should close the socket without
// writing a reply.
//
// Each handler returns a ReplyWriter bound to the connection so the
// session can defer the protocol-specific success/failure reply until
// the dial outcome is known, without the front-end needing to know
// anything about runways or dialing.
package frontend
