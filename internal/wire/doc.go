// Package wire is the RFC 1928 SOCKS5 address wire codec: decoding a
// client's ATYP/ADDR/PORT and encoding the daemon's own reply. It has
// no knowledge of sockets, sessions, or runways — just bytes in, bytes
// out — so it round-trips in tests without any network fixture.
package wire
