// Package platform is the capability boundary between the runway plane
// and the operating system's view of network interfaces.
//
// It has exactly two operations, both synchronous and non-blocking:
// ListInterfaces (administratively-up, non-loopback interface names)
// and IfaceIPv4 (an interface's primary IPv4 address). Keeping this
// surface small means the rest of the daemon — registry, prober,
// dialer — can be exercised in tests without a real network stack by
// swapping in fixed interface lists.
package platform
