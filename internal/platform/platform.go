package platform

import (
	"fmt"
	"net"
)

// UnspecifiedInterface is the synthetic interface name used when the
// host's real interfaces cannot be enumerated (non-Linux, permission
// denied, sandboxed network namespace, ...). A runway built on it binds
// to the unspecified address and lets the kernel pick a source.
const UnspecifiedInterface = "unspecified"

// ListInterfaces returns the ordered sequence of interface names that
// are administratively up and not loopback. If enumeration fails or
// yields nothing usable, it returns a single-element slice containing
// UnspecifiedInterface so the rest of the system always has at least
// one interface to build runways from.
func ListInterfaces() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return []string{UnspecifiedInterface}
	}

	names := make([]string, 0, len(ifaces))
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		names = append(names, iface.Name)
	}
	if len(names) == 0 {
		return []string{UnspecifiedInterface}
	}
	return names
}

// IfaceIPv4 returns the primary IPv4 address bound to the named
// interface. UnspecifiedInterface always maps to 0.0.0.0. ok is false
// when the interface has no IPv4 address (e.g. IPv6-only link).
func IfaceIPv4(name string) (ip string, ok bool) {
	if name == UnspecifiedInterface || name == "" {
		return "0.0.0.0", true
	}

	iface, err := net.InterfaceByName(name)
	if err != nil {
		return "", false
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return "", false
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		v4 := ipNet.IP.To4()
		if v4 == nil {
			continue
		}
		return v4.String(), true
	}
	return "", false
}

// MustIfaceIPv4 is a convenience wrapper returning "0.0.0.0" for any
// interface whose IPv4 address could not be determined, matching the
// spec's "skip bind if unspecified" semantics for direct runway probes.
func MustIfaceIPv4(name string) string {
	ip, ok := IfaceIPv4(name)
	if !ok {
		return "0.0.0.0"
	}
	return ip
}

// String renders an interface name for logs, substituting a readable
// label for the synthetic entry.
func String(name string) string {
	if name == UnspecifiedInterface {
		return fmt.Sprintf("%s(0.0.0.0)", name)
	}
	return name
}
