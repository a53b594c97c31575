//go:build !linux

package dialer

import "syscall"

// bindControl is a no-op outside Linux: SO_BINDTODEVICE is
// Linux-specific, and LocalAddr-based source-IP binding (set by the
// caller) is the only interface-selection mechanism spec.md requires
// on other platforms.
func bindControl(interfaceName string) func(network, address string, c syscall.RawConn) error {
	return nil
}
