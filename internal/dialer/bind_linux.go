//go:build linux

package dialer

import (
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/sanverite/smartproxy/internal/platform"
)

// bindControl returns a net.Dialer.Control hook that additionally
// binds the outbound socket to the named interface with
// SO_BINDTODEVICE. LocalAddr alone disambiguates which address to
// source from, but not which link to route out of when two interfaces
// share an overlapping subnet; SO_BINDTODEVICE closes that gap. The
// synthetic "unspecified" interface and dialer-internal test doubles
// skip this (there is no real device to bind to).
func bindControl(interfaceName string) func(network, address string, c syscall.RawConn) error {
	if interfaceName == "" || interfaceName == platform.UnspecifiedInterface {
		return nil
	}
	return func(network, address string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptString(int(fd), unix.SOL_SOCKET, unix.SO_BINDTODEVICE, interfaceName)
		})
		if err != nil {
			return err
		}
		if sockErr != nil {
			// Binding to the device is a best-effort hardening step;
			// a non-root process may lack CAP_NET_RAW and LocalAddr's
			// source-IP binding is still in effect, so don't fail the
			// dial over it.
			return nil
		}
		return nil
	}
}
