//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

package gemini

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// controlSocket returns a net.ListenConfig control function that
// applies the requested socket-reuse options before bind, or nil when
// neither option is wanted.
func controlSocket(reuseAddr, reusePort bool) func(network, address string, c syscall.RawConn) error {
	if !reuseAddr && !reusePort {
		return nil
	}
	return func(network, address string, c syscall.RawConn) error {
		var serr error
		err := c.Control(func(fd uintptr) {
			if reuseAddr {
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				if serr != nil {
					return
				}
			}
			if reusePort {
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			}
		})
		if err != nil {
			return err
		}
		return serr
	}
}
