//go:build !aix && !darwin && !dragonfly && !freebsd && !linux && !netbsd && !openbsd && !solaris
// +build !aix,!darwin,!dragonfly,!freebsd,!linux,!netbsd,!openbsd,!solaris

package gemini

import "syscall"

// Socket-reuse options are only wired up on unix platforms.
func controlSocket(reuseAddr, reusePort bool) func(network, address string, c syscall.RawConn) error {
	return nil
}
