//go:build unix

package pool

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// isConnDropped peeks at the socket without consuming data to detect a
// peer-initiated half-close:
// a zero-byte read with no error means the peer sent FIN, and most other
// errors besides "would block" mean the socket is no longer usable.
func isConnDropped(nc net.Conn) bool {
	sc, ok := nc.(syscall.Conn)
	if !ok {
		return false
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return false
	}

	var dropped bool
	ctrlErr := rc.Read(func(fd uintptr) bool {
		buf := make([]byte, 1)
		n, _, err := unix.Recvfrom(int(fd), buf, unix.MSG_PEEK|unix.MSG_DONTWAIT)
		switch {
		case n == 0 && err == nil:
			dropped = true
		case err != nil && err != unix.EAGAIN && err != unix.EWOULDBLOCK:
			dropped = true
		}
		return true
	})
	if ctrlErr != nil {
		return false
	}
	return dropped
}
