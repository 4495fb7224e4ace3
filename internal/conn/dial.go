package conn

import (
	"net"
	"time"
)

// DefaultDialNet is the stdlib-backed default for Config.DialNet: a plain
// net.Dialer respecting the supplied absolute deadline.
func DefaultDialNet(network, addr string, deadline time.Time) (net.Conn, error) {
	d := net.Dialer{}
	if !deadline.IsZero() {
		d.Deadline = deadline
	}
	return d.Dial(network, addr)
}
