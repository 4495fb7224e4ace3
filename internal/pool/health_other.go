//go:build !unix

package pool

import "net"

// isConnDropped has no portable non-blocking peek outside unix; on these
// platforms a dropped peer is only discovered on the next real read.
func isConnDropped(nc net.Conn) bool { return false }
