// package nettools peeks at connection state below the net.Conn surface.
// it is used by the connection pool to avoid handing out idle connections
// the peer has already torn down.
package nettools

import (
	"net"
	"syscall"
)

// Idle reports whether c looks safe to reuse as an idle connection:
// nothing is pending in the receive buffer and the peer has not closed.
// When the platform or the connection type doesn't let us check, it
// reports true and leaves failure detection to the first write.
func Idle(c net.Conn) bool {
	rc := rawConn(c)
	if rc == nil {
		return true
	}
	return idleFD(rc)
}

func rawConn(raw net.Conn) syscall.RawConn {
	if t, ok := raw.(interface{ NetConn() net.Conn }); ok {
		// is *tls.Conn or polyfilled TLS Connection
		raw = t.NetConn()
	}
	if c, ok := raw.(syscall.Conn); ok {
		if rc, err := c.SyscallConn(); err == nil {
			return rc
		}
	}
	return nil
}
