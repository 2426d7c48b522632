package netpool

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Conn is a leased pooled connection. Close returns it to the pool when
// it is still healthy, otherwise the underlying connection is torn down.
type Conn interface {
	io.ReadWriteCloser
	Raw() net.Conn
	// Discard marks the connection as unusable so Close tears it down
	// instead of recycling it.
	Discard()
}

type conn struct {
	raw       net.Conn
	broken    atomic.Bool
	closeOnce sync.Once
	closeErr  error
	lastIdle  time.Time
}

func (c *conn) Write(p []byte) (n int, err error) {
	n, err = c.raw.Write(p)
	if err != nil {
		c.shutdown()
	}
	return
}

func (c *conn) Read(p []byte) (n int, err error) {
	n, err = c.raw.Read(p)
	if err != nil && err != io.EOF {
		c.shutdown()
	}
	return
}

func (c *conn) shutdown() error {
	c.broken.Store(true)
	c.closeOnce.Do(func() { c.closeErr = c.raw.Close() })
	return c.closeErr
}

// leased is the caller-facing wrapper. the pool ticket it holds is
// released exactly once, on Close.
type leased struct {
	*conn
	p *Pool
}

func (l leased) Raw() net.Conn { return l.conn.raw }

func (l leased) Discard() { l.conn.broken.Store(true) }

func (l leased) Close() error {
	return l.p.release(l.conn)
}
