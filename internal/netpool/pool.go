// package netpool keeps per-endpoint bounded pools of raw connections for
// protocols that claim a whole connection per request (HTTP/1.1).
// multiplexed protocols manage their own connection reuse.
package netpool

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/anyhttp/anyhttp/internal/nettools"
)

type Pool struct {
	connTicket chan struct{}

	mu   sync.Mutex
	idle []*conn

	maxIdle         uint
	maxIdleDuration time.Duration
}

func NewPool(maxIdle, maxConn uint) *Pool {
	return &Pool{
		connTicket: make(chan struct{}, maxConn),
		maxIdle:    maxIdle,
	}
}

// Connect leases a connection, reusing an idle one when it is still
// alive. It blocks while the pool is at capacity, honoring ctx.
func (p *Pool) Connect(ctx context.Context, dial func(ctx context.Context) (net.Conn, error)) (Conn, error) {
	select {
	case p.connTicket <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	for {
		c := p.popIdle()
		if c == nil {
			break
		}
		if p.maxIdleDuration != 0 && time.Since(c.lastIdle) > p.maxIdleDuration {
			c.shutdown()
			continue
		}
		if !c.broken.Load() && nettools.Idle(c.raw) {
			return leased{c, p}, nil
		}
		c.shutdown()
	}
	raw, err := dial(ctx)
	if err != nil {
		<-p.connTicket
		return nil, err
	}
	return leased{&conn{raw: raw}, p}, nil
}

func (p *Pool) popIdle() *conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.idle) == 0 {
		return nil
	}
	c := p.idle[0]
	p.idle = p.idle[1:]
	return c
}

func (p *Pool) release(c *conn) error {
	defer func() { <-p.connTicket }()
	if c.broken.Load() {
		return c.shutdown()
	}
	p.mu.Lock()
	if uint(len(p.idle)) < p.maxIdle {
		c.lastIdle = time.Now()
		p.idle = append(p.idle, c)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return c.shutdown()
}
