package netpool

import (
	"context"
	"net"
	"sync"
)

type ConnRequest struct {
	Key  string
	Dial func(ctx context.Context) (net.Conn, error)
}

type Group struct {
	mu    sync.RWMutex
	pools map[string]*Pool

	maxConnsPerHost, maxIdlePerHost uint
}

func NewGroup(maxConnsPerHost, maxIdlePerHost uint) *Group {
	return &Group{
		pools:           map[string]*Pool{},
		maxConnsPerHost: maxConnsPerHost, maxIdlePerHost: maxIdlePerHost,
	}
}

// NewEmpty derives a group with the same bounds and no pooled connections.
func (g *Group) NewEmpty() *Group {
	if g == nil {
		return nil
	}
	return NewGroup(g.maxConnsPerHost, g.maxIdlePerHost)
}

func (g *Group) Connect(ctx context.Context, req ConnRequest) (Conn, error) {
	g.mu.RLock()
	p, ok := g.pools[req.Key]
	g.mu.RUnlock()
	if ok {
		return p.Connect(ctx, req.Dial)
	}
	g.mu.Lock()
	if p, ok = g.pools[req.Key]; !ok {
		p = NewPool(g.maxIdlePerHost, g.maxConnsPerHost)
		g.pools[req.Key] = p
	}
	g.mu.Unlock()
	return p.Connect(ctx, req.Dial)
}
