// package h2 provides the multiplexed binary HTTP/2 protocol on top of
// golang.org/x/net/http2, keeping one client connection per authority and
// adopting connections promoted from protocol negotiation.
package h2

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/net/http2"

	"github.com/anyhttp/anyhttp/internal/dialer"
	"github.com/anyhttp/anyhttp/internal/http"
	"github.com/anyhttp/anyhttp/internal/spi"
)

// ID is the protocol identifier, equal to the ALPN identifier of HTTP/2.
const ID = "h2"

type Provider struct {
	// Core supplies connection establishment and the per-request proxy
	// decision. nil falls back to a zero core dialer.
	Core *dialer.CoreDialer
	// PriorKnowledge permits cleartext HTTP/2 without an upgrade,
	// making the provider an authoritative match for "http" targets.
	PriorKnowledge bool

	mu    sync.RWMutex
	conns map[string]*http2.ClientConn
	tr    *http2.Transport
}

func New(core *dialer.CoreDialer) *Provider { return &Provider{Core: core} }

func (p *Provider) ID() string { return ID }

func (p *Provider) Negotiable() bool { return true }

// Rank cannot promise anything for secure targets without a handshake:
// whether the peer speaks HTTP/2 is exactly what ALPN is for.
func (p *Provider) Rank(r *http.PreparedRequest) spi.SupportLevel {
	if r.U.Scheme == "https" {
		return spi.Unknown
	}
	if p.PriorKnowledge {
		return spi.Supported
	}
	return spi.NotSupported
}

func (p *Provider) NewExecutable(r *http.PreparedRequest) spi.Executable {
	return &request{p: p, r: r}
}

type request struct {
	p *Provider
	r *http.PreparedRequest
}

func (e *request) Execute(ctx context.Context) (*http.Response, error) {
	cc, err := e.p.clientConn(ctx, e.r)
	if err != nil {
		return nil, err
	}
	req, err := e.r.Std(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := cc.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	return http.ResponseFromStd(resp), nil
}

func (p *Provider) core() *dialer.CoreDialer {
	if p.Core == nil {
		p.Core = &dialer.CoreDialer{}
	}
	return p.Core
}

func (p *Provider) transport() *http2.Transport {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tr == nil {
		p.tr = &http2.Transport{AllowHTTP: true}
	}
	return p.tr
}

func (p *Provider) clientConn(ctx context.Context, r *http.PreparedRequest) (*http2.ClientConn, error) {
	hp := dialer.Authority(r.U)
	if c := r.PreConn; c != nil {
		nc, ok := c.(net.Conn)
		if !ok {
			return nil, errors.New("h2: pre-bound connection is not a net.Conn")
		}
		return p.adopt(hp, nc)
	}

	p.mu.RLock()
	cc := p.conns[hp]
	p.mu.RUnlock()
	if cc != nil && cc.CanTakeNewRequest() {
		return cc, nil
	}
	// if the alive connection cannot take new streams, dial a new one
	nc, err := p.dial(ctx, r)
	if err != nil {
		return nil, err
	}
	return p.adopt(hp, nc)
}

// adopt turns an established connection into the authority's client
// connection, replacing (and closing) whatever was there before.
func (p *Provider) adopt(hp string, nc net.Conn) (*http2.ClientConn, error) {
	cc, err := p.transport().NewClientConn(nc)
	if err != nil {
		return nil, multierr.Append(err, nc.Close())
	}
	p.mu.Lock()
	if old, ok := p.conns[hp]; ok {
		old.Close() // dial new when old is still alive
	}
	if p.conns == nil {
		p.conns = map[string]*http2.ClientConn{}
	}
	p.conns[hp] = cc
	p.mu.Unlock()
	return cc, nil
}

func (p *Provider) dial(ctx context.Context, r *http.PreparedRequest) (net.Conn, error) {
	core := p.core()
	proxy, err := core.ProxyURL(ctx, r.Request)
	if err != nil {
		return nil, err
	}
	key := core.ConnectionKey(r, proxy)

	if r.U.Scheme == "https" && core.TLS.Enabled() {
		pc, err := core.DialNegotiate(ctx, key, []string{ID})
		if err != nil {
			return nil, err
		}
		if proto, ok := pc.Negotiated(); !ok || proto != ID {
			return nil, multierr.Append(
				fmt.Errorf("h2: peer did not negotiate %q", ID), pc.Close())
		}
		return pc.Conn, nil
	}
	if !p.PriorKnowledge {
		return nil, errors.New("h2: cleartext HTTP/2 requires prior knowledge")
	}
	return core.DialRaw(ctx, key)
}
