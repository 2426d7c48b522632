// package h1 provides the text HTTP/1.1 protocol over the module's own
// wire codec. It claims one pooled connection per in-flight request.
package h1

import (
	"context"
	"io"

	"github.com/anyhttp/anyhttp/internal/dialer"
	"github.com/anyhttp/anyhttp/internal/http"
	"github.com/anyhttp/anyhttp/internal/spi"
	"github.com/anyhttp/anyhttp/internal/transport"
)

// ID is the protocol identifier, equal to the ALPN identifier of
// HTTP/1.1.
const ID = "http/1.1"

type Provider struct {
	// Dialer opens connections when the request doesn't arrive with one
	// pre-bound. nil falls back to a zero core dialer.
	Dialer dialer.Dialer
}

func New(d dialer.Dialer) *Provider { return &Provider{Dialer: d} }

func (p *Provider) ID() string { return ID }

func (p *Provider) Negotiable() bool { return true }

// Rank always reports compatible: HTTP/1.1 can carry any request, but it
// is never an authoritative match, leaving room for a better-suited
// provider or for negotiation.
func (p *Provider) Rank(r *http.PreparedRequest) spi.SupportLevel {
	return spi.Compatible
}

func (p *Provider) NewExecutable(r *http.PreparedRequest) spi.Executable {
	return &request{p: p, r: r}
}

var codec = transport.HTTP1{}

type request struct {
	p *Provider
	r *http.PreparedRequest
}

func (e *request) Execute(ctx context.Context) (*http.Response, error) {
	conn, err := e.connect(ctx)
	if err != nil {
		return nil, err
	}
	if err := codec.Write(ctx, conn, e.r); err != nil {
		conn.Close()
		return nil, err
	}
	resp := &http.Response{}
	if err := codec.Read(ctx, conn, e.r, resp); err != nil {
		conn.Close()
		return nil, err
	}
	// the codec wires resp.Body.Close to conn.Close, which for pooled
	// connections means release. bodiless responses free the connection
	// right away.
	if resp.Header.Get("Connection") == "close" {
		if pc, ok := conn.(interface{ Discard() }); ok {
			pc.Discard()
		}
	}
	if resp.Body == http.NoBody {
		conn.Close()
	}
	return resp, nil
}

func (e *request) connect(ctx context.Context) (io.ReadWriteCloser, error) {
	if c := e.r.PreConn; c != nil {
		return c, nil
	}
	d := e.p.Dialer
	if d == nil {
		d = &dialer.CoreDialer{}
	}
	return d.Dial(ctx, e.r)
}
