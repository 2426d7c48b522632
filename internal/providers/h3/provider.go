// package h3 provides HTTP/3 on quic-go. QUIC runs over UDP, so the
// protocol can never come out of the TCP-level negotiation probe; the
// provider only claims origins it was explicitly configured for.
package h3

import (
	"context"
	"crypto/tls"
	"sync"

	"github.com/quic-go/quic-go/http3"

	"github.com/anyhttp/anyhttp/internal/dialer"
	"github.com/anyhttp/anyhttp/internal/http"
	"github.com/anyhttp/anyhttp/internal/spi"
)

// ID is the protocol identifier, equal to the ALPN identifier of HTTP/3.
const ID = "h3"

type Provider struct {
	// TLS is the client TLS configuration for QUIC handshakes.
	TLS *tls.Config

	origins map[string]struct{}

	mu sync.Mutex
	tr *http3.Transport
}

// New builds a provider claiming the given origins, each an authority in
// "host:port" form with the port explicit (e.g. "example.com:443").
func New(tlsCfg *tls.Config, origins ...string) *Provider {
	set := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		set[o] = struct{}{}
	}
	return &Provider{TLS: tlsCfg, origins: set}
}

func (p *Provider) ID() string { return ID }

func (p *Provider) Negotiable() bool { return false }

// Rank claims pinned origins unconditionally and nothing else: there is
// no in-band way to discover HTTP/3 support from a TCP client.
func (p *Provider) Rank(r *http.PreparedRequest) spi.SupportLevel {
	if r.U.Scheme != "https" {
		return spi.NotSupported
	}
	if _, ok := p.origins[dialer.Authority(r.U)]; ok {
		return spi.Supported
	}
	return spi.NotSupported
}

func (p *Provider) NewExecutable(r *http.PreparedRequest) spi.Executable {
	return &request{p: p, r: r}
}

// Close releases all QUIC connections held by the provider.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tr == nil {
		return nil
	}
	return p.tr.Close()
}

func (p *Provider) transport() *http3.Transport {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tr == nil {
		p.tr = &http3.Transport{TLSClientConfig: p.TLS}
	}
	return p.tr
}

type request struct {
	p *Provider
	r *http.PreparedRequest
}

func (e *request) Execute(ctx context.Context) (*http.Response, error) {
	req, err := e.r.Std(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := e.p.transport().RoundTrip(req)
	if err != nil {
		return nil, err
	}
	return http.ResponseFromStd(resp), nil
}
