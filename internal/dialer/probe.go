package dialer

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"

	"go.uber.org/multierr"
)

// ProbeConn is a connection opened purely to negotiate an application
// protocol. The caller either promotes it into the request's live
// connection or closes it; it is never silently kept.
type ProbeConn struct {
	net.Conn // the completed TLS connection

	// Proto is the negotiated ALPN identifier, empty when the peer
	// picked nothing.
	Proto string
}

func (p *ProbeConn) Negotiated() (string, bool) { return p.Proto, p.Proto != "" }

// DialNegotiate opens a transport connection to key's endpoint and
// completes a TLS handshake offering protos in preference order. The
// handshake blocks the calling goroutine; no timeout is imposed beyond
// ctx and whatever the transport enforces. On error no connection is
// left open.
func (d *CoreDialer) DialNegotiate(ctx context.Context, key ConnectionKey, protos []string) (*ProbeConn, error) {
	remote := &url.URL{Scheme: key.Scheme, Host: net.JoinHostPort(key.Host, key.Port)}
	raw, err := d.dialEndpoint(ctx, key.Host, key.Port, key.Resolve, key.Proxy, remote)
	if err != nil {
		return nil, err
	}
	cfg := key.TLS.clientConfig(key.Host, protos...)
	c := tls.Client(raw, cfg)
	if err := c.HandshakeContext(ctx); err != nil {
		return nil, multierr.Append(err, raw.Close())
	}
	return &ProbeConn{Conn: c, Proto: c.ConnectionState().NegotiatedProtocol}, nil
}
