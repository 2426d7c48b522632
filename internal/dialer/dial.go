package dialer

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/url"

	"go.uber.org/multierr"

	"github.com/anyhttp/anyhttp/internal/http"
	"github.com/anyhttp/anyhttp/internal/netpool"
)

// Dial opens (or leases from the pool) a connection suitable for a
// protocol that owns the whole connection, completing the TLS handshake
// for secure targets with the HTTP/1.1 ALPN identifier pinned.
func (d *CoreDialer) Dial(ctx context.Context, r *http.PreparedRequest) (io.ReadWriteCloser, error) {
	proxy, err := d.ProxyURL(ctx, r.Request)
	if err != nil {
		return nil, err
	}
	host, port := SplitHostPort(r.U)

	dial := func(ctx context.Context) (net.Conn, error) {
		conn, err := d.dialEndpoint(ctx, host, port, d.Resolve, proxy, r.U)
		if err != nil {
			return nil, err
		}
		if r.U.Scheme == "https" && d.TLS.Enabled() {
			cfg := d.TLS.clientConfig(host, "http/1.1")
			c := tls.Client(conn, cfg)
			if err := c.HandshakeContext(ctx); err != nil {
				return nil, multierr.Append(err, conn.Close())
			}
			conn = c
		}
		return conn, nil
	}

	if d.Pool == nil {
		return dial(ctx)
	}
	key := r.U.Scheme + "|" + net.JoinHostPort(host, port) + "|" + d.Proxy.digest(proxy)
	return d.Pool.Connect(ctx, netpool.ConnRequest{Key: key, Dial: dial})
}

// DialRaw opens the plain transport connection for key without a TLS
// handshake, for providers that run a cleartext binary protocol with
// prior knowledge.
func (d *CoreDialer) DialRaw(ctx context.Context, key ConnectionKey) (net.Conn, error) {
	remote := &url.URL{Scheme: key.Scheme, Host: net.JoinHostPort(key.Host, key.Port)}
	return d.dialEndpoint(ctx, key.Host, key.Port, key.Resolve, key.Proxy, remote)
}

// dialEndpoint opens the raw transport connection, going through the
// proxy when one is in effect and honoring the resolver configuration.
func (d *CoreDialer) dialEndpoint(ctx context.Context, host, port string, resolve ResolveConfig, proxy, remote *url.URL) (net.Conn, error) {
	if proxy != nil {
		return d.DialOverProxy(ctx, remote, proxy)
	}

	network, dialer, dialctx, dst := "tcp", &zeroDialer, ctx, net.JoinHostPort(host, port)
	switch resolve.Network {
	case "ip4":
		network = "tcp4"
	case "ip6":
		network = "tcp6"
	}
	if static, ok := resolve.StaticHosts[host]; ok {
		dst = net.JoinHostPort(static, port)
	}
	if dns := resolve.CustomDNSServer; dns != "" {
		dialctx = dnsServerCtx{dialctx, dns}
		dialer = &customDnsDialer
	}
	return dialer.DialContext(dialctx, network, dst)
}
