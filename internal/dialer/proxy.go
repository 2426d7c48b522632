package dialer

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"

	"go.uber.org/multierr"

	"github.com/anyhttp/anyhttp/internal/http"
	"github.com/anyhttp/anyhttp/internal/transport"
)

type ProxyConfig struct {
	// URL is the static proxy to tunnel through, empty means direct.
	// CoreDialer.GetProxy takes priority when both are set.
	URL string
	// TLSConfig is the [*tls.Config] for the proxy hop itself, if nil,
	// [CoreDialer.TLS] is used.
	TLSConfig      *tls.Config
	ResolveLocally bool
	// Resolve overrides the resolver config used for the remote lookup
	// when resolving locally.
	Resolve *ResolveConfig
}

func (c ProxyConfig) Clone() ProxyConfig {
	clone := c
	clone.TLSConfig = c.TLSConfig.Clone()
	if c.Resolve != nil {
		r := c.Resolve.Clone()
		clone.Resolve = &r
	}
	return clone
}

// digest renders the proxy identity part of an [EndpointKey]. resolved is
// the request-effective proxy URL, nil for direct; "direct" keeps the
// field non-empty so absence still compares structurally.
func (c ProxyConfig) digest(resolved *url.URL) string {
	if resolved == nil {
		return "direct"
	}
	return fmt.Sprintf("%s;local=%t", resolved.Redacted(), c.ResolveLocally)
}

var h1Transport = transport.HTTP1{}

// ProxyURL resolves the proxy in effect for this request.
func (d *CoreDialer) ProxyURL(ctx context.Context, r *http.Request) (*url.URL, error) {
	raw := d.Proxy.URL
	if d.GetProxy != nil {
		p, err := d.GetProxy(ctx, r)
		if err != nil {
			return nil, err
		}
		raw = p
	}
	if raw == "" {
		return nil, nil
	}
	return url.Parse(raw)
}

// DialOverProxy creates a connection over an http/socks proxy.
// This part of logic may be reused when wrapping *[CoreDialer] into
// a new custom [Dialer]
func (d *CoreDialer) DialOverProxy(ctx context.Context, remote, proxy *url.URL) (net.Conn, error) {
	if proxy.Scheme != "http" && proxy.Scheme != "https" { // TODO: socks
		return nil, errors.New("unsupported proxy scheme:" + proxy.Scheme)
	}
	hp := Authority(proxy)

	conn, err := zeroDialer.DialContext(ctx, "tcp", hp)
	if err != nil {
		return nil, err
	}

	if proxy.Scheme == "https" {
		tlsCfg := d.Proxy.TLSConfig
		if tlsCfg == nil {
			tlsCfg = d.TLS.clientConfig(proxy.Hostname())
		}
		c := tls.Client(conn, tlsCfg)
		if err := c.HandshakeContext(ctx); err != nil {
			return nil, multierr.Append(err, conn.Close())
		}
		conn = c
	}

	addr, port := SplitHostPort(remote)
	if d.Proxy.ResolveLocally {
		dnsCfg := d.Resolve
		if d.Proxy.Resolve != nil {
			dnsCfg = d.Proxy.Resolve.Merge(d.Resolve)
		}

		if static, ok := dnsCfg.StaticHosts[addr]; ok {
			addr = static
		} else {
			ips, err := d.lookup(ctx, dnsCfg, addr)
			if err != nil {
				return nil, multierr.Append(err, conn.Close())
			}
			addr = dnsCfg.pick(ips).String()
		}
	}

	connReq := &http.PreparedRequest{
		Request:    &http.Request{Method: "CONNECT"},
		HeaderHost: remote.Host,
		U:          &url.URL{Path: net.JoinHostPort(addr, port)},
		GetBody:    func() (io.ReadCloser, error) { return http.NoBody, nil },
	}
	if auth := proxy.User.String(); auth != "" {
		connReq.Header = http.Header{
			"Proxy-Authorization": {"Basic " + base64.StdEncoding.EncodeToString([]byte(auth))},
		}
	}
	if err := h1Transport.Write(ctx, conn, connReq); err != nil {
		return nil, multierr.Append(err, conn.Close())
	}
	resp := &http.Response{}
	if err := h1Transport.Read(ctx, conn, connReq, resp); err != nil {
		return nil, multierr.Append(err, conn.Close())
	}
	if resp.StatusCode != 200 {
		s, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, multierr.Append(
			fmt.Errorf("proxy server returned error. status:%d, body:%s", resp.StatusCode, string(s)),
			conn.Close())
	}
	return conn, nil
}
