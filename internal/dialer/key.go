package dialer

import (
	"net"
	"net/url"

	"github.com/anyhttp/anyhttp/internal/http"
)

var defaultPorts = map[string]string{
	"http": "80", "https": "443", "socks": "1080",
}

// SplitHostPort splits the target of u, filling in the scheme's default
// port when the URL carries none.
func SplitHostPort(u *url.URL) (host, port string) {
	host, port = u.Host, defaultPorts[u.Scheme]
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	return
}

// Authority renders host:port with the port always explicit, so that
// "https://example.com" and "https://example.com:443" share one identity.
func Authority(u *url.URL) string {
	return net.JoinHostPort(SplitHostPort(u))
}

// EndpointKey identifies a remote origin for protocol-decision caching.
// Keys are rebuilt from configuration on every request, so every field is
// structural: two keys built from equal configuration compare equal. The
// TLS and Proxy digests are never empty, a disabled or absent config
// still contributes a distinguished value.
type EndpointKey struct {
	Scheme    string
	Authority string
	TLS       string
	Proxy     string
}

// EndpointKey computes the decision-cache identity of r's target.
// proxy is the request-effective proxy URL, nil for direct.
func (d *CoreDialer) EndpointKey(r *http.PreparedRequest, proxy *url.URL) EndpointKey {
	return EndpointKey{
		Scheme:    r.U.Scheme,
		Authority: Authority(r.U),
		TLS:       d.TLS.digest(),
		Proxy:     d.Proxy.digest(proxy),
	}
}

// ConnectionKey carries everything needed to open one transport-level
// connection to an endpoint. Unlike [EndpointKey] it is not a cache key:
// it holds the live configuration values, not digests.
type ConnectionKey struct {
	Scheme string
	Host   string
	Port   string

	TLS     TLSOptions
	Resolve ResolveConfig
	Proxy   *url.URL
}

func (d *CoreDialer) ConnectionKey(r *http.PreparedRequest, proxy *url.URL) ConnectionKey {
	host, port := SplitHostPort(r.U)
	return ConnectionKey{
		Scheme:  r.U.Scheme,
		Host:    host,
		Port:    port,
		TLS:     d.TLS,
		Resolve: d.Resolve,
		Proxy:   proxy,
	}
}
