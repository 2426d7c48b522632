package dialer

import (
	"context"
	"io"
	"net"

	"github.com/anyhttp/anyhttp/internal/http"
	"github.com/anyhttp/anyhttp/internal/netpool"
)

// Dialers handle pretty much everything related to the actual connection,
// including setting a proxy for each request, setting resolvers, etc.
type Dialer interface {
	// Dial returns an abstract stream for writing the request and reading
	// responses. the implementation of this stream could be specific to
	// protocols.
	Dial(ctx context.Context, r *http.PreparedRequest) (io.ReadWriteCloser, error)
	Unwrap() Dialer
}

// CoreDialer opens connections for providers that consume whole
// connections and runs the protocol-negotiation probe for the dispatcher.
// The zero value is usable and dials without proxy, pooling or custom
// resolution.
type CoreDialer struct {
	TLS     TLSOptions
	Resolve ResolveConfig
	Proxy   ProxyConfig

	// Pool recycles idle connections per endpoint. nil disables pooling.
	Pool *netpool.Group

	// GetProxy overrides Proxy.URL per request when set. Returning an
	// empty string means direct.
	GetProxy func(ctx context.Context, r *http.Request) (string, error)
}

func (d *CoreDialer) Clone() *CoreDialer {
	return &CoreDialer{
		TLS:      d.TLS.Clone(),
		Resolve:  d.Resolve.Clone(),
		Proxy:    d.Proxy.Clone(),
		Pool:     d.Pool.NewEmpty(),
		GetProxy: d.GetProxy,
	}
}

func (d *CoreDialer) Unwrap() Dialer { return nil }

var zeroDialer net.Dialer
