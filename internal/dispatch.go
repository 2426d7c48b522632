package internal

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/anyhttp/anyhttp/internal/dialer"
	"github.com/anyhttp/anyhttp/internal/spi"
)

// dispatch resolves which provider executes pr and binds the request to
// it. One call ranks each provider at most once; decisions made with
// confidence are cached per endpoint, uncertain ones are not.
func (c *Client) dispatch(ctx context.Context, pr *PreparedRequest) (spi.Executable, error) {
	// an explicit pin is authoritative: no cache, no fallback
	if id := pr.Request.Protocol; id != "" {
		p, ok := c.registry.Lookup(id)
		if !ok {
			return nil, &UnknownProtocolError{Requested: id, Available: c.registry.IDs()}
		}
		return p.NewExecutable(pr), nil
	}

	proxy, err := c.core.ProxyURL(ctx, pr.Request)
	if err != nil {
		return nil, err
	}
	key := c.core.EndpointKey(pr, proxy)
	if p, ok := c.decisions.Get(key); ok {
		// this endpoint already negotiated a protocol version, reuse it
		return p.NewExecutable(pr), nil
	}

	// single pass over the list, in registration order to maintain the
	// weighted ordering. remember only the first candidate per level.
	var compatible, unknown spi.Provider
	for _, p := range c.registry.All() {
		switch p.Rank(pr) {
		case spi.Supported:
			c.decisions.Add(key, p)
			return p.NewExecutable(pr), nil
		case spi.Compatible:
			if compatible == nil {
				compatible = p
			}
		case spi.Unknown:
			if unknown == nil {
				unknown = p
			}
		}
	}

	if eligible, ids := c.registry.Negotiable(); pr.U.Scheme == "https" && c.core.TLS.Enabled() && len(eligible) > 0 {
		exec, err := c.negotiateExecutable(ctx, pr, proxy, key, ids)
		if err != nil {
			return nil, err
		}
		if exec != nil {
			return exec, nil
		}
		// negotiation didn't resolve anything usable, fall through
	}

	if compatible != nil {
		c.decisions.Add(key, compatible)
		return compatible.NewExecutable(pr), nil
	}
	if unknown != nil {
		// uncertainty must be re-evaluated per request, never cached
		return unknown.NewExecutable(pr), nil
	}
	return nil, &NoProviderError{URI: pr.U.String(), Available: c.registry.IDs()}
}

// negotiateExecutable opens a temporary connection whose sole purpose is
// ALPN. The connection is promoted into the request on success and closed
// on every other path; (nil, nil) means "proceed as if not attempted".
func (c *Client) negotiateExecutable(ctx context.Context, pr *PreparedRequest, proxy *url.URL, key dialer.EndpointKey, ids []string) (spi.Executable, error) {
	conn, err := c.negotiate.DialNegotiate(ctx, c.core.ConnectionKey(pr, proxy), ids)
	if err != nil {
		return nil, err
	}
	promoted := false
	defer func() {
		if !promoted {
			conn.Close()
		}
	}()

	proto, ok := conn.Negotiated()
	if !ok {
		c.logger.Debug("attempted to negotiate a protocol, but did not get one back, ignoring",
			zap.Strings("offered", ids))
		return nil, nil
	}
	p, ok := c.registry.Lookup(proto)
	if !ok {
		// we have negotiated a protocol we do not support? this is strange
		c.logger.Debug("negotiated a protocol with no registered provider, ignoring",
			zap.String("negotiated", proto), zap.Strings("offered", ids))
		return nil, nil
	}
	c.decisions.Add(key, p)
	pr.PreConn = conn.Conn
	promoted = true
	return p.NewExecutable(pr), nil
}
