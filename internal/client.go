package internal

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/anyhttp/anyhttp/internal/dialer"
	"github.com/anyhttp/anyhttp/internal/http"
	"github.com/anyhttp/anyhttp/internal/providers/h1"
	"github.com/anyhttp/anyhttp/internal/providers/h2"
	"github.com/anyhttp/anyhttp/internal/spi"
)

type PreparedRequest = http.PreparedRequest

type Handler = func(ctx context.Context, req *PreparedRequest) (*http.Response, error)
type Middleware func(next Handler) Handler

// DefaultDecisionCacheSize bounds how many endpoints keep a resolved
// protocol decision. Eviction only costs renegotiation on the next
// request to the evicted endpoint.
const DefaultDecisionCacheSize = 256

// negotiator is the probe surface dispatch depends on, kept narrow so
// tests can stand in for the network.
type negotiator interface {
	DialNegotiate(ctx context.Context, key dialer.ConnectionKey, protos []string) (*dialer.ProbeConn, error)
}

// Client dispatches each request to one of its registered protocol
// providers. The zero value is usable: HTTP/2 and HTTP/1.1 providers over
// a default core dialer, decisions cached per endpoint.
//
// Configuration (Use* methods) must happen before the first request;
// afterwards the provider registry and the dialer are read-only.
type Client struct {
	middlewares []Middleware

	providers []spi.Provider
	core      *dialer.CoreDialer
	dialer    dialer.Dialer
	logger    *zap.Logger
	cacheSize int

	initOnce  sync.Once
	initErr   error
	registry  *spi.Registry
	decisions *lru.Cache[dialer.EndpointKey, spi.Provider]
	negotiate negotiator
}

// Use appends mw to the end of the chain. The first "Use"d mw executes first
func (c *Client) Use(mws ...Middleware) {
	c.middlewares = append(c.middlewares, mws...)
}

// UseProviders replaces the default provider set. Order is priority
// order: it decides ranking tie-breaks and the ALPN preference list.
func (c *Client) UseProviders(ps ...spi.Provider) {
	c.providers = ps
}

// UseDialer wraps or replaces the dialer used by providers that dial per
// request. The core dialer (keys, probe) is unaffected.
func (c *Client) UseDialer(wrap func(dialer.Dialer) dialer.Dialer) {
	c.dialer = wrap(c.dialer)
}

// UseCoreDialer clones the current core dialer, hands it to configure and
// installs the result as the client dialer. The clone also becomes the
// configuration source for endpoint keys and the negotiation probe.
func (c *Client) UseCoreDialer(configure func(*dialer.CoreDialer) dialer.Dialer) {
	core := c.coreDialer().Clone()
	c.core = core
	c.dialer = configure(core)
}

func (c *Client) UseLogger(l *zap.Logger) {
	c.logger = l
}

// UseCacheSize bounds the decision cache. Only effective before the
// first request.
func (c *Client) UseCacheSize(n int) {
	c.cacheSize = n
}

func (c *Client) coreDialer() *dialer.CoreDialer {
	if c.core == nil {
		c.core = &dialer.CoreDialer{}
	}
	return c.core
}

func (c *Client) init() error {
	c.initOnce.Do(func() {
		core := c.coreDialer()
		if c.dialer == nil {
			c.dialer = core
		}
		if c.logger == nil {
			c.logger = zap.NewNop()
		}
		if c.negotiate == nil {
			c.negotiate = core
		}
		if len(c.providers) == 0 {
			c.providers = []spi.Provider{h2.New(core), h1.New(c.dialer)}
		}
		c.registry = spi.NewRegistry(c.providers...)
		size := c.cacheSize
		if size <= 0 {
			size = DefaultDecisionCacheSize
		}
		c.decisions, c.initErr = lru.New[dialer.EndpointKey, spi.Provider](size)
	})
	return c.initErr
}

func (c *Client) CtxDo(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.init(); err != nil {
		return nil, err
	}
	pr, err := req.Prepare()
	if err != nil {
		return nil, err
	}
	next := func(ctx context.Context, pr *PreparedRequest) (*http.Response, error) {
		exec, err := c.dispatch(ctx, pr)
		if err != nil {
			return nil, err
		}
		return exec.Execute(ctx)
	}
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		next = c.middlewares[i](next)
	}
	return next(ctx, pr)
}
