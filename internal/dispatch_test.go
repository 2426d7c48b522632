package internal

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyhttp/anyhttp/internal/dialer"
	"github.com/anyhttp/anyhttp/internal/http"
	"github.com/anyhttp/anyhttp/internal/spi"
)

type fakeExec struct {
	p  *fakeProvider
	pr *PreparedRequest
}

func (e *fakeExec) Execute(ctx context.Context) (*http.Response, error) {
	return &http.Response{StatusCode: 200, Body: http.NoBody}, nil
}

type fakeProvider struct {
	id    string
	level spi.SupportLevel
	alpn  bool
	ranks atomic.Int32
}

func (p *fakeProvider) ID() string       { return p.id }
func (p *fakeProvider) Negotiable() bool { return p.alpn }

func (p *fakeProvider) Rank(r *http.PreparedRequest) spi.SupportLevel {
	p.ranks.Add(1)
	return p.level
}

func (p *fakeProvider) NewExecutable(r *http.PreparedRequest) spi.Executable {
	return &fakeExec{p: p, pr: r}
}

type recordedConn struct {
	net.Conn
	closed atomic.Bool
}

func (c *recordedConn) Close() error {
	c.closed.Store(true)
	return nil
}

type fakeNegotiator struct {
	proto string
	err   error

	calls   int
	offered []string
	conn    *recordedConn
}

func (f *fakeNegotiator) DialNegotiate(ctx context.Context, key dialer.ConnectionKey, protos []string) (*dialer.ProbeConn, error) {
	f.calls++
	f.offered = protos
	if f.err != nil {
		return nil, f.err
	}
	f.conn = &recordedConn{}
	return &dialer.ProbeConn{Conn: f.conn, Proto: f.proto}, nil
}

func newTestClient(t *testing.T, neg negotiator, ps ...spi.Provider) *Client {
	t.Helper()
	c := &Client{}
	c.UseProviders(ps...)
	c.negotiate = neg
	require.NoError(t, c.init())
	return c
}

func prep(t *testing.T, rawurl string) *PreparedRequest {
	t.Helper()
	pr, err := (&http.Request{Method: "GET", URL: rawurl}).Prepare()
	require.NoError(t, err)
	return pr
}

func chosen(t *testing.T, exec spi.Executable) *fakeProvider {
	t.Helper()
	fe, ok := exec.(*fakeExec)
	require.True(t, ok, "executable is not bound to a fake provider")
	return fe.p
}

func TestExplicitPinBypassesEverything(t *testing.T) {
	h1 := &fakeProvider{id: "http/1.1", level: spi.Compatible}
	h2 := &fakeProvider{id: "h2", level: spi.Supported}
	c := newTestClient(t, nil, h2, h1)

	pr := prep(t, "http://example.com/")
	pr.Request.Protocol = "http/1.1"

	exec, err := c.dispatch(context.Background(), pr)
	require.NoError(t, err)
	assert.Same(t, h1, chosen(t, exec))
	assert.Zero(t, h1.ranks.Load(), "pinned dispatch must not rank")
	assert.Zero(t, h2.ranks.Load())
	assert.Zero(t, c.decisions.Len(), "pinned dispatch must not touch the cache")
}

func TestExplicitPinUnregistered(t *testing.T) {
	h1 := &fakeProvider{id: "h1", level: spi.Supported}
	h2 := &fakeProvider{id: "h2", level: spi.Supported}
	c := newTestClient(t, nil, h1, h2)

	pr := prep(t, "http://example.com/")
	pr.Request.Protocol = "h9"

	_, err := c.dispatch(context.Background(), pr)
	var unknown *UnknownProtocolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "h9", unknown.Requested)
	assert.Equal(t, []string{"h1", "h2"}, unknown.Available)
	assert.Contains(t, err.Error(), "h9")
	assert.Zero(t, c.decisions.Len())
	assert.Zero(t, h1.ranks.Load())
}

// Scenario A: a later SUPPORTED provider beats an earlier COMPATIBLE one.
func TestLaterSupportedWinsOverEarlierCompatible(t *testing.T) {
	h2 := &fakeProvider{id: "h2", level: spi.Compatible}
	h1 := &fakeProvider{id: "h1", level: spi.Supported}
	c := newTestClient(t, nil, h2, h1)

	pr := prep(t, "http://example.com/")
	exec, err := c.dispatch(context.Background(), pr)
	require.NoError(t, err)
	assert.Same(t, h1, chosen(t, exec))

	key := c.core.EndpointKey(pr, nil)
	got, ok := c.decisions.Get(key)
	require.True(t, ok)
	assert.Same(t, spi.Provider(h1), got)
}

// Scenario B: the second request to a decided endpoint never ranks again.
func TestDecisionIsCached(t *testing.T) {
	h1 := &fakeProvider{id: "h1", level: spi.Supported}
	c := newTestClient(t, nil, h1)

	for i := 0; i < 3; i++ {
		pr := prep(t, "http://example.com/some/path")
		exec, err := c.dispatch(context.Background(), pr)
		require.NoError(t, err)
		assert.Same(t, h1, chosen(t, exec))
	}
	assert.EqualValues(t, 1, h1.ranks.Load(), "ranking must run once per endpoint")
}

func TestScanShortCircuitsOnSupported(t *testing.T) {
	a := &fakeProvider{id: "a", level: spi.Compatible}
	b := &fakeProvider{id: "b", level: spi.Supported}
	z := &fakeProvider{id: "z", level: spi.Supported}
	c := newTestClient(t, nil, a, b, z)

	exec, err := c.dispatch(context.Background(), prep(t, "http://example.com/"))
	require.NoError(t, err)
	assert.Same(t, b, chosen(t, exec))
	assert.Zero(t, z.ranks.Load(), "providers after the first SUPPORTED must not be ranked")
	assert.EqualValues(t, 1, a.ranks.Load())
}

func TestFirstWithinLevelWins(t *testing.T) {
	t.Run("compatible", func(t *testing.T) {
		a := &fakeProvider{id: "a", level: spi.Compatible}
		b := &fakeProvider{id: "b", level: spi.Compatible}
		c := newTestClient(t, nil, a, b)

		pr := prep(t, "http://example.com/")
		exec, err := c.dispatch(context.Background(), pr)
		require.NoError(t, err)
		assert.Same(t, a, chosen(t, exec))

		got, ok := c.decisions.Get(c.core.EndpointKey(pr, nil))
		require.True(t, ok, "compatible decisions are cached")
		assert.Same(t, spi.Provider(a), got)
	})
	t.Run("unknown", func(t *testing.T) {
		a := &fakeProvider{id: "a", level: spi.Unknown}
		b := &fakeProvider{id: "b", level: spi.Unknown}
		c := newTestClient(t, nil, a, b)

		exec, err := c.dispatch(context.Background(), prep(t, "http://example.com/"))
		require.NoError(t, err)
		assert.Same(t, a, chosen(t, exec))
		assert.Zero(t, c.decisions.Len(), "unknown decisions are never cached")
	})
}

func TestUnknownIsRankedEveryTime(t *testing.T) {
	u := &fakeProvider{id: "u", level: spi.Unknown}
	c := newTestClient(t, nil, u)

	for i := 0; i < 3; i++ {
		_, err := c.dispatch(context.Background(), prep(t, "http://example.com/"))
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, u.ranks.Load())
	assert.Zero(t, c.decisions.Len())
}

func TestNoWillingProvider(t *testing.T) {
	a := &fakeProvider{id: "a", level: spi.NotSupported}
	c := newTestClient(t, nil, a)

	_, err := c.dispatch(context.Background(), prep(t, "http://example.com/"))
	var nope *NoProviderError
	require.ErrorAs(t, err, &nope)
	assert.Equal(t, []string{"a"}, nope.Available)
	assert.Contains(t, nope.URI, "example.com")
	assert.Zero(t, c.decisions.Len())
}

// Scenario C: negotiation resolves a registered provider, the probe
// connection is promoted into the request instead of being reopened.
func TestNegotiationPromotesProbeConnection(t *testing.T) {
	h2 := &fakeProvider{id: "h2", level: spi.Unknown, alpn: true}
	h1 := &fakeProvider{id: "http/1.1", level: spi.Compatible, alpn: true}
	neg := &fakeNegotiator{proto: "h2"}
	c := newTestClient(t, neg, h2, h1)

	pr := prep(t, "https://example.com/")
	exec, err := c.dispatch(context.Background(), pr)
	require.NoError(t, err)
	assert.Same(t, h2, chosen(t, exec))

	assert.Equal(t, 1, neg.calls)
	assert.Equal(t, []string{"h2", "http/1.1"}, neg.offered, "offer list follows registration order")
	require.NotNil(t, neg.conn)
	assert.False(t, neg.conn.closed.Load(), "promoted probe connection must stay open")
	assert.Same(t, neg.conn, pr.PreConn.(*recordedConn))

	got, ok := c.decisions.Get(c.core.EndpointKey(pr, nil))
	require.True(t, ok)
	assert.Same(t, spi.Provider(h2), got)
}

// Scenario D: a negotiated identifier nobody registered is treated as if
// no negotiation happened.
func TestNegotiatedUnregisteredFallsThrough(t *testing.T) {
	t.Run("with compatible fallback", func(t *testing.T) {
		h2 := &fakeProvider{id: "h2", level: spi.Unknown, alpn: true}
		h1 := &fakeProvider{id: "http/1.1", level: spi.Compatible, alpn: true}
		neg := &fakeNegotiator{proto: "h3x"}
		c := newTestClient(t, neg, h2, h1)

		pr := prep(t, "https://example.com/")
		exec, err := c.dispatch(context.Background(), pr)
		require.NoError(t, err)
		assert.Same(t, h1, chosen(t, exec))
		assert.True(t, neg.conn.closed.Load(), "mismatched probe connection must be closed")
		assert.Nil(t, pr.PreConn)

		got, ok := c.decisions.Get(c.core.EndpointKey(pr, nil))
		require.True(t, ok, "the compatible fallback is cached")
		assert.Same(t, spi.Provider(h1), got)
	})
	t.Run("without fallback", func(t *testing.T) {
		h2 := &fakeProvider{id: "h2", level: spi.NotSupported, alpn: true}
		h1 := &fakeProvider{id: "h1", level: spi.NotSupported, alpn: true}
		neg := &fakeNegotiator{proto: "h3x"}
		c := newTestClient(t, neg, h2, h1)

		_, err := c.dispatch(context.Background(), prep(t, "https://example.com/"))
		var nope *NoProviderError
		require.ErrorAs(t, err, &nope)
		assert.Equal(t, []string{"h2", "h1"}, nope.Available)
		assert.True(t, neg.conn.closed.Load())
		assert.Zero(t, c.decisions.Len())
	})
}

func TestNoNegotiationFallsThrough(t *testing.T) {
	h2 := &fakeProvider{id: "h2", level: spi.Unknown, alpn: true}
	h1 := &fakeProvider{id: "http/1.1", level: spi.Compatible, alpn: true}
	neg := &fakeNegotiator{proto: ""}
	c := newTestClient(t, neg, h2, h1)

	exec, err := c.dispatch(context.Background(), prep(t, "https://example.com/"))
	require.NoError(t, err)
	assert.Same(t, h1, chosen(t, exec))
	assert.True(t, neg.conn.closed.Load())
}

func TestProbeTransportErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	h2 := &fakeProvider{id: "h2", level: spi.Unknown, alpn: true}
	neg := &fakeNegotiator{err: boom}
	c := newTestClient(t, neg, h2)

	_, err := c.dispatch(context.Background(), prep(t, "https://example.com/"))
	require.ErrorIs(t, err, boom)
	assert.Zero(t, c.decisions.Len(), "a failed dispatch never writes a cache entry")
}

func TestNoProbeWithoutTLS(t *testing.T) {
	t.Run("plaintext scheme", func(t *testing.T) {
		h2 := &fakeProvider{id: "h2", level: spi.Unknown, alpn: true}
		neg := &fakeNegotiator{proto: "h2"}
		c := newTestClient(t, neg, h2)

		_, err := c.dispatch(context.Background(), prep(t, "http://example.com/"))
		require.NoError(t, err) // unknown candidate is still usable
		assert.Zero(t, neg.calls)
	})
	t.Run("tls disabled", func(t *testing.T) {
		h2 := &fakeProvider{id: "h2", level: spi.Unknown, alpn: true}
		neg := &fakeNegotiator{proto: "h2"}
		c := newTestClient(t, neg, h2)
		c.core.TLS.Disabled = true

		_, err := c.dispatch(context.Background(), prep(t, "https://example.com/"))
		require.NoError(t, err)
		assert.Zero(t, neg.calls)
	})
	t.Run("no negotiable provider", func(t *testing.T) {
		h3 := &fakeProvider{id: "h3", level: spi.Unknown} // not ALPN eligible
		neg := &fakeNegotiator{proto: "h3"}
		c := newTestClient(t, neg, h3)

		_, err := c.dispatch(context.Background(), prep(t, "https://example.com/"))
		require.NoError(t, err)
		assert.Zero(t, neg.calls)
	})
}

func TestCacheEvictionForcesRenegotiation(t *testing.T) {
	h1 := &fakeProvider{id: "h1", level: spi.Supported}
	c := &Client{}
	c.UseProviders(h1)
	c.UseCacheSize(1)
	require.NoError(t, c.init())

	dispatch := func(url string) {
		_, err := c.dispatch(context.Background(), prep(t, url))
		require.NoError(t, err)
	}
	dispatch("http://one.example.com/")
	dispatch("http://two.example.com/") // evicts one.example.com
	dispatch("http://one.example.com/")
	assert.EqualValues(t, 3, h1.ranks.Load())
	assert.Equal(t, 1, c.decisions.Len())
}

func TestConcurrentDispatchSharesOneDecision(t *testing.T) {
	h1 := &fakeProvider{id: "h1", level: spi.Supported}
	c := newTestClient(t, nil, h1)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			exec, err := c.dispatch(context.Background(), prep(t, "http://example.com/"))
			assert.NoError(t, err)
			assert.Same(t, h1, chosen(t, exec))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.decisions.Len())
	// redundant concurrent scans are tolerated, but never more than one
	// per in-flight request
	assert.LessOrEqual(t, h1.ranks.Load(), int32(16))
}
