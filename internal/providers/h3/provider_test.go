package h3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyhttp/anyhttp/internal/http"
	"github.com/anyhttp/anyhttp/internal/spi"
)

func rank(t *testing.T, p *Provider, rawurl string) spi.SupportLevel {
	t.Helper()
	pr, err := (&http.Request{Method: "GET", URL: rawurl}).Prepare()
	require.NoError(t, err)
	return p.Rank(pr)
}

func TestRankClaimsOnlyPinnedOrigins(t *testing.T) {
	p := New(nil, "example.com:443", "alt.example.com:8443")

	assert.Equal(t, spi.Supported, rank(t, p, "https://example.com/"))
	assert.Equal(t, spi.Supported, rank(t, p, "https://example.com:443/x"))
	assert.Equal(t, spi.Supported, rank(t, p, "https://alt.example.com:8443/"))

	assert.Equal(t, spi.NotSupported, rank(t, p, "https://other.example.com/"))
	assert.Equal(t, spi.NotSupported, rank(t, p, "https://example.com:8443/"))
	// QUIC is TLS-only
	assert.Equal(t, spi.NotSupported, rank(t, p, "http://example.com/"))
}

func TestIdentity(t *testing.T) {
	p := New(nil)
	assert.Equal(t, "h3", p.ID())
	// UDP transport cannot come out of a TCP negotiation probe
	assert.False(t, p.Negotiable())
	assert.NoError(t, p.Close())
}
