package anyhttp

import (
	"crypto/tls"

	"github.com/anyhttp/anyhttp/internal/providers/h1"
	"github.com/anyhttp/anyhttp/internal/providers/h2"
	"github.com/anyhttp/anyhttp/internal/providers/h3"
	"github.com/anyhttp/anyhttp/internal/spi"
)

type Provider = spi.Provider
type Executable = spi.Executable
type SupportLevel = spi.SupportLevel

const (
	NotSupported = spi.NotSupported
	Unknown      = spi.Unknown
	Compatible   = spi.Compatible
	Supported    = spi.Supported
)

// HTTP1Provider builds the text HTTP/1.1 provider on top of d.
func HTTP1Provider(d Dialer) Provider { return h1.New(d) }

// HTTP2Provider builds the HTTP/2 provider on top of core.
func HTTP2Provider(core *CoreDialer) Provider { return h2.New(core) }

// HTTP3Provider builds the HTTP/3 provider claiming the given origins
// ("host:port" authorities with the port explicit).
func HTTP3Provider(tlsCfg *tls.Config, origins ...string) Provider {
	return h3.New(tlsCfg, origins...)
}
