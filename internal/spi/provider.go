// package spi defines the surface a wire protocol implementation has to
// expose to be dispatched to by the client. Implementations are registered
// once at client construction and never mutated afterwards.
package spi

import (
	"context"

	"github.com/anyhttp/anyhttp/internal/http"
)

// SupportLevel is the confidence a provider reports for a request.
// The zero value means the provider cannot handle the request at all.
type SupportLevel int

const (
	NotSupported SupportLevel = iota
	// Unknown means the provider cannot tell without actually
	// negotiating a protocol on the wire.
	Unknown
	// Compatible means the provider would work, but is not the
	// authoritative match for the request.
	Compatible
	// Supported is an unconditional match.
	Supported
)

func (l SupportLevel) String() string {
	switch l {
	case Supported:
		return "supported"
	case Compatible:
		return "compatible"
	case Unknown:
		return "unknown"
	default:
		return "not-supported"
	}
}

// Executable is a request bound to one provider's transport, ready to run.
type Executable interface {
	Execute(ctx context.Context) (*http.Response, error)
}

type Provider interface {
	// ID is the stable protocol identifier, doubling as the ALPN
	// identifier for providers that negotiate over TCP.
	ID() string
	// Rank reports how confidently the provider can execute r.
	// It must be side-effect free.
	Rank(r *http.PreparedRequest) SupportLevel
	// NewExecutable binds r to this provider's transport. It must honor
	// r.PreConn when set.
	NewExecutable(r *http.PreparedRequest) Executable
}

// Negotiable is implemented by providers whose protocol can be selected
// through ALPN on a plain TLS-over-TCP connection. Providers on other
// transports (e.g. QUIC) simply don't implement it, or return false.
type Negotiable interface {
	Negotiable() bool
}
