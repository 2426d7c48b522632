package dialer

import (
	"crypto/tls"
	"fmt"
	"strings"
)

// TLSOptions wraps the transport-security configuration. It is never
// absent on a request path: a disabled value still participates in
// endpoint identity.
type TLSOptions struct {
	// Disabled opts out of transport security even for "https" targets.
	Disabled bool
	// Config is the base [tls.Config]; nil means library defaults.
	// It is cloned before every handshake.
	Config *tls.Config
}

func (o TLSOptions) Enabled() bool { return !o.Disabled }

func (o TLSOptions) Clone() TLSOptions {
	return TLSOptions{Disabled: o.Disabled, Config: o.Config.Clone()}
}

// clientConfig prepares a per-handshake config. protos, when given,
// replaces the ALPN preference list: the negotiation list is owned by the
// caller, not by the base config.
func (o TLSOptions) clientConfig(serverName string, protos ...string) *tls.Config {
	cfg := o.Config.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = serverName
	}
	if len(protos) > 0 {
		cfg.NextProtos = protos
	}
	return cfg
}

// digest folds the fields that change negotiation or trust behavior into
// a string, giving [EndpointKey] structural TLS equality. Root pools are
// deliberately not fingerprinted; distinct trust stores with otherwise
// equal configs share protocol decisions, which is harmless.
func (o TLSOptions) digest() string {
	if o.Disabled {
		return "off"
	}
	c := o.Config
	if c == nil {
		return "tls"
	}
	return fmt.Sprintf("tls;sn=%s;skip=%t;min=%d;max=%d;alpn=%s;certs=%d",
		c.ServerName, c.InsecureSkipVerify, c.MinVersion, c.MaxVersion,
		strings.Join(c.NextProtos, ","), len(c.Certificates))
}
