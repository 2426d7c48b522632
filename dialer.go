package anyhttp

import (
	"github.com/anyhttp/anyhttp/internal/dialer"
)

type Dialer = dialer.Dialer
type CoreDialer = dialer.CoreDialer

type TLSOptions = dialer.TLSOptions
type ProxyConfig = dialer.ProxyConfig
type ResolveConfig = dialer.ResolveConfig

type EndpointKey = dialer.EndpointKey
type ConnectionKey = dialer.ConnectionKey
