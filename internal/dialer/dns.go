package dialer

import (
	"context"
	"math/rand"
	"net"
)

// PickStrategy selects one address among the resolved candidates.
type PickStrategy int

const (
	PickFirst PickStrategy = iota
	PickRandom
)

type ResolveConfig struct {
	CustomDNSServer string
	Network         string            // one of "ip4", "ip6", default is "ip"
	StaticHosts     map[string]string // resembles /etc/hosts
	Pick            PickStrategy      // how to choose among resolved addresses
}

func (c ResolveConfig) Clone() ResolveConfig {
	return c // maps are shared on purpose, they are read-only here
}

// Merge fills unset fields from base.
func (c ResolveConfig) Merge(base ResolveConfig) ResolveConfig {
	if c.CustomDNSServer == "" {
		c.CustomDNSServer = base.CustomDNSServer
	}
	if c.Network == "" {
		c.Network = base.Network
	}
	if c.StaticHosts == nil {
		c.StaticHosts = base.StaticHosts
	}
	return c
}

func (c ResolveConfig) pick(ips []net.IP) net.IP {
	if c.Pick == PickRandom {
		return ips[rand.Intn(len(ips))]
	}
	return ips[0]
}

// this type should not be used outside this file.
// prevents non-custom DNS server contexts to iterate through all keys
type dnsServerCtx struct {
	context.Context
	server string
}

var dnsServerCtxKey = &dnsServerCtx{nil, "dns-server"} // non-nil pointer to any object, definitely unique

func (c dnsServerCtx) Value(key interface{}) interface{} {
	if key == dnsServerCtxKey {
		return c.server
	}
	return c.Context.Value(key)
}

var customServerResolver = net.Resolver{
	PreferGo: true,
	Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
		if v, ok := ctx.Value(dnsServerCtxKey).(string); ok && v != "" {
			return zeroDialer.DialContext(ctx, network, v)
		}
		return zeroDialer.DialContext(ctx, network, address)
	},
}

var customDnsDialer = net.Dialer{
	Resolver: &customServerResolver,
}

func (d *CoreDialer) lookup(ctx context.Context, cfg ResolveConfig, host string) ([]net.IP, error) {
	network := cfg.Network
	if network == "" {
		network = "ip"
	}
	return d.LookupIPServer(ctx, network, host, cfg.CustomDNSServer)
}

// LookupIPServer performs DNS lookup for a host on a custom dns server,
// it calls [net.Resolver.LookupIP] with a Go Resolver behind the scenes.
// This part of logic may be reused when wrapping *[CoreDialer] into
// a new custom [Dialer]
func (d *CoreDialer) LookupIPServer(ctx context.Context, network, host, dns string) ([]net.IP, error) {
	return customServerResolver.LookupIP(dnsServerCtx{ctx, dns}, network, host)
}
