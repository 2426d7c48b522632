package spi

// Registry holds the ordered provider list of one client. Registration
// order is the priority order and is load-bearing: the dispatch tie-break
// rules and the ALPN preference list both derive from it. Read-only after
// construction; returned slices must not be modified by callers.
type Registry struct {
	order []Provider
	byID  map[string]Provider
	ids   []string

	alpn    []Provider
	alpnIDs []string
}

// NewRegistry builds a registry from providers in priority order.
// A duplicate identifier keeps the first registration.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{byID: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		id := p.ID()
		if _, dup := r.byID[id]; dup {
			continue
		}
		r.byID[id] = p
		r.order = append(r.order, p)
		r.ids = append(r.ids, id)
		if n, ok := p.(Negotiable); ok && n.Negotiable() {
			r.alpn = append(r.alpn, p)
			r.alpnIDs = append(r.alpnIDs, id)
		}
	}
	return r
}

func (r *Registry) Lookup(id string) (Provider, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// All returns every provider in registration order.
func (r *Registry) All() []Provider { return r.order }

// IDs returns every protocol identifier in registration order.
func (r *Registry) IDs() []string { return r.ids }

// Negotiable returns the providers reachable through TCP-level protocol
// negotiation and their identifiers, both in registration order.
func (r *Registry) Negotiable() ([]Provider, []string) { return r.alpn, r.alpnIDs }
