// package transport contains implementations to requirements on *message
// syntaxes* defined by http related RFCs.
//
// only the HTTP/1.1 syntax (RFC9112) lives here. the multiplexed binary
// protocols are provided through their ecosystem implementations
// (golang.org/x/net/http2, quic-go http3) by the provider packages.
//
// net/http components are reused on the "semantics" part
// ([net/url.URL], [net/http.Header], etc.)
package transport
