package http

import (
	"io"
	"net/http"
)

type Request struct {
	Method string
	URL    string
	Body   interface{}
	Header http.Header

	// Protocol pins this single request to the provider registered under
	// the given identifier, e.g. "h2". When set, no negotiation happens
	// and the request fails if no such provider is registered.
	// Empty means the client is free to pick.
	Protocol string
}

type Response struct {
	Proto      string
	Status     string
	StatusCode int
	Header     http.Header

	ContentLength int64
	Body          io.ReadCloser
}
