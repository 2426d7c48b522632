package anyhttp

import (
	"net/http"

	"github.com/anyhttp/anyhttp/internal"
	ihttp "github.com/anyhttp/anyhttp/internal/http"
)

type Client = internal.Client
type Header = http.Header
type Request = ihttp.Request
type PreparedRequest = ihttp.PreparedRequest
type Response = ihttp.Response

type Handler = internal.Handler
type Middleware = internal.Middleware

type UnknownProtocolError = internal.UnknownProtocolError
type NoProviderError = internal.NoProviderError
