package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
)

// PreparedRequest is a [Request] whose URL is resolved and whose body is
// rewindable. Providers consume prepared requests only; a Request is
// prepared exactly once per submission.
type PreparedRequest struct {
	*Request

	U          *url.URL
	GetBody    func() (io.ReadCloser, error)
	Header     http.Header
	HeaderHost string

	ContentLength int64

	// PreConn is a connection that was already established for this
	// request, typically promoted from protocol negotiation. Providers
	// must use it instead of dialing a new one when present.
	PreConn io.ReadWriteCloser
}

func (r *Request) Prepare() (*PreparedRequest, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, err
	}

	pr := &PreparedRequest{
		Request: r, U: u,
		Header:        r.Header.Clone(),
		HeaderHost:    u.Host,
		ContentLength: -1,
	}
	wantLength := pr.liftControlHeaders()
	if pr.HeaderHost == "" {
		return nil, url.InvalidHostError("empty host")
	}
	if err := pr.bindBody(); err != nil {
		return nil, err
	}
	if wantLength != -1 {
		if pr.ContentLength != -1 && pr.ContentLength != wantLength {
			return nil, errors.New("conflicting value between body size and content-length request header")
		}
		pr.ContentLength = wantLength
	}
	return pr, nil
}

// liftControlHeaders moves Host and Content-Length out of the user header
// map, they are written by the wire codecs, not copied verbatim.
// user defined values take priority over derived ones.
func (r *PreparedRequest) liftControlHeaders() (contentLength int64) {
	contentLength = -1
	for k, v := range r.Header {
		switch strings.ToLower(k) {
		case "host":
			if len(v) != 0 {
				r.HeaderHost = v[0]
			}
			delete(r.Header, k)
		case "content-length":
			if len(v) != 0 {
				if cl, err := strconv.ParseInt(v[0], 10, 64); err == nil {
					contentLength = cl
				}
			}
			delete(r.Header, k)
		}
	}
	return contentLength
}

// bindBody derives GetBody and ContentLength from the request body.
// sized in-memory bodies can be replayed, a plain reader can be
// consumed exactly once. should only be called once at [Prepare].
func (r *PreparedRequest) bindBody() error {
	switch b := r.Request.Body.(type) {
	case nil:
		r.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
	case string:
		r.ContentLength = int64(len(b))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(b)), nil
		}
	case []byte:
		r.ContentLength = int64(len(b))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		}
	case *bytes.Buffer: // below is taken from http.NewRequest
		r.ContentLength = int64(b.Len())
		buf := b.Bytes()
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(buf)), nil
		}
	case *bytes.Reader:
		r.ContentLength = int64(b.Len())
		snapshot := *b
		r.GetBody = func() (io.ReadCloser, error) {
			rd := snapshot
			return io.NopCloser(&rd), nil
		}
	case *strings.Reader:
		r.ContentLength = int64(b.Len())
		snapshot := *b
		r.GetBody = func() (io.ReadCloser, error) {
			rd := snapshot
			return io.NopCloser(&rd), nil
		}
	case io.Reader:
		if sizer, ok := b.(interface{ Size() int64 }); ok {
			r.ContentLength = sizer.Size()
		}
		cb, ok := b.(io.ReadCloser)
		if !ok {
			cb = io.NopCloser(b)
		}
		var once atomic.Bool
		r.GetBody = func() (io.ReadCloser, error) {
			if once.CompareAndSwap(false, true) {
				return cb, nil
			}
			return nil, http.ErrBodyReadAfterClose
		}
	default:
		return fmt.Errorf("unsupported body type: %T", r.Request.Body)
	}
	return nil
}
