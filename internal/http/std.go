package http

import (
	"context"
	"net/http"
)

// Std converts the prepared request into a *[net/http.Request] for
// providers whose transports round-trip standard requests (HTTP/2 and
// HTTP/3). The returned request shares the rewindable body.
func (r *PreparedRequest) Std(ctx context.Context) (*http.Request, error) {
	body, err := r.GetBody()
	if err != nil {
		return nil, err
	}
	req := &http.Request{
		Method:        r.Method,
		URL:           r.U,
		Host:          r.HeaderHost,
		Header:        r.Header,
		Body:          body,
		GetBody:       r.GetBody,
		ContentLength: r.ContentLength,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	return req.WithContext(ctx), nil
}

// ResponseFromStd adapts a standard response into the module's model.
func ResponseFromStd(resp *http.Response) *Response {
	return &Response{
		Proto:         resp.Proto,
		Status:        resp.Status,
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}
}
