package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/anyhttp/anyhttp/internal/http"
	"github.com/anyhttp/anyhttp/internal/transport/chunked"
)

// HTTP1 is the HTTP/1.1 wire codec. It is stateless, one value serves
// arbitrarily many connections.
type HTTP1 struct{}

func (t HTTP1) Write(ctx context.Context, w io.Writer, r *http.PreparedRequest) error {
	body, err := r.GetBody()
	if err != nil {
		return err
	}
	if body != nil {
		defer body.Close() // request body is ALWAYS closed
	}

	chunk := body != nil && body != http.NoBody && r.ContentLength == -1
	if err := t.writeHeader(w, r, chunk); err != nil {
		return err
	}
	if body == nil || body == http.NoBody {
		return nil
	}
	if chunk {
		cw := chunked.NewChunkedWriter(w)
		if _, err := io.Copy(cw, body); err != nil {
			return err
		}
		return cw.CloseWithTrailer(nil)
	}
	_, err = io.Copy(w, body)
	return err
}

// writeHeader writes the request line and header section, e.g.:
//
//	GET / HTTP/1.1\r\n
//	Host: www.google.com\r\n
//	X-Xx-Yy: cccccc\r\n
//	\r\n
func (t HTTP1) writeHeader(w io.Writer, r *http.PreparedRequest, chunk bool) error {
	header := bufio.NewWriter(w) // default bufsize is 4096

	header.WriteString(r.Method)
	header.WriteByte(' ')
	header.WriteString(r.U.RequestURI())
	header.WriteString(" HTTP/1.1\r\n")

	header.WriteString("Host: ")
	header.WriteString(r.HeaderHost)
	header.WriteString("\r\n")
	if chunk {
		header.WriteString("Transfer-Encoding: chunked\r\n")
	} else if r.ContentLength != -1 {
		header.WriteString("Content-Length: ")
		header.WriteString(strconv.FormatInt(r.ContentLength, 10))
		header.WriteString("\r\n")
	}
	for k, vv := range r.Header {
		for _, v := range vv {
			header.WriteString(k)
			header.WriteString(": ")
			header.WriteString(v)
			if _, err := header.WriteString("\r\n"); err != nil {
				return err
			}
		}
	}
	if _, err := header.WriteString("\r\n"); err != nil {
		return err
	}
	return header.Flush()
}

func (t HTTP1) Read(ctx context.Context, r io.Reader, req *http.PreparedRequest, resp *http.Response) (err error) {
	closer := io.NopCloser
	if cr, ok := r.(io.Closer); ok {
		closer = func(r io.Reader) io.ReadCloser { return bodyCloser{r, cr.Close} }
	}
	tp := textproto.NewReader(bufio.NewReader(r))

	line, err := tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	proto, status, ok := strings.Cut(line, " ")
	if !ok {
		return errors.New("malformed HTTP response")
	}
	resp.Proto = proto
	resp.Status = strings.TrimLeft(status, " ")

	statusCode, _, _ := strings.Cut(resp.Status, " ")
	if len(statusCode) != 3 {
		return errors.New("malformed HTTP status code " + statusCode)
	}
	resp.StatusCode, err = strconv.Atoi(statusCode)
	if err != nil || resp.StatusCode < 0 {
		return errors.New("malformed HTTP status code")
	}

	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	if hp, ok := mimeHeader["Pragma"]; ok && len(hp) > 0 && hp[0] == "no-cache" {
		if _, presentcc := mimeHeader["Cache-Control"]; !presentcc {
			mimeHeader["Cache-Control"] = []string{"no-cache"}
		}
	}
	resp.Header = http.Header(mimeHeader)

	return t.readTransfer(tp.R, req, resp, closer)
}

func (t HTTP1) readTransfer(r *bufio.Reader, req *http.PreparedRequest, resp *http.Response, closer func(io.Reader) io.ReadCloser) error {
	if noResponseBody(req, resp) {
		// the connection stays open and stays owned by the caller:
		// a CONNECT tunnel is only beginning here
		resp.Body = http.NoBody
		return nil
	}

	contentLens := resp.Header["Content-Length"]

	// Hardening against HTTP request smuggling, taken from standard library
	if len(contentLens) > 1 {
		// Per RFC 7230 Section 3.3.2
		first := textproto.TrimString(contentLens[0])
		for _, ct := range contentLens[1:] {
			if first != textproto.TrimString(ct) {
				return fmt.Errorf("http: message cannot contain multiple Content-Length headers; got %q", contentLens)
			}
		}

		resp.Header.Del("Content-Length")
		resp.Header.Add("Content-Length", first)
		contentLens = resp.Header["Content-Length"]
	}

	cl := int64(-1)
	if len(contentLens) > 0 {
		if n, err := strconv.ParseUint(contentLens[0], 10, 63); err == nil {
			cl = int64(n)
		}
	}

	if resp.Header.Get("Transfer-Encoding") == "chunked" {
		resp.Body = closer(chunked.NewChunkedReader(r))
		return nil
	}

	resp.Header.Del("Content-Length")
	resp.ContentLength = cl
	switch {
	case cl > 0:
		resp.Body = closer(io.LimitReader(r, cl))
	case cl == 0:
		// empty body, connection disposal is the caller's call
		resp.Body = http.NoBody
	default:
		// unknown length, body is delimited by connection close
		resp.Body = closer(r)
	}
	return nil
}

// noResponseBody reports message types that never carry a body regardless
// of framing headers, per RFC 9112 section 6.3.
func noResponseBody(req *http.PreparedRequest, resp *http.Response) bool {
	if req != nil && (req.Method == "HEAD" || (req.Method == "CONNECT" && resp.StatusCode/100 == 2)) {
		return true
	}
	return resp.StatusCode/100 == 1 || resp.StatusCode == 204 || resp.StatusCode == 304
}

type bodyCloser struct {
	io.Reader
	close func() error
}

func (b bodyCloser) Close() error { return b.close() }
