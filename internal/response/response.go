package response

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/spider-crawler/scrapekit/internal/headers"
	"github.com/spider-crawler/scrapekit/internal/urlutil"
)

// Message is what every response variant exposes.
type Message interface {
	URL() string
	Status() int
	Headers() *headers.Headers
	Body() []byte
	Flags() []string
	Request() *Request
	Meta() (map[string]any, error)
	URLJoin(ref string) (string, error)
	String() string
}

// Response is a raw HTTP response. Its body is opaque bytes; use a
// TextResponse when the body should be decoded.
//
// A Response never changes after construction. Use Replace to derive a
// modified copy.
type Response struct {
	url     string
	status  int
	headers *headers.Headers
	body    []byte
	flags   []string
	request *Request
}

// New creates a raw response for url. It rejects WithText and WithEncoding:
// decoded bodies need a text response.
func New(rawURL string, opts ...Option) (*Response, error) {
	p := newParams(opts)
	if p.text != nil {
		return nil, fmt.Errorf("%w: response body must be bytes, use a text response for a decoded body", ErrConstruction)
	}
	if p.encoding != "" {
		return nil, fmt.Errorf("%w: raw responses carry no encoding", ErrConstruction)
	}
	return newResponse(rawURL, p)
}

func newResponse(rawURL string, p *params) (*Response, error) {
	if p.url != nil {
		rawURL = *p.url
	}
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("%w: invalid url: %w", ErrConstruction, err)
	}

	body := p.body
	if body == nil {
		body = []byte{}
	}

	return &Response{
		url:     rawURL,
		status:  p.status,
		headers: p.headers.Clone(),
		body:    bytes.Clone(body),
		flags:   append([]string{}, p.flags...),
		request: p.request,
	}, nil
}

// URL returns the response URL.
func (r *Response) URL() string { return r.url }

// Status returns the HTTP status code.
func (r *Response) Status() int { return r.status }

// Headers returns the response headers. Callers must not modify them.
func (r *Response) Headers() *headers.Headers { return r.headers }

// Body returns a copy of the raw body.
func (r *Response) Body() []byte { return bytes.Clone(r.body) }

// Len returns the body size in bytes.
func (r *Response) Len() int { return len(r.body) }

// Flags returns a copy of the response flags.
func (r *Response) Flags() []string { return append([]string{}, r.flags...) }

// Request returns the originating request, or nil.
func (r *Response) Request() *Request { return r.request }

// Meta returns the originating request's meta map. It fails with
// ErrUnavailable when the response is not tied to a request.
func (r *Response) Meta() (map[string]any, error) {
	if r.request == nil {
		return nil, fmt.Errorf("response meta %w: response is not tied to any request", ErrUnavailable)
	}
	return r.request.Meta, nil
}

// URLJoin resolves a possibly relative ref against the response URL.
func (r *Response) URLJoin(ref string) (string, error) {
	return urlutil.Join(r.url, ref)
}

// Replace returns a copy of r with opts applied on top of its current
// fields.
func (r *Response) Replace(opts ...Option) (*Response, error) {
	return New(r.url, append(r.options(), opts...)...)
}

func (r *Response) options() []Option {
	return []Option{
		WithStatus(r.status),
		WithHeaders(r.headers),
		WithBody(r.body),
		WithFlags(r.flags...),
		WithRequest(r.request),
	}
}

func (r *Response) String() string {
	return fmt.Sprintf("<%d %s>", r.status, r.url)
}
