package response

import "github.com/spider-crawler/scrapekit/internal/headers"

// Option configures a response under construction.
type Option func(*params)

type params struct {
	url      *string
	status   int
	headers  *headers.Headers
	body     []byte
	text     *string
	flags    []string
	request  *Request
	encoding string
}

func newParams(opts []Option) *params {
	p := &params{status: 200}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithURL overrides the URL passed to a constructor. Replace uses it to
// produce a copy at a different URL.
func WithURL(u string) Option {
	return func(p *params) { p.url = &u }
}

// WithStatus sets the HTTP status code. The default is 200.
func WithStatus(status int) Option {
	return func(p *params) { p.status = status }
}

// WithHeaders sets the response headers. They are cloned.
func WithHeaders(h *headers.Headers) Option {
	return func(p *params) { p.headers = h }
}

// WithBody sets the raw body. It is copied, so later changes to b do not
// affect the response. nil means an empty body.
func WithBody(b []byte) Option {
	return func(p *params) {
		p.body = b
		p.text = nil
	}
}

// WithText sets a decoded body. Only text responses accept it, and only
// together with WithEncoding.
func WithText(s string) Option {
	return func(p *params) {
		p.text = &s
		p.body = nil
	}
}

// WithFlags sets opaque tags describing the response ("cached", "redirected").
func WithFlags(flags ...string) Option {
	return func(p *params) { p.flags = flags }
}

// WithRequest ties the response to the request that produced it.
func WithRequest(r *Request) Option {
	return func(p *params) { p.request = r }
}

// WithEncoding sets an explicit encoding that takes precedence over every
// other signal. Only text responses accept it.
func WithEncoding(name string) Option {
	return func(p *params) { p.encoding = name }
}
