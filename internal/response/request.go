// Package response implements the HTTP response objects handed to scraping
// code: raw byte responses, and text responses that work out their own
// character encoding and expose decoded text and selectors.
package response

import "github.com/spider-crawler/scrapekit/internal/headers"

// Request is the request a response was produced for.
type Request struct {
	URL     string
	Method  string
	Headers *headers.Headers

	// Meta carries arbitrary data from the code that scheduled the request
	// to the code that handles its response.
	Meta map[string]any
}

// NewRequest creates a GET request with empty meta.
func NewRequest(url string) *Request {
	return &Request{
		URL:     url,
		Method:  "GET",
		Headers: headers.New(),
		Meta:    make(map[string]any),
	}
}
