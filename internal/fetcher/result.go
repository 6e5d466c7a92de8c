// Package fetcher downloads URLs and turns the HTTP exchange into response
// values, tracking redirects and timings along the way.
package fetcher

import (
	"time"

	"github.com/spider-crawler/scrapekit/internal/response"
)

// Response flags set by the fetcher.
const (
	FlagRedirected = "redirected"
	FlagTruncated  = "truncated"
	FlagRetried    = "retried"
)

// Meta keys set on the originating request.
const (
	MetaRedirectURLs    = "redirect_urls"
	MetaDownloadLatency = "download_latency"
)

// Result is the outcome of fetching a URL.
type Result struct {
	// Original requested URL
	RequestURL string

	// Response is either a *response.Response or a *response.TextResponse,
	// depending on the Content-Type.
	Response response.Message

	// Redirect chain (list of URLs in redirect sequence)
	RedirectChain []RedirectHop

	// Time to first byte of the final hop
	TTFB time.Duration

	// Total time including redirects and retries
	ResponseTime time.Duration

	// Number of attempts made
	Attempts int

	// TLS/SSL information
	TLSInfo *TLSInfo
}

// RedirectHop represents a single redirect in the chain.
type RedirectHop struct {
	URL        string
	StatusCode int
	Location   string
}

// TLSInfo contains TLS/SSL certificate information.
type TLSInfo struct {
	Version     string
	CipherSuite string
	ServerName  string
	Issuer      string
	Subject     string
	NotBefore   time.Time
	NotAfter    time.Time
	IsValid     bool
	Error       string
}

// Text returns the response as a text response when it is one.
func (r *Result) Text() (*response.TextResponse, bool) {
	return response.AsText(r.Response)
}

// IsSuccess returns true if the response was successful (2xx).
func (r *Result) IsSuccess() bool {
	s := r.Response.Status()
	return s >= 200 && s < 300
}

// HasRedirects returns true if there were any redirects.
func (r *Result) HasRedirects() bool {
	return len(r.RedirectChain) > 0
}

// FinalURL returns the URL the body was read from.
func (r *Result) FinalURL() string {
	return r.Response.URL()
}
