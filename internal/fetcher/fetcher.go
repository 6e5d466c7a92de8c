package fetcher

import (
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/spider-crawler/scrapekit/internal/config"
	"github.com/spider-crawler/scrapekit/internal/headers"
	"github.com/spider-crawler/scrapekit/internal/response"
	"github.com/spider-crawler/scrapekit/internal/urlutil"
)

// ErrTooManyRedirects is returned when a redirect chain exceeds
// config.MaxRedirects.
var ErrTooManyRedirects = errors.New("too many redirects")

// Fetcher handles HTTP requests with redirect tracking.
type Fetcher struct {
	client    *http.Client
	config    *config.Config
	transport *http.Transport
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// NewFetcher creates a new HTTP fetcher. A nil logger logs to the console.
func NewFetcher(cfg *config.Config, logger *zerolog.Logger) *Fetcher {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       &tls.Config{},
		ForceAttemptHTTP2:     true,
	}

	var l zerolog.Logger
	if logger == nil {
		l = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	} else {
		l = *logger
	}

	f := &Fetcher{
		config:    cfg,
		transport: transport,
		log:       l.With().Str("component", "fetcher").Logger(),
	}

	// redirects are followed by hand to record the chain
	f.client = &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	if cfg.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return f
}

// Fetch downloads rawURL, following redirects according to the configured
// policy and retrying transient failures. The returned Result always holds
// a response; non-2xx statuses are not errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	start := time.Now()
	log := f.log.With().Str("url", rawURL).Logger()

	var lastErr error
	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := f.config.RetryBackoff << (attempt - 1)
			log.Debug().Int("attempt", attempt+1).Dur("backoff", backoff).Msg("Retrying fetch")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, retryable, err := f.fetchOnce(ctx, rawURL, attempt)
		if err != nil {
			lastErr = err
			if !retryable || ctx.Err() != nil {
				break
			}
			log.Warn().Err(err).Int("attempt", attempt+1).Msg("Fetch failed")
			continue
		}

		result.Attempts = attempt + 1
		result.ResponseTime = time.Since(start)

		status := result.Response.Status()
		if isRetryableStatus(status) && attempt < f.config.MaxRetries {
			log.Warn().Int("status", status).Int("attempt", attempt+1).Msg("Retryable status")
			continue
		}

		log.Debug().
			Int("status", status).
			Int("redirects", len(result.RedirectChain)).
			Dur("elapsed", result.ResponseTime).
			Msg("Fetched")
		return result, nil
	}

	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string, attempt int) (*Result, bool, error) {
	result := &Result{
		RequestURL:    rawURL,
		RedirectChain: make([]RedirectHop, 0),
	}

	currentURL := rawURL
	var redirectURLs []string

	for i := 0; i <= f.config.MaxRedirects; i++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, false, fmt.Errorf("rate limiter: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, currentURL, nil)
		if err != nil {
			return nil, false, fmt.Errorf("failed to create request: %w", err)
		}
		f.setRequestHeaders(req)

		reqStart := time.Now()
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, isRetryableError(err), categorizeError(err)
		}
		result.TTFB = time.Since(reqStart)

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			if location := resp.Header.Get("Location"); location != "" {
				redirectURL, err := urlutil.Join(currentURL, location)
				if err != nil {
					resp.Body.Close()
					return nil, false, fmt.Errorf("invalid redirect location: %w", err)
				}

				if f.shouldFollowRedirect(rawURL, redirectURL) {
					resp.Body.Close()
					result.RedirectChain = append(result.RedirectChain, RedirectHop{
						URL:        currentURL,
						StatusCode: resp.StatusCode,
						Location:   location,
					})
					f.log.Trace().Str("from", currentURL).Str("to", redirectURL).Msg("Following redirect")
					redirectURLs = append(redirectURLs, currentURL)
					currentURL = redirectURL
					continue
				}
			}
		}

		defer resp.Body.Close()

		body, truncated, err := f.readBody(resp)
		if err != nil {
			return nil, true, fmt.Errorf("failed to read body: %w", err)
		}
		if truncated {
			f.log.Warn().Str("url", currentURL).Int64("limit", f.config.MaxResponseSize).Msg("Response body truncated")
		}

		if resp.TLS != nil {
			result.TLSInfo = extractTLSInfo(resp.TLS)
		}

		var flags []string
		if len(redirectURLs) > 0 {
			flags = append(flags, FlagRedirected)
		}
		if truncated {
			flags = append(flags, FlagTruncated)
		}
		if attempt > 0 {
			flags = append(flags, FlagRetried)
		}

		request := response.NewRequest(rawURL)
		request.Headers = headers.FromHTTP(req.Header)
		request.Meta[MetaDownloadLatency] = result.TTFB.Seconds()
		if len(redirectURLs) > 0 {
			request.Meta[MetaRedirectURLs] = redirectURLs
		}

		msg, err := f.buildResponse(currentURL, resp, body, flags, request)
		if err != nil {
			return nil, false, err
		}
		result.Response = msg
		return result, false, nil
	}

	return nil, false, fmt.Errorf("%w: more than %d", ErrTooManyRedirects, f.config.MaxRedirects)
}

func (f *Fetcher) buildResponse(finalURL string, resp *http.Response, body []byte, flags []string, request *response.Request) (response.Message, error) {
	h := headers.FromHTTP(resp.Header)
	if isGzip(resp.Header) {
		// the body handed on is already decoded
		h.Del("Content-Encoding")
		h.Del("Content-Length")
	}

	opts := []response.Option{
		response.WithFlags(flags...),
		response.WithRequest(request),
	}
	if f.config.ForceEncoding != "" {
		if _, isText := response.KindFor(h.GetString("Content-Type"), body); isText {
			opts = append(opts, response.WithEncoding(f.config.ForceEncoding))
		}
	}

	msg, err := response.FromHTTP(finalURL, resp.StatusCode, h, body, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build response: %w", err)
	}
	return msg, nil
}

// setRequestHeaders sets common request headers.
func (f *Fetcher) setRequestHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip")
	for k, v := range f.config.CustomHeaders {
		req.Header.Set(k, v)
	}
}

// readBody reads the response body, stopping at MaxResponseSize.
func (f *Fetcher) readBody(resp *http.Response) ([]byte, bool, error) {
	var reader io.Reader = resp.Body

	if isGzip(resp.Header) {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, false, fmt.Errorf("gzip decode error: %w", err)
		}
		defer gzReader.Close()
		reader = gzReader
	}

	limit := f.config.MaxResponseSize
	if limit <= 0 {
		body, err := io.ReadAll(reader)
		return body, false, err
	}

	body, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(body)) > limit {
		return body[:limit], true, nil
	}
	return body, false, nil
}

func isGzip(h http.Header) bool {
	return strings.EqualFold(h.Get("Content-Encoding"), "gzip")
}

// shouldFollowRedirect checks if a redirect should be followed based on policy.
func (f *Fetcher) shouldFollowRedirect(originalURL, redirectURL string) bool {
	switch f.config.RedirectPolicy {
	case config.RedirectNoFollow:
		return false
	case config.RedirectFollowSame:
		return urlutil.IsSameHost(originalURL, redirectURL)
	default:
		return true
	}
}

// categorizeError labels network errors by kind.
func categorizeError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("timeout: %w", err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("DNS error: %w", err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("connection failed: %w", err)
	}

	if strings.Contains(err.Error(), "tls:") || strings.Contains(err.Error(), "certificate") {
		return fmt.Errorf("TLS error: %w", err)
	}

	return err
}

var retryablePatterns = []string{
	"connection reset",
	"connection refused",
	"no such host",
	"eof",
	"broken pipe",
}

func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// SetInsecureSkipVerify enables/disables TLS certificate verification.
func (f *Fetcher) SetInsecureSkipVerify(skip bool) {
	f.transport.TLSClientConfig.InsecureSkipVerify = skip
}

// Close closes the fetcher and releases resources.
func (f *Fetcher) Close() {
	f.transport.CloseIdleConnections()
}

func extractTLSInfo(state *tls.ConnectionState) *TLSInfo {
	info := &TLSInfo{
		Version:     tls.VersionName(state.Version),
		CipherSuite: tls.CipherSuiteName(state.CipherSuite),
		ServerName:  state.ServerName,
		IsValid:     true,
	}

	if len(state.PeerCertificates) > 0 {
		cert := state.PeerCertificates[0]
		info.Subject = cert.Subject.CommonName
		info.Issuer = cert.Issuer.CommonName
		info.NotBefore = cert.NotBefore
		info.NotAfter = cert.NotAfter

		now := time.Now()
		if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
			info.IsValid = false
			info.Error = "certificate expired or not yet valid"
		}
	}

	return info
}
