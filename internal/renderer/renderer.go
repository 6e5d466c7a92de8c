// Package renderer loads pages in headless Chromium and turns the rendered
// DOM into text responses.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/spider-crawler/scrapekit/internal/config"
	"github.com/spider-crawler/scrapekit/internal/headers"
	"github.com/spider-crawler/scrapekit/internal/response"
)

// FlagRendered marks responses built from a rendered DOM.
const FlagRendered = "rendered"

// ErrClosed is returned by Render after Close.
var ErrClosed = errors.New("renderer closed")

// Result holds the result of rendering a page.
type Result struct {
	// Rendered DOM as an HTML response. Its text is the serialized DOM and
	// its encoding is always utf-8.
	Response *response.TextResponse

	// Page title
	Title string

	// Resources loaded
	Resources []*ResourceInfo

	// Render duration
	RenderTime time.Duration
}

// ResourceInfo holds information about a loaded resource.
type ResourceInfo struct {
	URL      string
	Type     string
	Status   int
	Size     int64
	MimeType string
}

// Renderer handles JavaScript rendering using Chromium.
type Renderer struct {
	mu     sync.Mutex
	closed bool

	config    *config.Config
	allocator context.Context
	cancel    context.CancelFunc
	log       zerolog.Logger

	// Browser pool for concurrent rendering
	browserPool chan context.Context
	cancels     []context.CancelFunc
}

// NewRenderer starts a browser allocator with poolSize tabs. Chromium is
// launched lazily on the first render.
func NewRenderer(cfg *config.Config, poolSize int, logger *zerolog.Logger) *Renderer {
	if poolSize < 1 {
		poolSize = 1
	}

	var l zerolog.Logger
	if logger == nil {
		l = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	} else {
		l = *logger
	}

	r := &Renderer{
		config: cfg,
		log:    l.With().Str("component", "renderer").Logger(),
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("window-size", "1920,1080"),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.ChromiumPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromiumPath))
	}

	r.allocator, r.cancel = chromedp.NewExecAllocator(context.Background(), opts...)

	r.browserPool = make(chan context.Context, poolSize)
	for i := 0; i < poolSize; i++ {
		ctx, cancel := chromedp.NewContext(r.allocator)
		r.cancels = append(r.cancels, cancel)
		r.browserPool <- ctx
	}

	return r
}

// Render loads urlStr, waits for the configured condition and returns the
// rendered DOM as an HTML response.
func (r *Renderer) Render(ctx context.Context, urlStr string) (*Result, error) {
	startTime := time.Now()

	tab, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.release(tab)

	timeoutCtx, cancel := context.WithTimeout(tab, r.config.RenderTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var (
		mu        sync.Mutex
		resources = make(map[string]*ResourceInfo)
		docStatus int
		docHeader network.Headers
	)

	chromedp.ListenTarget(timeoutCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			mu.Lock()
			resources[e.RequestID.String()] = &ResourceInfo{
				URL:      e.Response.URL,
				Type:     string(e.Type),
				Status:   int(e.Response.Status),
				MimeType: e.Response.MimeType,
			}
			// the last document response is the one after redirects
			if e.Type == network.ResourceTypeDocument {
				docStatus = int(e.Response.Status)
				docHeader = e.Response.Headers
			}
			mu.Unlock()

		case *network.EventLoadingFinished:
			mu.Lock()
			if res, ok := resources[e.RequestID.String()]; ok {
				res.Size = int64(e.EncodedDataLength)
			}
			mu.Unlock()

		case *page.EventJavascriptDialogOpening:
			go chromedp.Run(timeoutCtx, page.HandleJavaScriptDialog(true))
		}
	})

	var html, title, finalURL string
	err = chromedp.Run(timeoutCtx,
		network.Enable(),
		chromedp.Navigate(urlStr),
		waitAction(r.config),
		chromedp.Location(&finalURL),
		chromedp.Title(&title),
		chromedp.ActionFunc(func(ctx context.Context) error {
			node, err := dom.GetDocument().Do(ctx)
			if err != nil {
				return err
			}
			html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("render failed: %w", err)
	}

	mu.Lock()
	status := docStatus
	h := documentHeaders(docHeader)
	list := make([]*ResourceInfo, 0, len(resources))
	for _, res := range resources {
		list = append(list, res)
	}
	mu.Unlock()

	resp, err := buildResponse(finalURL, status, h, html)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Response:   resp,
		Title:      title,
		Resources:  list,
		RenderTime: time.Since(startTime),
	}

	r.log.Debug().
		Str("url", urlStr).
		Str("final_url", finalURL).
		Int("status", status).
		Int("resources", len(list)).
		Dur("elapsed", result.RenderTime).
		Msg("Rendered")

	return result, nil
}

// buildResponse wraps a serialized DOM. The DOM is already text, so the
// original charset no longer applies: the body is re-encoded as utf-8 and
// any charset in the Content-Type is dropped.
func buildResponse(finalURL string, status int, h *headers.Headers, html string) (*response.TextResponse, error) {
	if status == 0 {
		status = 200
	}
	if mt := response.MediaType(h.GetString("Content-Type")); mt != "" {
		h.Set("Content-Type", []byte(mt))
	}
	h.Del("Content-Encoding")
	h.Del("Content-Length")

	resp, err := response.NewHTML(finalURL,
		response.WithStatus(status),
		response.WithHeaders(h),
		response.WithText(html),
		response.WithEncoding("utf-8"),
		response.WithFlags(FlagRendered),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build rendered response: %w", err)
	}
	return resp, nil
}

// documentHeaders converts CDP response headers. CDP joins repeated
// headers with newlines.
func documentHeaders(src network.Headers) *headers.Headers {
	names := make([]string, 0, len(src))
	for k := range src {
		names = append(names, k)
	}
	sort.Strings(names)

	h := headers.New()
	for _, k := range names {
		v, ok := src[k].(string)
		if !ok {
			continue
		}
		for _, part := range strings.Split(v, "\n") {
			h.Add(k, []byte(part))
		}
	}
	return h
}

func waitAction(cfg *config.Config) chromedp.Action {
	switch cfg.WaitCondition {
	case config.WaitSelector:
		if cfg.WaitSelector != "" {
			return chromedp.WaitVisible(cfg.WaitSelector, chromedp.ByQuery)
		}
	case config.WaitLoad:
		return chromedp.ActionFunc(func(ctx context.Context) error {
			var state string
			for {
				if err := chromedp.Evaluate(`document.readyState`, &state).Do(ctx); err != nil {
					return err
				}
				if state == "complete" {
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(50 * time.Millisecond):
				}
			}
		})
	}
	return chromedp.WaitReady("body", chromedp.ByQuery)
}

func (r *Renderer) acquire(ctx context.Context) (context.Context, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	select {
	case tab, ok := <-r.browserPool:
		if !ok {
			return nil, ErrClosed
		}
		return tab, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Renderer) release(tab context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.browserPool <- tab
	}
}

// Screenshot captures a full-page screenshot of urlStr: JPEG when quality
// is below 100, PNG otherwise.
func (r *Renderer) Screenshot(ctx context.Context, urlStr string, quality int) ([]byte, error) {
	tab, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.release(tab)

	timeoutCtx, cancel := context.WithTimeout(tab, r.config.RenderTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var buf []byte
	err = chromedp.Run(timeoutCtx,
		chromedp.Navigate(urlStr),
		waitAction(r.config),
		chromedp.FullScreenshot(&buf, quality),
	)
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	return buf, nil
}

// Close shuts down the browser and releases resources.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	close(r.browserPool)
	for range r.browserPool {
	}
	for _, cancel := range r.cancels {
		cancel()
	}
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}
