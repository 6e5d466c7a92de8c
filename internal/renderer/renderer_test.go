package renderer

import (
	"context"
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/rs/zerolog"

	"github.com/spider-crawler/scrapekit/internal/config"
	"github.com/spider-crawler/scrapekit/internal/headers"
	"github.com/spider-crawler/scrapekit/internal/response"
	tu "github.com/spider-crawler/scrapekit/internal/testutil"
)

func TestBuildResponse(t *testing.T) {
	h := headers.New(
		"Content-Type", "text/html; charset=iso-8859-1",
		"Content-Encoding", "gzip",
	)

	resp, err := buildResponse("http://example.com/app", 0, h, "<p>café</p>")
	tu.MustNotFail(t, err)

	tu.Assert(t, resp.Status()).Equals(200)
	tu.Assert(t, resp.Kind()).Equals(response.KindHTML)
	tu.Assert(t, resp.Encoding()).Equals("utf-8")
	tu.Assert(t, resp.EncodingSource()).Equals(response.SourceOverride)
	tu.Assert(t, resp.Text()).Equals("<p>café</p>")
	tu.Assert(t, resp.Body()).Equals([]byte("<p>caf\xc3\xa9</p>"))
	tu.Assert(t, resp.Headers().GetString("Content-Type")).Equals("text/html")
	tu.Assert(t, resp.Headers().Has("Content-Encoding")).IsFalse()
	tu.Assert(t, resp.Flags()).Equals([]string{FlagRendered})
}

func TestDocumentHeaders(t *testing.T) {
	h := documentHeaders(network.Headers{
		"set-cookie":   "a=1\nb=2",
		"content-type": "text/html",
		"x-count":      42.0,
	})

	tu.Assert(t, h.Keys()).Equals([]string{"Content-Type", "Set-Cookie"})
	tu.Assert(t, len(h.Values("Set-Cookie"))).Equals(2)
	tu.Assert(t, h.GetString("Set-Cookie")).Equals("b=2")
}

func TestRenderAfterClose(t *testing.T) {
	nop := zerolog.Nop()
	r := NewRenderer(config.DefaultConfig(), 2, &nop)
	tu.MustNotFail(t, r.Close())
	tu.MustNotFail(t, r.Close())

	_, err := r.Render(context.Background(), "http://example.com")
	tu.AssertError(t, err).Is(ErrClosed)
}
