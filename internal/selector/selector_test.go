package selector

import (
	"errors"
	"testing"

	tu "github.com/spider-crawler/scrapekit/internal/testutil"
)

const shopPage = `<html><head><title>Shop</title></head><body>
<ul id="items"><li class="item" data-price="10">A</li><li class="item" data-price="20">B</li></ul>
<a href="next.html">Next</a>
</body></html>`

const feed = `<?xml version="1.0" encoding="windows-1252"?>
<feed><entry id="1"><title>One</title></entry><entry id="2"><title>Deux é</title></entry></feed>`

func mustHTML(t *testing.T) *Selector {
	t.Helper()
	s, err := New(shopPage, "http://shop.example/cat/index.html", HTML)
	tu.MustNotFail(t, err)
	return s
}

func TestCSS(t *testing.T) {
	s := mustHTML(t)

	items, err := s.CSS("li.item")
	tu.MustNotFail(t, err)
	tu.Assert(t, items).HasLength(2)
	tu.Assert(t, items.Texts()).Equals([]string{"A", "B"})
	tu.Assert(t, items.Attrs("data-price")).Equals([]string{"10", "20"})
	tu.Assert(t, items.Get()).Equals(`<li class="item" data-price="10">A</li>`)

	none, err := s.CSS("table")
	tu.MustNotFail(t, err)
	tu.Assert(t, none).HasLength(0)
	tu.Assert(t, none.Get()).Equals("")
}

func TestCSSInvalid(t *testing.T) {
	_, err := mustHTML(t).CSS("li[")
	tu.AssertError(t, err).ContainsMessage("invalid css selector")
}

func TestXPath(t *testing.T) {
	s := mustHTML(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"//title/text()", []string{"Shop"}},
		{"//li/@data-price", []string{"10", "20"}},
		{"//li/text()", []string{"A", "B"}},
		{"count(//li)", []string{"2"}},
		{"boolean(//ul)", []string{"1"}},
		{"boolean(//table)", []string{"0"}},
		{"string(//a/@href)", []string{"next.html"}},
		{"//table", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := s.XPath(tt.query)
			tu.MustNotFail(t, err)
			tu.Assert(t, got.GetAll()).Equals(tt.want)
		})
	}
}

func TestXPathInvalid(t *testing.T) {
	_, err := mustHTML(t).XPath("//[")
	tu.AssertError(t, err).ContainsMessage("invalid xpath")
}

func TestNestedQueries(t *testing.T) {
	s := mustHTML(t)

	lists, err := s.CSS("ul")
	tu.MustNotFail(t, err)

	texts, err := lists.XPath(".//li/text()")
	tu.MustNotFail(t, err)
	tu.Assert(t, texts.GetAll()).Equals([]string{"A", "B"})

	items, err := lists.CSS("li")
	tu.MustNotFail(t, err)
	tu.Assert(t, items).HasLength(2)

	// value selectors have no children
	attrs, err := s.XPath("//li/@data-price")
	tu.MustNotFail(t, err)
	sub, err := attrs.CSS("li")
	tu.MustNotFail(t, err)
	tu.Assert(t, sub).HasLength(0)
}

func TestRe(t *testing.T) {
	items, err := mustHTML(t).CSS("li")
	tu.MustNotFail(t, err)

	prices, err := items.Re(`data-price="(\d+)"`)
	tu.MustNotFail(t, err)
	tu.Assert(t, prices).Equals([]string{"10", "20"})

	whole, err := items.Re(`\d+`)
	tu.MustNotFail(t, err)
	tu.Assert(t, whole).Equals([]string{"10", "20"})

	first, err := items.ReFirst(`>(\w)<`)
	tu.MustNotFail(t, err)
	tu.Assert(t, first).Equals("A")

	_, err = items.Re(`(`)
	tu.AssertError(t, err).ContainsMessage("invalid pattern")
}

func TestURLJoin(t *testing.T) {
	links, err := mustHTML(t).CSS("a")
	tu.MustNotFail(t, err)

	href, ok := links[0].Attr("href")
	tu.Assert(t, ok).IsTrue()

	abs, err := links[0].URLJoin(href)
	tu.MustNotFail(t, err)
	tu.Assert(t, abs).Equals("http://shop.example/cat/next.html")

	_, ok = links[0].Attr("title")
	tu.Assert(t, ok).IsFalse()
}

func TestXML(t *testing.T) {
	s, err := New(feed, "http://feeds.example/atom", XML)
	tu.MustNotFail(t, err)
	tu.Assert(t, s.Type()).Equals(XML)

	ids, err := s.XPath("//entry/@id")
	tu.MustNotFail(t, err)
	tu.Assert(t, ids.GetAll()).Equals([]string{"1", "2"})

	entries, err := s.XPath("//entry")
	tu.MustNotFail(t, err)
	tu.Assert(t, entries.Attrs("id")).Equals([]string{"1", "2"})
	tu.Assert(t, entries.Texts()).Equals([]string{"One", "Deux é"})

	_, err = s.CSS("entry")
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("CSS on xml: err = %v, want ErrUnsupported", err)
	}
}

type stubSource struct{ text, url string }

func (s stubSource) Text() string { return s.text }
func (s stubSource) URL() string  { return s.url }

func TestFromSource(t *testing.T) {
	s, err := FromSource(stubSource{text: "<p>hi</p>", url: "http://example.com/"}, HTML)
	tu.MustNotFail(t, err)
	tu.Assert(t, s.BaseURL()).Equals("http://example.com/")

	p, err := s.CSS("p")
	tu.MustNotFail(t, err)
	tu.Assert(t, p.Texts()).Equals([]string{"hi"})
}

func TestInvalidBaseURL(t *testing.T) {
	_, err := New("<p/>", "http://[::1", HTML)
	tu.AssertError(t, err).ContainsMessage("invalid base url")
}
