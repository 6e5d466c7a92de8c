// Package selector queries decoded HTML and XML documents with XPath and
// CSS expressions.
package selector

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/spider-crawler/scrapekit/internal/urlutil"
)

// Type selects the parser used for a document.
type Type int

const (
	HTML Type = iota
	XML
)

func (t Type) String() string {
	if t == XML {
		return "xml"
	}
	return "html"
}

// ErrUnsupported is returned for queries a selector type cannot run, such
// as CSS against XML.
var ErrUnsupported = errors.New("unsupported query")

// Source is anything that can hand over decoded text and the URL it came
// from.
type Source interface {
	Text() string
	URL() string
}

// Selector wraps a document node, or a plain value produced by a query such
// as an attribute or a text node.
type Selector struct {
	typ   Type
	base  string
	hnode *html.Node
	xnode *xmlquery.Node
	value *string
}

// xml.Decoder would re-decode our already decoded text with the declared
// charset, so the declaration is dropped before parsing.
var xmlEncodingDecl = regexp.MustCompile(`(?i)^(\s*<\?xml[^>]*?)\s+encoding\s*=\s*["'][^"']*["']`)

// New parses text as a document of the given type. baseURL is used to
// resolve relative links.
func New(text, baseURL string, typ Type) (*Selector, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	if typ == XML {
		doc, err := xmlquery.Parse(strings.NewReader(xmlEncodingDecl.ReplaceAllString(text, "$1")))
		if err != nil {
			return nil, fmt.Errorf("failed to parse xml: %w", err)
		}
		return &Selector{typ: XML, base: baseURL, xnode: doc}, nil
	}

	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return &Selector{typ: HTML, base: baseURL, hnode: doc}, nil
}

// FromSource parses the text of src with src's URL as base URL.
func FromSource(src Source, typ Type) (*Selector, error) {
	return New(src.Text(), src.URL(), typ)
}

// Type returns the document type.
func (s *Selector) Type() Type { return s.typ }

// BaseURL returns the URL relative links are resolved against.
func (s *Selector) BaseURL() string { return s.base }

// XPath evaluates query relative to this selector. Node results become
// element selectors; attributes, text nodes and scalar results become value
// selectors.
func (s *Selector) XPath(query string) (List, error) {
	expr, err := xpath.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", query, err)
	}

	var nav xpath.NodeNavigator
	switch {
	case s.xnode != nil:
		nav = xmlquery.CreateXPathNavigator(s.xnode)
	case s.hnode != nil:
		nav = htmlquery.CreateXPathNavigator(s.hnode)
	default:
		return nil, nil
	}

	switch v := expr.Evaluate(nav).(type) {
	case *xpath.NodeIterator:
		var out List
		for v.MoveNext() {
			out = append(out, s.fromNavigator(v.Current()))
		}
		return out, nil
	case string:
		return List{s.withValue(v)}, nil
	case float64:
		return List{s.withValue(strconv.FormatFloat(v, 'f', -1, 64))}, nil
	case bool:
		if v {
			return List{s.withValue("1")}, nil
		}
		return List{s.withValue("0")}, nil
	}
	return nil, nil
}

func (s *Selector) fromNavigator(nav xpath.NodeNavigator) *Selector {
	switch nav.NodeType() {
	case xpath.AttributeNode, xpath.TextNode, xpath.CommentNode:
		return s.withValue(nav.Value())
	}

	switch n := nav.(type) {
	case *htmlquery.NodeNavigator:
		return &Selector{typ: HTML, base: s.base, hnode: n.Current()}
	case *xmlquery.NodeNavigator:
		return &Selector{typ: XML, base: s.base, xnode: n.Current()}
	}
	return s.withValue(nav.Value())
}

func (s *Selector) withValue(v string) *Selector {
	return &Selector{typ: s.typ, base: s.base, value: &v}
}

// CSS matches a CSS selector against the descendants of this selector.
// Only HTML documents support CSS.
func (s *Selector) CSS(query string) (List, error) {
	if s.typ != HTML {
		return nil, fmt.Errorf("css on %s document: %w", s.typ, ErrUnsupported)
	}
	if s.hnode == nil {
		return nil, nil
	}

	matcher, err := cascadia.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("invalid css selector %q: %w", query, err)
	}

	found := goquery.NewDocumentFromNode(s.hnode).FindMatcher(matcher)
	out := make(List, 0, found.Length())
	found.Each(func(_ int, item *goquery.Selection) {
		out = append(out, &Selector{typ: HTML, base: s.base, hnode: item.Get(0)})
	})
	return out, nil
}

// Get serializes the selected node, or returns the selected value.
func (s *Selector) Get() string {
	switch {
	case s.value != nil:
		return *s.value
	case s.xnode != nil:
		return s.xnode.OutputXML(true)
	case s.hnode != nil:
		if s.hnode.Type == html.TextNode {
			return s.hnode.Data
		}
		return htmlquery.OutputHTML(s.hnode, true)
	}
	return ""
}

// Text returns the concatenated text content of the selection.
func (s *Selector) Text() string {
	switch {
	case s.value != nil:
		return *s.value
	case s.xnode != nil:
		return s.xnode.InnerText()
	case s.hnode != nil:
		return htmlquery.InnerText(s.hnode)
	}
	return ""
}

// Attr returns the value of an attribute of the selected element.
func (s *Selector) Attr(name string) (string, bool) {
	switch {
	case s.hnode != nil:
		for _, a := range s.hnode.Attr {
			if strings.EqualFold(a.Key, name) {
				return a.Val, true
			}
		}
	case s.xnode != nil:
		if v := s.xnode.SelectAttr(name); v != "" {
			return v, true
		}
	}
	return "", false
}

// URLJoin resolves ref against the document's base URL.
func (s *Selector) URLJoin(ref string) (string, error) {
	return urlutil.Join(s.base, ref)
}
