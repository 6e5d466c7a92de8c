package response

import (
	"fmt"
	"sync"

	"github.com/spider-crawler/scrapekit/internal/charset"
	"github.com/spider-crawler/scrapekit/internal/selector"
)

// Kind tells what sort of document a text response holds.
type Kind int

const (
	KindText Kind = iota
	KindHTML
	KindXML
)

func (k Kind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindXML:
		return "xml"
	default:
		return "text"
	}
}

// EncodingSource names the signal an encoding was taken from.
type EncodingSource string

const (
	SourceOverride EncodingSource = "override"
	SourceHeader   EncodingSource = "header"
	SourceDocument EncodingSource = "document"
	SourceInferred EncodingSource = "inferred"
)

// AutoDetectCandidates are tried in order when a body carries no encoding
// signal at all.
var AutoDetectCandidates = []string{charset.DefaultEncoding, "utf-8", "cp1252"}

var autoDetect = charset.AutoDetect(AutoDetectCandidates...)

// TextResponse is a response whose body is text in some character encoding.
// The encoding is resolved lazily from, in order: the encoding given at
// construction, the Content-Type charset, a declaration inside the body,
// and finally a guess from the body bytes.
//
// Every derived value is computed at most once and is safe for concurrent
// use.
type TextResponse struct {
	*Response

	kind     Kind
	override string

	headerEncoding       func() string
	bodyDeclaredEncoding func() string
	bodyInferred         func() (string, string)
	text                 func() string
	selector             func() (*selector.Selector, error)
}

// NewText creates a plain text response. A body given with WithText is
// encoded with the WithEncoding encoding, which is then mandatory.
func NewText(rawURL string, opts ...Option) (*TextResponse, error) {
	return newText(KindText, rawURL, opts)
}

// NewHTML creates an HTML response. See NewText.
func NewHTML(rawURL string, opts ...Option) (*TextResponse, error) {
	return newText(KindHTML, rawURL, opts)
}

// NewXML creates an XML response. See NewText.
func NewXML(rawURL string, opts ...Option) (*TextResponse, error) {
	return newText(KindXML, rawURL, opts)
}

// NewKind creates a text response of the given kind.
func NewKind(kind Kind, rawURL string, opts ...Option) (*TextResponse, error) {
	return newText(kind, rawURL, opts)
}

func newText(kind Kind, rawURL string, opts []Option) (*TextResponse, error) {
	p := newParams(opts)

	if p.text != nil {
		if p.encoding == "" {
			return nil, fmt.Errorf("%w: cannot convert text body, %s response has no encoding", ErrConstruction, kind)
		}
		body, err := charset.Encode(*p.text, p.encoding)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConstruction, err)
		}
		p.body = body
	}

	base, err := newResponse(rawURL, p)
	if err != nil {
		return nil, err
	}

	r := &TextResponse{
		Response: base,
		kind:     kind,
		override: p.encoding,
	}
	r.initCaches()
	return r, nil
}

func (r *TextResponse) initCaches() {
	r.headerEncoding = sync.OnceValue(func() string {
		return charset.HeaderEncoding(r.headers.GetString("Content-Type"), r.body)
	})

	r.bodyDeclaredEncoding = sync.OnceValue(func() string {
		return charset.BodyDeclaredEncoding(r.body)
	})

	// encoding and text come out of the same decode, so they are cached together
	r.bodyInferred = sync.OnceValues(func() (string, string) {
		return charset.ToText(r.headers.GetString("Content-Type"), r.body, charset.Options{
			AutoDetect: autoDetect,
			Default:    charset.DefaultEncoding,
		})
	})

	r.text = sync.OnceValue(func() string {
		enc, source := r.resolve()
		if source == SourceInferred {
			_, text := r.bodyInferred()
			return text
		}
		_, text := charset.ToText("charset="+enc, r.body, charset.Options{Default: "utf-8"})
		return text
	})

	r.selector = sync.OnceValues(func() (*selector.Selector, error) {
		typ := selector.HTML
		if r.kind == KindXML {
			typ = selector.XML
		}
		return selector.FromSource(r, typ)
	})
}

// Kind returns the document kind chosen at construction.
func (r *TextResponse) Kind() Kind { return r.kind }

// Encoding returns the encoding used to decode the body. An encoding given
// at construction is returned verbatim; every other source yields a
// canonical WHATWG name.
func (r *TextResponse) Encoding() string {
	enc, _ := r.resolve()
	return enc
}

// EncodingSource reports which signal Encoding was taken from.
func (r *TextResponse) EncodingSource() EncodingSource {
	_, source := r.resolve()
	return source
}

// DeclaredEncoding returns the encoding from the first authoritative signal
// (construction, header, or document), or "" if there is none.
func (r *TextResponse) DeclaredEncoding() string {
	enc, source := r.declared()
	if source == "" {
		return ""
	}
	return enc
}

func (r *TextResponse) declared() (string, EncodingSource) {
	if r.override != "" {
		return r.override, SourceOverride
	}
	if enc := r.headerEncoding(); enc != "" {
		return enc, SourceHeader
	}
	if enc := r.bodyDeclaredEncoding(); enc != "" {
		return enc, SourceDocument
	}
	return "", ""
}

func (r *TextResponse) resolve() (string, EncodingSource) {
	if enc, source := r.declared(); source != "" {
		return enc, source
	}
	enc, _ := r.bodyInferred()
	return enc, SourceInferred
}

// Text returns the decoded body. Undecodable bytes are replaced with
// U+FFFD, so Text never fails.
func (r *TextResponse) Text() string {
	// Resolving the encoding first lets the inference branch hand over the
	// text it already decoded.
	r.Encoding()
	return r.text()
}

// Selector returns a selector over the decoded text, built once.
func (r *TextResponse) Selector() (*selector.Selector, error) {
	return r.selector()
}

// XPath runs an XPath query against the document.
func (r *TextResponse) XPath(query string) (selector.List, error) {
	sel, err := r.Selector()
	if err != nil {
		return nil, err
	}
	return sel.XPath(query)
}

// CSS runs a CSS selector against the document.
func (r *TextResponse) CSS(query string) (selector.List, error) {
	sel, err := r.Selector()
	if err != nil {
		return nil, err
	}
	return sel.CSS(query)
}

// Replace returns a copy of r with opts applied on top of its current
// fields. The copy keeps r's resolved encoding unless opts set another, so
// it decodes the same way.
func (r *TextResponse) Replace(opts ...Option) (*TextResponse, error) {
	base := append(r.options(), WithEncoding(r.Encoding()))
	return newText(r.kind, r.url, append(base, opts...))
}

// AsText returns m as a text response when it is one.
func AsText(m Message) (*TextResponse, bool) {
	r, ok := m.(*TextResponse)
	return r, ok
}
