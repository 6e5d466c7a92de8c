package response

import (
	"net/http"
	"strings"

	"github.com/spider-crawler/scrapekit/internal/headers"
)

// sniffLimit bounds how much of a body is inspected when the Content-Type
// header is missing.
const sniffLimit = 512

var mimeKinds = map[string]Kind{
	"text/html":                     KindHTML,
	"application/xhtml+xml":         KindHTML,
	"application/vnd.wap.xhtml+xml": KindHTML,
	"text/xml":                      KindXML,
	"application/xml":               KindXML,
	"application/atom+xml":          KindXML,
	"application/rdf+xml":           KindXML,
	"application/rss+xml":           KindXML,
	"application/json":              KindText,
	"application/x-json":            KindText,
	"application/ld+json":           KindText,
	"application/javascript":        KindText,
	"application/x-javascript":      KindText,
	"application/ecmascript":        KindText,
}

// MediaType returns the lowercased type/subtype of a Content-Type value.
func MediaType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// KindFor decides whether a body with the given Content-Type is text, and of
// which kind. A missing Content-Type falls back to sniffing the body.
// isText is false for binary content.
func KindFor(contentType string, body []byte) (kind Kind, isText bool) {
	mt := MediaType(contentType)
	if mt == "" {
		sniff := body
		if len(sniff) > sniffLimit {
			sniff = sniff[:sniffLimit]
		}
		mt = MediaType(http.DetectContentType(sniff))
	}

	if k, ok := mimeKinds[mt]; ok {
		return k, true
	}
	switch {
	case strings.HasSuffix(mt, "+xml"):
		return KindXML, true
	case strings.HasSuffix(mt, "+json"), strings.HasPrefix(mt, "text/"):
		return KindText, true
	}
	return KindText, false
}

// FromHTTP builds the response variant matching the Content-Type: a text
// response for textual content, a raw response otherwise.
func FromHTTP(rawURL string, status int, h *headers.Headers, body []byte, opts ...Option) (Message, error) {
	opts = append([]Option{WithStatus(status), WithHeaders(h), WithBody(body)}, opts...)

	kind, isText := KindFor(h.GetString("Content-Type"), body)
	if !isText {
		r, err := New(rawURL, opts...)
		if err != nil {
			return nil, err
		}
		return r, nil
	}

	r, err := NewKind(kind, rawURL, opts...)
	if err != nil {
		return nil, err
	}
	return r, nil
}
