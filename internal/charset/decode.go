package charset

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// AutoDetectFunc guesses an encoding for body when no authoritative signal
// exists. It returns a canonical name, or "" when it has no answer.
type AutoDetectFunc func(body []byte) string

// Options tune the ToText cascade.
type Options struct {
	// AutoDetect is consulted after the BOM and the body declaration.
	AutoDetect AutoDetectFunc

	// Default is the label used when every other step fails.
	// Empty means "utf-8".
	Default string
}

// ToText determines the encoding of body and decodes it. The encoding is
// taken, in order, from the charset in contentType, a byte order mark, a
// declaration in the document, opts.AutoDetect and finally opts.Default.
//
// ToText never fails: undecodable sequences become U+FFFD.
func ToText(contentType string, body []byte, opts Options) (string, string) {
	bomEnc, bom := ReadBOM(body)

	if enc := HeaderEncoding(contentType, body); enc != "" {
		if enc == bomEnc {
			body = body[len(bom):]
		}
		return enc, Decode(body, enc)
	}

	if bomEnc != "" {
		return bomEnc, Decode(body[len(bom):], bomEnc)
	}

	enc := BodyDeclaredEncoding(body)
	if enc == "" && opts.AutoDetect != nil {
		enc = opts.AutoDetect(body)
	}
	if enc == "" {
		enc = Canonical(opts.Default)
	}
	if enc == "" {
		enc = "utf-8"
	}
	return enc, Decode(body, enc)
}

// HeaderEncoding is ContentTypeEncoding with the byte order of a utf-16
// header taken from a utf-16 BOM in body, so "charset=utf-16" over a
// big-endian BOM yields "utf-16be".
func HeaderEncoding(contentType string, body []byte) string {
	enc := ContentTypeEncoding(contentType)
	if isUTF16(enc) {
		if bomEnc, _ := ReadBOM(body); isUTF16(bomEnc) {
			return bomEnc
		}
	}
	return enc
}

func isUTF16(name string) bool {
	return name == "utf-16le" || name == "utf-16be"
}

// Decode converts body to text using the encoding named by label. Each
// invalid byte is replaced with its own U+FFFD. An unknown label decodes as
// UTF-8.
func Decode(body []byte, label string) string {
	if len(body) == 0 {
		return ""
	}

	enc, name, ok := Lookup(label)
	if ok && name != "utf-8" {
		if out, err := enc.NewDecoder().Bytes(body); err == nil {
			return string(out)
		}
	}
	return decodeUTF8(body)
}

func decodeUTF8(body []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(body)
	if err != nil {
		// same per-byte replacement, by hand
		var b strings.Builder
		for len(body) > 0 {
			r, size := utf8.DecodeRune(body)
			b.WriteRune(r)
			body = body[size:]
		}
		return b.String()
	}
	return string(out)
}

// DecodesCleanly reports whether body decodes under label without any
// replacement. "ascii" is checked strictly even though WHATWG maps it to
// windows-1252.
func DecodesCleanly(body []byte, label string) bool {
	switch normalizeLabel(label) {
	case "ascii", "us-ascii":
		for _, b := range body {
			if b >= utf8.RuneSelf {
				return false
			}
		}
		return true
	}

	enc, name, ok := Lookup(label)
	if !ok {
		return false
	}
	if name == "utf-8" {
		return utf8.Valid(body)
	}

	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return false
	}
	return !strings.ContainsRune(string(out), utf8.RuneError)
}

// AutoDetect returns an AutoDetectFunc that tries each candidate label in
// order and answers with the canonical name of the first one that decodes
// the body cleanly. This is a deterministic best-effort guess, not a
// statistical detector.
func AutoDetect(candidates ...string) AutoDetectFunc {
	return func(body []byte) string {
		for _, c := range candidates {
			if DecodesCleanly(body, c) {
				return Canonical(c)
			}
		}
		return ""
	}
}
