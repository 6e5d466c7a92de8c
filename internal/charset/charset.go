// Package charset resolves character encodings for HTTP response bodies and
// converts raw bytes to text.
//
// Encoding labels are canonicalized with the WHATWG Encoding Standard table
// shipped in golang.org/x/net/html/charset, so aliases such as "latin1",
// "cp1252" and "windows-1252" all resolve to "windows-1252". UTF-32 labels,
// which WHATWG does not define, are resolved from golang.org/x/text.
package charset

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode/utf32"
)

// DefaultEncoding is the label used when nothing else can be determined.
// It canonicalizes to "windows-1252".
const DefaultEncoding = "ascii"

// Canonical names returned for UTF-32 byte order marks and labels.
const (
	UTF32BE = "utf-32be"
	UTF32LE = "utf-32le"
)

// ErrUnknownEncoding is returned when a label names no known encoding.
var ErrUnknownEncoding = errors.New("unknown encoding")

var utf32Labels = map[string]string{
	"utf-32":   UTF32LE,
	"utf32":    UTF32LE,
	"utf-32le": UTF32LE,
	"utf-32be": UTF32BE,
	"utf32le":  UTF32LE,
	"utf32be":  UTF32BE,
}

// Lookup returns the encoding and its canonical name for label. ok is false
// when the label is unknown or maps to the WHATWG "replacement" encoding.
func Lookup(label string) (enc encoding.Encoding, name string, ok bool) {
	label = normalizeLabel(label)
	if label == "" {
		return nil, "", false
	}

	for _, candidate := range []string{label, strings.ReplaceAll(label, "_", "-")} {
		if e, n := charset.Lookup(candidate); e != nil && n != "replacement" {
			return e, n, true
		}
		if n, found := utf32Labels[candidate]; found {
			return utf32Encoding(n), n, true
		}
	}

	return nil, "", false
}

// Canonical returns the canonical name for label, or "" if it is unknown.
func Canonical(label string) string {
	_, name, _ := Lookup(label)
	return name
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.Trim(label, " \t\n\f\r\"'"))
}

func utf32Encoding(name string) encoding.Encoding {
	if name == UTF32BE {
		return utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM)
	}
	return utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM)
}

// Encode converts text to bytes in the encoding named by label. It fails if
// the label is unknown or text holds characters the encoding cannot represent.
func Encode(text, label string) ([]byte, error) {
	enc, name, ok := Lookup(label)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, label)
	}
	if name == "utf-8" {
		return []byte(text), nil
	}

	out, err := enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("failed to encode text as %s: %w", name, err)
	}
	return out, nil
}
