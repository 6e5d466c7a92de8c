// Package headers implements the case-insensitive, multi-valued header map
// carried by responses.
package headers

import (
	"bytes"
	"net/http"
	"net/textproto"
	"sort"
	"strings"
)

// Headers maps canonical header names to one or more raw byte values.
// Keys are kept in insertion order. The zero value is ready to use.
type Headers struct {
	keys   []string
	values map[string][][]byte
}

// New creates Headers from alternating name/value pairs.
// A trailing name without a value is ignored.
func New(pairs ...string) *Headers {
	h := &Headers{}
	for i := 0; i+1 < len(pairs); i += 2 {
		h.Add(pairs[i], []byte(pairs[i+1]))
	}
	return h
}

// FromHTTP copies an http.Header. Names are added in sorted order since
// http.Header does not keep one.
func FromHTTP(src http.Header) *Headers {
	names := make([]string, 0, len(src))
	for name := range src {
		names = append(names, name)
	}
	sort.Strings(names)

	h := &Headers{}
	for _, name := range names {
		for _, v := range src[name] {
			h.Add(name, []byte(v))
		}
	}
	return h
}

// CanonicalKey returns the form names are stored under ("content-type"
// becomes "Content-Type").
func CanonicalKey(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}

// Get returns the last value stored for name, or nil if there is none.
func (h *Headers) Get(name string) []byte {
	if h == nil {
		return nil
	}
	vals := h.values[CanonicalKey(name)]
	if len(vals) == 0 {
		return nil
	}
	return vals[len(vals)-1]
}

// GetString is Get converted to a string.
func (h *Headers) GetString(name string) string {
	return string(h.Get(name))
}

// Values returns every value stored for name.
func (h *Headers) Values(name string) [][]byte {
	if h == nil {
		return nil
	}
	return h.values[CanonicalKey(name)]
}

// Has reports whether name is present.
func (h *Headers) Has(name string) bool {
	if h == nil {
		return false
	}
	_, ok := h.values[CanonicalKey(name)]
	return ok
}

// Set replaces all values for name.
func (h *Headers) Set(name string, values ...[]byte) {
	key := CanonicalKey(name)
	if h.values == nil {
		h.values = make(map[string][][]byte)
	}
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[key] = cloneValues(values)
}

// Add appends values to name.
func (h *Headers) Add(name string, values ...[]byte) {
	key := CanonicalKey(name)
	if !h.Has(key) {
		h.Set(key, values...)
		return
	}
	h.values[key] = append(h.values[key], cloneValues(values)...)
}

// SetDefault sets name to values only if it is not present yet and returns
// whatever is stored afterwards.
func (h *Headers) SetDefault(name string, values ...[]byte) [][]byte {
	if !h.Has(name) {
		h.Set(name, values...)
	}
	return h.Values(name)
}

// Del removes name.
func (h *Headers) Del(name string) {
	if !h.Has(name) {
		return
	}
	key := CanonicalKey(name)
	delete(h.values, key)
	for i, k := range h.keys {
		if k == key {
			h.keys = append(h.keys[:i:i], h.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the canonical names in insertion order.
func (h *Headers) Keys() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.keys...)
}

// Len returns the number of distinct names.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.keys)
}

// Clone returns a deep copy. Cloning nil yields empty Headers.
func (h *Headers) Clone() *Headers {
	c := &Headers{}
	if h == nil {
		return c
	}
	for _, k := range h.keys {
		c.Set(k, h.values[k]...)
	}
	return c
}

// HTTP converts to an http.Header.
func (h *Headers) HTTP() http.Header {
	out := make(http.Header, h.Len())
	if h == nil {
		return out
	}
	for _, k := range h.keys {
		for _, v := range h.values[k] {
			out.Add(k, string(v))
		}
	}
	return out
}

// Joined returns every header with its values joined by ",".
func (h *Headers) Joined() map[string]string {
	out := make(map[string]string, h.Len())
	if h == nil {
		return out
	}
	for _, k := range h.keys {
		out[k] = string(bytes.Join(h.values[k], []byte(",")))
	}
	return out
}

// String renders the headers in raw wire form, one "Name: value" line per
// value, separated by CRLF.
func (h *Headers) String() string {
	if h == nil {
		return ""
	}
	var lines []string
	for _, k := range h.keys {
		for _, v := range h.values[k] {
			lines = append(lines, k+": "+string(v))
		}
	}
	return strings.Join(lines, "\r\n")
}

// Parse reads the form produced by String. Lines without a ": " separator
// are skipped.
func Parse(raw string) *Headers {
	h := &Headers{}
	if raw == "" {
		return h
	}
	for _, line := range strings.Split(raw, "\r\n") {
		name, value, ok := strings.Cut(line, ": ")
		if !ok || name == "" {
			continue
		}
		h.Add(name, []byte(value))
	}
	return h
}

func cloneValues(values [][]byte) [][]byte {
	out := make([][]byte, len(values))
	for i, v := range values {
		out[i] = bytes.Clone(v)
	}
	return out
}
