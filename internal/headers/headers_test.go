package headers

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCaseInsensitiveGet(t *testing.T) {
	h := New("content-type", "text/html")

	for _, name := range []string{"Content-Type", "content-type", "CONTENT-TYPE"} {
		if got := h.GetString(name); got != "text/html" {
			t.Errorf("GetString(%q) = %q, want text/html", name, got)
		}
	}
	if !h.Has("CONTENT-type") {
		t.Error("Has should be case-insensitive")
	}
	if got := h.Keys(); !cmp.Equal(got, []string{"Content-Type"}) {
		t.Errorf("Keys = %v, want canonical key", got)
	}
}

func TestGetReturnsLastValue(t *testing.T) {
	h := &Headers{}
	h.Add("Set-Cookie", []byte("a=1"))
	h.Add("set-cookie", []byte("b=2"))

	if got := h.GetString("Set-Cookie"); got != "b=2" {
		t.Errorf("GetString = %q, want b=2", got)
	}
	want := [][]byte{[]byte("a=1"), []byte("b=2")}
	if diff := cmp.Diff(want, h.Values("set-cookie")); diff != "" {
		t.Errorf("Values mismatch (-want +got):\n%s", diff)
	}
}

func TestMissing(t *testing.T) {
	var h *Headers
	if h.Get("X") != nil || h.Has("X") || h.Len() != 0 {
		t.Error("nil Headers should behave as empty")
	}

	h = New()
	if h.Get("X") != nil {
		t.Error("missing header should return nil")
	}
}

func TestSetDefaultAndDel(t *testing.T) {
	h := New("A", "1")

	got := h.SetDefault("a", []byte("2"))
	if diff := cmp.Diff([][]byte{[]byte("1")}, got); diff != "" {
		t.Errorf("SetDefault overwrote existing value (-want +got):\n%s", diff)
	}
	h.SetDefault("B", []byte("3"))
	h.Del("a")

	if h.Has("A") {
		t.Error("A should be deleted")
	}
	if diff := cmp.Diff([]string{"B"}, h.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	h := New("X-Test", "one")
	c := h.Clone()
	c.Set("X-Test", []byte("two"))
	c.Get("x-test")[0] = 'T'

	if got := h.GetString("X-Test"); got != "one" {
		t.Errorf("original modified through clone: %q", got)
	}
}

func TestStringAndHTTP(t *testing.T) {
	h := New("Content-Type", "text/html", "X-Multi", "a", "x-multi", "b")

	want := "Content-Type: text/html\r\nX-Multi: a\r\nX-Multi: b"
	if got := h.String(); got != want {
		t.Errorf("String = %q, want %q", got, want)
	}

	wantHTTP := http.Header{
		"Content-Type": {"text/html"},
		"X-Multi":      {"a", "b"},
	}
	if diff := cmp.Diff(wantHTTP, h.HTTP()); diff != "" {
		t.Errorf("HTTP mismatch (-want +got):\n%s", diff)
	}
	if got := h.Joined()["X-Multi"]; got != "a,b" {
		t.Errorf("Joined = %q, want a,b", got)
	}
}

func TestFromHTTP(t *testing.T) {
	src := http.Header{"B": {"2"}, "A": {"1", "1b"}}
	h := FromHTTP(src)

	if diff := cmp.Diff([]string{"A", "B"}, h.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
	if got := h.GetString("a"); got != "1b" {
		t.Errorf("GetString(a) = %q, want 1b", got)
	}
}

func TestParseRoundTrip(t *testing.T) {
	h := New("Content-Type", "text/html; charset=utf-8", "Set-Cookie", "a=1", "Set-Cookie", "b=2")
	h.Add("X-Raw", []byte("caf\xe9"))

	parsed := Parse(h.String())

	if diff := cmp.Diff(h.Keys(), parsed.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(h.Values("Set-Cookie"), parsed.Values("Set-Cookie")); diff != "" {
		t.Errorf("Set-Cookie mismatch (-want +got):\n%s", diff)
	}
	if got := parsed.Get("X-Raw"); string(got) != "caf\xe9" {
		t.Errorf("raw bytes not preserved: %q", got)
	}
	if Parse("").Len() != 0 {
		t.Error("Parse of empty string should be empty")
	}
}
