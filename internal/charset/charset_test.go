package charset

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"UTF-8", "utf-8"},
		{"utf8", "utf-8"},
		{" utf-8 ", "utf-8"},
		{"latin1", "windows-1252"},
		{"iso-8859-1", "windows-1252"},
		{"cp1252", "windows-1252"},
		{"ascii", "windows-1252"},
		{"utf_8", "utf-8"},
		{"gb2312", "gbk"},
		{"shift_jis", "shift_jis"},
		{"utf-16", "utf-16le"},
		{"UTF-32", UTF32LE},
		{"utf-32be", UTF32BE},
		{"iso-2022-kr", ""}, // WHATWG replacement encoding
		{"no-such-charset", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := Canonical(tt.label); got != tt.want {
				t.Errorf("Canonical(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestContentTypeEncoding(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        string
	}{
		{"empty", "", ""},
		{"no charset", "text/html", ""},
		{"utf-8", "text/html; charset=UTF-8", "utf-8"},
		{"alias", "text/html; charset=latin1", "windows-1252"},
		{"quoted", `text/html; charset="utf-8"`, "utf-8"},
		{"uppercase param", "text/html; CHARSET=utf-8", "utf-8"},
		{"unknown", "text/html; charset=bogus", ""},
		{"malformed", "text/html; charset=", ""},
		{"extra params", "text/html; charset=gbk; format=flowed", "gbk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContentTypeEncoding(tt.contentType); got != tt.want {
				t.Errorf("ContentTypeEncoding(%q) = %q, want %q", tt.contentType, got, tt.want)
			}
		})
	}
}

func TestBodyDeclaredEncoding(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"meta charset", `<html><head><meta charset="cp1252"></head></html>`, "windows-1252"},
		{"meta charset unquoted", `<meta charset=utf-8>`, "utf-8"},
		{"meta charset with attrs", `<meta name="x" charset='gb2312'>`, "gbk"},
		{"http-equiv", `<meta http-equiv="Content-Type" content="text/html; charset=iso-8859-2">`, "iso-8859-2"},
		{"http-equiv reversed", `<meta content="text/html; charset=koi8-r" http-equiv="Content-Type">`, "koi8-r"},
		{"xml declaration", `<?xml version="1.0" encoding="Shift_JIS"?><root/>`, "shift_jis"},
		{"case insensitive", `<META CHARSET="UTF-8">`, "utf-8"},
		{"stops at body", `<html><body><meta charset="utf-8"></body></html>`, ""},
		{"none", `<html><head><title>x</title></head></html>`, ""},
		{"unknown", `<meta charset="nope">`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BodyDeclaredEncoding([]byte(tt.body)); got != tt.want {
				t.Errorf("BodyDeclaredEncoding(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestBodyDeclaredEncodingScanLimit(t *testing.T) {
	padding := strings.Repeat(" ", DeclarationScanLimit)
	body := []byte("<html><head>" + padding + `<meta charset="utf-8">`)

	if got := BodyDeclaredEncoding(body); got != "" {
		t.Errorf("declaration past the scan limit was found: %q", got)
	}
}

func TestBodyDeclaredEncodingNonASCIIBytes(t *testing.T) {
	body := append([]byte{0xff, 0xfe, 0x80, ' '}, []byte(`<meta charset="koi8-r">`)...)

	if got := BodyDeclaredEncoding(body); got != "koi8-r" {
		t.Errorf("BodyDeclaredEncoding = %q, want koi8-r", got)
	}
}

func TestReadBOM(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		want string
	}{
		{"utf-8", []byte("\xef\xbb\xbfabc"), "utf-8"},
		{"utf-16le", []byte("\xff\xfea\x00"), "utf-16le"},
		{"utf-16be", []byte("\xfe\xff\x00a"), "utf-16be"},
		{"utf-32le", []byte("\xff\xfe\x00\x00a\x00\x00\x00"), UTF32LE},
		{"utf-32be", []byte("\x00\x00\xfe\xff\x00\x00\x00a"), UTF32BE},
		{"none", []byte("abc"), ""},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, bom := ReadBOM(tt.body)
			if got != tt.want {
				t.Errorf("ReadBOM = %q, want %q", got, tt.want)
			}
			if got != "" && !bytes.HasPrefix(tt.body, bom) {
				t.Errorf("returned BOM %x is not a prefix of the body", bom)
			}
		})
	}
}

func TestToText(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        []byte
		opts        Options
		wantEnc     string
		wantText    string
	}{
		{
			name:        "header wins over meta",
			contentType: "text/html; charset=utf-8",
			body:        []byte(`<meta charset="koi8-r">caf` + "\xc3\xa9"),
			wantEnc:     "utf-8",
			wantText:    `<meta charset="koi8-r">café`,
		},
		{
			name:        "header strips agreeing BOM",
			contentType: "text/plain; charset=utf-8",
			body:        []byte("\xef\xbb\xbfhi"),
			wantEnc:     "utf-8",
			wantText:    "hi",
		},
		{
			name:        "utf-16 byte order taken from BOM",
			contentType: "text/plain; charset=utf-16",
			body:        []byte("\xfe\xff\x00h\x00i"),
			wantEnc:     "utf-16be",
			wantText:    "hi",
		},
		{
			name:     "BOM without header",
			body:     []byte("\xff\xfeh\x00i\x00"),
			wantEnc:  "utf-16le",
			wantText: "hi",
		},
		{
			name:     "document declaration",
			body:     []byte(`<meta charset="latin1">caf` + "\xe9"),
			wantEnc:  "windows-1252",
			wantText: `<meta charset="latin1">café`,
		},
		{
			name:     "auto detect",
			body:     []byte("caf\xc3\xa9"),
			opts:     Options{AutoDetect: AutoDetect("ascii", "utf-8", "cp1252"), Default: DefaultEncoding},
			wantEnc:  "utf-8",
			wantText: "café",
		},
		{
			name:     "default when nothing matches",
			body:     []byte("plain"),
			opts:     Options{Default: DefaultEncoding},
			wantEnc:  "windows-1252",
			wantText: "plain",
		},
		{
			name:     "utf-8 when no default",
			body:     []byte("caf\xc3\xa9"),
			wantEnc:  "utf-8",
			wantText: "café",
		},
		{
			name:        "lossy decode",
			contentType: "charset=utf-8",
			body:        []byte("a\xffb"),
			wantEnc:     "utf-8",
			wantText:    "a�b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, text := ToText(tt.contentType, tt.body, tt.opts)
			if enc != tt.wantEnc {
				t.Errorf("encoding = %q, want %q", enc, tt.wantEnc)
			}
			if text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
		})
	}
}

func TestAutoDetect(t *testing.T) {
	detect := AutoDetect("ascii", "utf-8", "cp1252")

	tests := []struct {
		name string
		body []byte
		want string
	}{
		{"ascii", []byte("hello"), "windows-1252"},
		{"utf-8", []byte("\xe2\x82\xac"), "utf-8"},
		{"cp1252", []byte("caf\xe9"), "windows-1252"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detect(tt.body); got != tt.want {
				t.Errorf("detect(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}

	if got := AutoDetect("ascii")([]byte("caf\xe9")); got != "" {
		t.Errorf("expected no answer when no candidate decodes, got %q", got)
	}
}

func TestDecodeNeverFails(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("\xff\xfe\xfd"),
		[]byte("\x80\x81\x82"),
		{0x00, 0xd8, 0x00},
	}
	for _, label := range []string{"utf-8", "windows-1252", "shift_jis", "utf-16le", UTF32BE, "bogus"} {
		for _, in := range inputs {
			_ = Decode(in, label)
		}
	}

	if got := Decode([]byte("\xff"), "utf-8"); got != "\ufffd" {
		t.Errorf("Decode(0xff, utf-8) = %q, want replacement character", got)
	}
}

func TestDecodeReplacesEachInvalidByte(t *testing.T) {
	for _, label := range []string{"utf-8", "UTF8", "bogus"} {
		if got := Decode([]byte("a\xff\xfeb"), label); got != "a\ufffd\ufffdb" {
			t.Errorf("Decode(%q) = %q, want one replacement per invalid byte", label, got)
		}
	}

	enc, text := ToText("text/html; charset=utf-8", []byte("a\xff\xfeb"), Options{})
	if enc != "utf-8" || text != "a\ufffd\ufffdb" {
		t.Errorf("ToText = (%q, %q), want (utf-8, a\ufffd\ufffdb)", enc, text)
	}
}

func TestHeaderEncoding(t *testing.T) {
	tests := []struct {
		contentType string
		body        []byte
		want        string
	}{
		{"text/plain; charset=utf-16", []byte("\xfe\xff\x00a"), "utf-16be"},
		{"text/plain; charset=utf-16", []byte("\xff\xfea\x00"), "utf-16le"},
		{"text/plain; charset=utf-16be", []byte("\xff\xfea\x00"), "utf-16le"},
		{"text/plain; charset=utf-16", []byte("a\x00"), "utf-16le"},
		{"text/plain; charset=utf-8", []byte("\xfe\xff\x00a"), "utf-8"},
		{"text/plain", []byte("\xfe\xff\x00a"), ""},
	}
	for _, tt := range tests {
		if got := HeaderEncoding(tt.contentType, tt.body); got != tt.want {
			t.Errorf("HeaderEncoding(%q, %q) = %q, want %q", tt.contentType, tt.body, got, tt.want)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	for _, label := range []string{"utf-8", "cp1252", "koi8-r", "shift_jis", "utf-16be", "utf-32le"} {
		t.Run(label, func(t *testing.T) {
			text := "plain text"
			if label == "koi8-r" {
				text = "привет"
			}
			b, err := Encode(text, label)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if got := Decode(b, label); got != text {
				t.Errorf("round trip = %q, want %q", got, text)
			}
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	if _, err := Encode("x", "bogus"); !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("Encode with unknown label: err = %v, want ErrUnknownEncoding", err)
	}
	if _, err := Encode("日本", "windows-1252"); err == nil {
		t.Error("Encode of unrepresentable text should fail")
	}
}
