package charset

import (
	"bytes"
	"regexp"
)

// DeclarationScanLimit is the number of leading body bytes inspected for an
// embedded encoding declaration. HTML5 asks for 1024; real pages put the
// meta tag further down often enough to scan more.
const DeclarationScanLimit = 4096

var headerCharsetRe = regexp.MustCompile(`(?i)charset=["']?([\w-]+)`)

// ContentTypeEncoding extracts the charset parameter from a Content-Type
// header value and returns its canonical name. It returns "" when the header
// is empty, has no charset, or names an unknown encoding.
func ContentTypeEncoding(contentType string) string {
	if contentType == "" {
		return ""
	}
	m := headerCharsetRe.FindStringSubmatch(contentType)
	if m == nil {
		return ""
	}
	return Canonical(m[1])
}

func declTemplate(name, value string) string {
	return name + `\s*=\s*["']?\s*` + value + `\s*["']?`
}

// bodyDeclarationRe matches the first meta charset, meta http-equiv or XML
// declaration, and stops at an opening body tag.
var bodyDeclarationRe = func() *regexp.Regexp {
	skipAttrs := `(?:\s+[^=<>/\s"'\x00-\x1f\x7f]+(?:\s*=\s*(?:'[^']*'|"[^"]*"|[^'"\s]+))?)*?`
	httpEquiv := declTemplate(`http-equiv`, `Content-Type`)
	content := declTemplate(`content`, `(?P<mime>[^;]+);\s*charset=(?P<charset>[\w-]+)`)
	charsetAttr := declTemplate(`charset`, `(?P<charset2>[\w-]+)`)
	xmlEncoding := declTemplate(`encoding`, `(?P<xmlcharset>[\w-]+)`)

	return regexp.MustCompile(`(?i)<\s*(?:meta` + skipAttrs +
		`(?:(?:\s+` + httpEquiv + `|\s+` + content + `){2}|\s+` + charsetAttr + `)` +
		`|\?xml\s[^>]+` + xmlEncoding +
		`|body)`)
}()

var declarationGroups = []int{
	bodyDeclarationRe.SubexpIndex("charset"),
	bodyDeclarationRe.SubexpIndex("charset2"),
	bodyDeclarationRe.SubexpIndex("xmlcharset"),
}

// BodyDeclaredEncoding looks for an encoding declared inside the document
// itself and returns its canonical name, or "" if there is none. Only the
// first DeclarationScanLimit bytes are scanned, directly on the raw bytes.
func BodyDeclaredEncoding(body []byte) string {
	chunk := body
	if len(chunk) > DeclarationScanLimit {
		chunk = chunk[:DeclarationScanLimit]
	}

	loc := bodyDeclarationRe.FindSubmatchIndex(chunk)
	if loc == nil {
		return ""
	}

	for _, group := range declarationGroups {
		start, end := loc[2*group], loc[2*group+1]
		if start >= 0 && end > start {
			return Canonical(string(chunk[start:end]))
		}
	}
	return ""
}

var boms = []struct {
	mark []byte
	name string
}{
	// longest first so UTF-32LE is not mistaken for UTF-16LE
	{[]byte{0x00, 0x00, 0xFE, 0xFF}, UTF32BE},
	{[]byte{0xFF, 0xFE, 0x00, 0x00}, UTF32LE},
	{[]byte{0xEF, 0xBB, 0xBF}, "utf-8"},
	{[]byte{0xFE, 0xFF}, "utf-16be"},
	{[]byte{0xFF, 0xFE}, "utf-16le"},
}

// ReadBOM returns the encoding named by a leading byte order mark and the
// mark itself. Both are empty when body has no BOM.
func ReadBOM(body []byte) (string, []byte) {
	for _, b := range boms {
		if bytes.HasPrefix(body, b.mark) {
			return b.name, b.mark
		}
	}
	return "", nil
}
