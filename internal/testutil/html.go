package testutil

import (
	"fmt"
	"strings"
)

// HTMLBuilder assembles small HTML documents for tests.
type HTMLBuilder struct {
	charset     string
	httpEquiv   string
	title       string
	links       []Link
	bodyContent string
}

// Link is an anchor added by HTMLBuilder.Link.
type Link struct {
	Href string
	Text string
}

// NewHTMLBuilder returns an empty builder.
func NewHTMLBuilder() *HTMLBuilder {
	return &HTMLBuilder{}
}

// Charset adds <meta charset=...>.
func (b *HTMLBuilder) Charset(label string) *HTMLBuilder {
	b.charset = label
	return b
}

// HTTPEquiv adds a <meta http-equiv="Content-Type"> declaring label.
func (b *HTMLBuilder) HTTPEquiv(label string) *HTMLBuilder {
	b.httpEquiv = label
	return b
}

// Title sets the page title.
func (b *HTMLBuilder) Title(title string) *HTMLBuilder {
	b.title = title
	return b
}

// Link adds an anchor to the body.
func (b *HTMLBuilder) Link(href, text string) *HTMLBuilder {
	b.links = append(b.links, Link{Href: href, Text: text})
	return b
}

// Body sets raw body content.
func (b *HTMLBuilder) Body(content string) *HTMLBuilder {
	b.bodyContent = content
	return b
}

// Build renders the document.
func (b *HTMLBuilder) Build() string {
	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	if b.charset != "" {
		sb.WriteString(fmt.Sprintf("  <meta charset=\"%s\">\n", b.charset))
	}
	if b.httpEquiv != "" {
		sb.WriteString(fmt.Sprintf("  <meta http-equiv=\"Content-Type\" content=\"text/html; charset=%s\">\n", b.httpEquiv))
	}
	if b.title != "" {
		sb.WriteString(fmt.Sprintf("  <title>%s</title>\n", b.title))
	}
	sb.WriteString("</head>\n<body>\n")

	if b.bodyContent != "" {
		sb.WriteString(b.bodyContent)
		sb.WriteString("\n")
	}
	for _, link := range b.links {
		sb.WriteString(fmt.Sprintf("  <a href=\"%s\">%s</a>\n", link.Href, link.Text))
	}

	sb.WriteString("</body>\n</html>")
	return sb.String()
}
