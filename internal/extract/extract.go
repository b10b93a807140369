// Package extract turns fetched candidate pages into plain prose that can be
// fingerprinted alongside article text.
package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Document is a simplified representation of extracted page content.
type Document struct {
	Title string
	Text  string
}

// Strip returns only the visible prose of an HTML document.
func Strip(input []byte) string {
	return FromHTML(input).Text
}

// FromHTML extracts readable text from HTML, preferring <main> or <article>,
// falling back to <body> and then the whole document. Scripts, styles,
// navigation, footers and consent banners are skipped. Malformed markup never
// fails: the parser recovers, and if it cannot, tags are stripped from the
// raw bytes.
func FromHTML(input []byte) Document {
	return fromHTML(input, "")
}

func fromHTML(input []byte, contentType string) Document {
	input = toUTF8(input, contentType)
	node, err := html.Parse(bytes.NewReader(input))
	if err != nil || node == nil {
		return Document{Text: normalizeWhitespace(stripTags(input))}
	}

	title := strings.TrimSpace(findTitle(node))
	content := findFirst(node, "main")
	if content == nil {
		content = findFirst(node, "article")
	}
	if content == nil {
		content = findFirst(node, "body")
	}
	if content == nil {
		content = node
	}
	var b strings.Builder
	collectText(&b, content, false)
	return Document{Title: title, Text: normalizeWhitespace(b.String())}
}

// toUTF8 decodes input using the charset declared in contentType, a BOM, or a
// <meta> tag, in that order. Undecodable input is returned unchanged.
func toUTF8(input []byte, contentType string) []byte {
	enc, name, _ := charset.DetermineEncoding(input, contentType)
	if enc == nil || name == "utf-8" {
		return input
	}
	out, err := enc.NewDecoder().Bytes(input)
	if err != nil {
		return input
	}
	return out
}

func findTitle(n *html.Node) string {
	head := findFirst(n, "head")
	if head == nil {
		return ""
	}
	t := findFirst(head, "title")
	if t == nil || t.FirstChild == nil {
		return ""
	}
	return t.FirstChild.Data
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findFirst(c, tag); res != nil {
			return res
		}
	}
	return nil
}

func collectText(b *strings.Builder, n *html.Node, inPre bool) {
	if n.Type == html.ElementNode {
		if isBoilerplateContainer(n) {
			return
		}
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "template", "nav", "footer", "aside", "iframe", "head", "svg":
			return
		case "pre", "code":
			inPre = true
		case "br", "hr":
			b.WriteString("\n")
		case "p", "h1", "h2", "h3", "h4", "h5", "h6", "li", "ul", "ol", "div", "tr", "blockquote":
			b.WriteString("\n")
		}
	}

	if n.Type == html.TextNode {
		data := n.Data
		if !inPre {
			data = strings.ReplaceAll(data, "\t", " ")
			data = strings.ReplaceAll(data, "\r", " ")
		}
		b.WriteString(data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c, inPre)
	}

	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "p", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote":
			b.WriteString("\n\n")
		case "li", "div", "tr":
			b.WriteString("\n")
		case "pre", "code":
			b.WriteString("\n")
		}
	}
}

// isBoilerplateContainer reports whether the element looks like a cookie or
// consent banner.
func isBoilerplateContainer(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if key != "id" && key != "class" && !strings.HasPrefix(key, "data-") && key != "aria-label" && key != "role" {
			continue
		}
		if containsAny(strings.ToLower(attr.Val), []string{"cookie", "consent", "gdpr"}) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// stripTags is the last-resort scanner for input the HTML parser rejected.
func stripTags(input []byte) string {
	var b strings.Builder
	inTag := false
	for _, r := range string(input) {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
			b.WriteByte(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return html.UnescapeString(b.String())
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.Join(strings.Fields(line), " ")
		if trimmed == "" {
			// keep at most one consecutive blank
			if len(out) > 0 && out[len(out)-1] == "" {
				continue
			}
			out = append(out, "")
			continue
		}
		out = append(out, trimmed)
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
