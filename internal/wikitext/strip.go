// Package wikitext turns article wikicode into plain prose and cuts that
// prose into search-engine sized query chunks.
package wikitext

import (
	"html"
	"regexp"
	"strings"
)

var (
	commentRe   = regexp.MustCompile(`(?s)<!--.*?-->`)
	refBlockRe  = regexp.MustCompile(`(?is)<ref[^>/]*>.*?</ref\s*>`)
	refSingleRe = regexp.MustCompile(`(?i)<ref[^>]*/>`)
	// content of these tags is never prose
	dropBlockRe  = regexp.MustCompile(`(?is)<(math|gallery|syntaxhighlight|source|pre|score|timeline|nowiki)[^>]*>.*?</(?:math|gallery|syntaxhighlight|source|pre|score|timeline|nowiki)\s*>`)
	tagRe        = regexp.MustCompile(`</?[A-Za-z][^>]*>`)
	innerLinkRe  = regexp.MustCompile(`\[\[([^\[\]]*)\]\]`)
	extLinkRe    = regexp.MustCompile(`\[(?:https?:|ftp:)?//[^\s\]]+(?:\s+([^\]]*))?\]`)
	bareURLRe    = regexp.MustCompile(`https?://[^\s<>\]]+`)
	quotesRe     = regexp.MustCompile(`'{2,5}`)
	headingRe    = regexp.MustCompile(`(?m)^\s*=+\s*(.*?)\s*=+\s*$`)
	listMarkRe   = regexp.MustCompile(`(?m)^[*#:;]+\s*`)
	magicWordRe  = regexp.MustCompile(`__[A-Z]+__`)
	hrRe         = regexp.MustCompile(`(?m)^-{4,}\s*$`)
	nonProseNSRe = regexp.MustCompile(`(?i)^\s*:?\s*(file|image|media|category|datei|fichier|bild|kategorie)\s*:`)
	interwikiRe  = regexp.MustCompile(`^\s*[a-z]{2,3}(-[a-z]+)?\s*:`)
)

// Strip removes wiki syntax from markup and returns the remaining prose.
// Paragraphs stay on separate lines; whitespace inside a line is collapsed.
func Strip(markup string) string {
	s := strings.ReplaceAll(markup, "\r\n", "\n")
	s = commentRe.ReplaceAllString(s, "")
	s = refBlockRe.ReplaceAllString(s, "")
	s = refSingleRe.ReplaceAllString(s, "")
	s = dropBlockRe.ReplaceAllString(s, "")
	s = removeNested(s, "{{", "}}")
	s = removeNested(s, "{|", "|}")
	s = stripWikiLinks(s)
	s = extLinkRe.ReplaceAllString(s, "$1")
	s = bareURLRe.ReplaceAllString(s, "")
	s = tagRe.ReplaceAllString(s, "")
	s = magicWordRe.ReplaceAllString(s, "")
	s = hrRe.ReplaceAllString(s, "")
	s = headingRe.ReplaceAllString(s, "$1")
	s = listMarkRe.ReplaceAllString(s, "")
	s = quotesRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return collapseWhitespace(s)
}

// removeNested deletes every balanced open...close span, including nested
// ones. An unterminated span runs to the end of the text.
func removeNested(s, open, close string) string {
	if !strings.Contains(s, open) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	depth := 0
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], open):
			depth++
			i += len(open)
		case depth > 0 && strings.HasPrefix(s[i:], close):
			depth--
			i += len(close)
		default:
			if depth == 0 {
				b.WriteByte(s[i])
			}
			i++
		}
	}
	return b.String()
}

// stripWikiLinks replaces [[target|label]] with its label, innermost first so
// that links nested in image captions resolve before the image is dropped.
func stripWikiLinks(s string) string {
	for i := 0; i < 8 && strings.Contains(s, "[["); i++ {
		next := innerLinkRe.ReplaceAllStringFunc(s, func(m string) string {
			return linkLabel(m[2 : len(m)-2])
		})
		if next == s {
			break
		}
		s = next
	}
	// leftovers from unbalanced brackets
	s = strings.ReplaceAll(s, "[[", "")
	return strings.ReplaceAll(s, "]]", "")
}

func linkLabel(inner string) string {
	if nonProseNSRe.MatchString(inner) {
		return ""
	}
	target, label, hasLabel := strings.Cut(inner, "|")
	if !hasLabel && interwikiRe.MatchString(target) && !strings.HasPrefix(strings.TrimSpace(target), ":") {
		// bare interlanguage links sit at the end of articles
		return ""
	}
	if hasLabel {
		if i := strings.LastIndex(label, "|"); i >= 0 {
			label = label[i+1:]
		}
		if strings.TrimSpace(label) != "" {
			return label
		}
		// pipe trick: [[Paris, Texas|]] -> Paris
		target = strings.TrimSpace(target)
		if i := strings.IndexAny(target, ",("); i > 0 {
			target = target[:i]
		}
	}
	target = strings.TrimPrefix(strings.TrimSpace(target), ":")
	if i := strings.Index(target, "#"); i == 0 {
		target = target[1:]
	}
	return strings.TrimSpace(target)
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
