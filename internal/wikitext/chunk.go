package wikitext

import (
	"regexp"
	"strings"
)

// Defaults for Parser.
const (
	DefaultMinWords = 5
	DefaultMaxWords = 32
	DefaultChunks   = 10
)

var sentenceEndRe = regexp.MustCompile(`([.!?…])["'”’)\]]*\s+`)

// Parser cuts stripped article text into search queries.
type Parser struct {
	// MinWords drops sentences too short to be a useful query.
	MinWords int
	// MaxWords truncates long sentences; engines ignore words past ~32.
	MaxWords int
	// DefaultChunks bounds the chunk count when the caller passes a
	// negative limit.
	DefaultChunks int
}

// DefaultParser returns a Parser with the package defaults.
func DefaultParser() Parser {
	return Parser{MinWords: DefaultMinWords, MaxWords: DefaultMaxWords, DefaultChunks: DefaultChunks}
}

// Chunk uses DefaultParser.
func Chunk(clean string, maxChunks int) []string {
	return DefaultParser().Chunk(clean, maxChunks)
}

// Chunk returns at most maxChunks distinct queries in reading order. A
// negative maxChunks means DefaultChunks; zero yields nothing. When there are
// more candidate sentences than the limit, an evenly spaced subset is chosen
// so the queries cover the whole article rather than its lead.
func (p Parser) Chunk(clean string, maxChunks int) []string {
	p = p.withDefaults()
	if maxChunks < 0 {
		maxChunks = p.DefaultChunks
	}
	if maxChunks == 0 {
		return nil
	}
	var candidates []string
	seen := make(map[string]struct{})
	for _, sentence := range Sentences(clean) {
		words := strings.Fields(sentence)
		if len(words) < p.MinWords {
			continue
		}
		if len(words) > p.MaxWords {
			words = words[:p.MaxWords]
		}
		q := strings.Join(words, " ")
		key := strings.ToLower(q)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		candidates = append(candidates, q)
	}
	if len(candidates) <= maxChunks {
		return candidates
	}
	out := make([]string, 0, maxChunks)
	for i := 0; i < maxChunks; i++ {
		out = append(out, candidates[i*len(candidates)/maxChunks])
	}
	return out
}

func (p Parser) withDefaults() Parser {
	if p.MinWords <= 0 {
		p.MinWords = DefaultMinWords
	}
	if p.MaxWords <= 0 {
		p.MaxWords = DefaultMaxWords
	}
	if p.MaxWords < p.MinWords {
		p.MaxWords = p.MinWords
	}
	if p.DefaultChunks <= 0 {
		p.DefaultChunks = DefaultChunks
	}
	return p
}

// Sentences splits text on line breaks and on sentence-final punctuation
// followed by whitespace. The punctuation stays with its sentence.
func Sentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		start := 0
		for _, loc := range sentenceEndRe.FindAllStringSubmatchIndex(line, -1) {
			// loc[1] is the end of the trailing whitespace
			end := loc[1]
			if s := strings.TrimSpace(line[start:end]); s != "" {
				out = append(out, s)
			}
			start = end
		}
		if s := strings.TrimSpace(line[start:]); s != "" {
			out = append(out, s)
		}
	}
	return out
}
