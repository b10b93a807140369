// Package markov builds word-sequence fingerprints of text and measures the
// overlap between two of them.
//
// A Chain records, for every window of N consecutive words, the transition
// from the first N-1 words (the prefix) to the last one. Two texts that share
// long runs of identical wording share many transitions, which is what the
// Intersection counts.
package markov

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultOrder is the window length used when none is configured.
const DefaultOrder = 5

// prefixSep joins prefix words into a single map key. It cannot appear in a
// token because tokens only contain letters, digits and apostrophes.
const prefixSep = "\x1f"

// Chain is an immutable frequency table of word transitions.
type Chain struct {
	order int
	nodes map[string]map[string]int
	size  int
}

// NewChain fingerprints text using windows of order words. A non-positive
// order selects DefaultOrder.
func NewChain(text string, order int) *Chain {
	if order <= 0 {
		order = DefaultOrder
	}
	c := &Chain{order: order, nodes: make(map[string]map[string]int)}
	words := Tokenize(text)
	if len(words) < order {
		return c
	}
	for i := 0; i+order <= len(words); i++ {
		prefix := strings.Join(words[i:i+order-1], prefixSep)
		next := words[i+order-1]
		followers, ok := c.nodes[prefix]
		if !ok {
			followers = make(map[string]int)
			c.nodes[prefix] = followers
		}
		followers[next]++
		c.size++
	}
	return c
}

// Empty returns a chain with no transitions.
func Empty(order int) *Chain {
	return NewChain("", order)
}

// Size is the total number of recorded transitions.
func (c *Chain) Size() int {
	if c == nil {
		return 0
	}
	return c.size
}

// Order is the window length the chain was built with.
func (c *Chain) Order() int {
	if c == nil {
		return 0
	}
	return c.order
}

func (c *Chain) count(prefix, next string) int {
	if c == nil {
		return 0
	}
	return c.nodes[prefix][next]
}

// Tokenize splits text into lower-cased, NFKC-normalized words. Punctuation
// separates words and is dropped; apostrophes inside a word are kept.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ToLower(norm.NFKC.String(text))
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '’')
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'’")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
