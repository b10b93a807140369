package copyvio

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/hyperifyio/copyvios/internal/markov"
)

// Result is the outcome of one Check or Compare call. It is not modified
// after being returned.
type Result struct {
	Violation  bool
	Confidence float64
	// URL is the best matching candidate, empty when none scored above zero.
	URL string
	// Queries is the number of search queries issued.
	Queries int

	ArticleChain *markov.Chain
	SourceChain  *markov.Chain
	DeltaChain   *markov.Intersection

	CheckID string
	Elapsed time.Duration
}

// Summary is the serializable part of a Result.
type Summary struct {
	CheckID     string  `json:"check_id"`
	Violation   bool    `json:"violation"`
	Confidence  float64 `json:"confidence"`
	URL         string  `json:"url,omitempty"`
	Queries     int     `json:"queries"`
	ArticleSize int     `json:"article_size"`
	SourceSize  int     `json:"source_size"`
	DeltaSize   int     `json:"delta_size"`
	Elapsed     string  `json:"elapsed"`
}

// Summary drops the chains and keeps their sizes.
func (r *Result) Summary() Summary {
	return Summary{
		CheckID:     r.CheckID,
		Violation:   r.Violation,
		Confidence:  r.Confidence,
		URL:         r.URL,
		Queries:     r.Queries,
		ArticleSize: r.ArticleChain.Size(),
		SourceSize:  r.SourceChain.Size(),
		DeltaSize:   r.DeltaChain.Size(),
		Elapsed:     r.Elapsed.Round(time.Millisecond).String(),
	}
}

// Percent renders the confidence as a percentage rounded to two decimals,
// without trailing zeros: 0.8751 -> "87.51%", 0.5 -> "50%".
func (r *Result) Percent() string {
	return FormatPercent(r.Confidence)
}

// FormatPercent formats a confidence in [0,1] like Result.Percent.
func FormatPercent(confidence float64) string {
	return strconv.FormatFloat(math.Round(confidence*10000)/100, 'f', -1, 64) + "%"
}

func (r *Result) String() string {
	verdict := "no violation"
	if r.Violation {
		verdict = "violation"
	}
	if r.URL == "" {
		return fmt.Sprintf("%s (%s confidence, %d queries)", verdict, r.Percent(), r.Queries)
	}
	return fmt.Sprintf("%s (%s confidence, %d queries) at %s", verdict, r.Percent(), r.Queries, r.URL)
}

// GoString is the debug form used by %#v.
func (r *Result) GoString() string {
	return fmt.Sprintf("copyvio.Result{Violation:%t, Confidence:%v, URL:%q, Queries:%d}", r.Violation, r.Confidence, r.URL, r.Queries)
}
