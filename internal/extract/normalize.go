package extract

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoPDFText is returned when a PDF parses but yields no text.
var ErrNoPDFText = errors.New("no extractable text found in pdf")

// Normalize converts a fetched body to prose according to its content type.
// It never fails: unreadable PDFs produce empty text and anything that is not
// PDF or plain text is treated as HTML.
func Normalize(body []byte, contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case mediaType == "application/pdf" || bytes.HasPrefix(body, []byte("%PDF-")):
		text, err := FromPDF(body)
		if err != nil {
			return ""
		}
		return text
	case mediaType == "text/plain":
		return normalizeWhitespace(string(toUTF8(body, contentType)))
	default:
		return fromHTML(body, contentType).Text
	}
}

// FromPDF extracts the text of every readable page. The PDF library panics on
// some malformed inputs; those panics are returned as errors.
func FromPDF(body []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, pageErr := p.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "", ErrNoPDFText
	}
	return normalizeWhitespace(b.String()), nil
}
