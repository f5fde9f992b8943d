package analysis

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/crypto/sha3"
)

// DefaultMaxRunes is how much of the report body is analyzed. The
// current price and the analyst opinion sit at the top of page one.
const DefaultMaxRunes = 3000

// TextExtractor turns a downloaded document into plain text.
// limit is a hint: extraction may stop once limit runes are collected.
type TextExtractor interface {
	ExtractText(data []byte, limit int) (string, error)
}

// PDFText extracts text from PDF documents page by page.
type PDFText struct{}

// ExtractText implements TextExtractor. Malformed documents make the PDF
// reader panic; that is reported as an error.
func (PDFText) ExtractText(data []byte, limit int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMalformedDocument, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		if limit > 0 && utf8.RuneCountInString(b.String()) >= limit*2 {
			break
		}
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", ErrNoText
	}
	return b.String(), nil
}

// PrepareText trims text, removes line breaks without inserting spaces,
// and keeps the first maxRunes runes.
func PrepareText(text string, maxRunes int) string {
	text = strings.TrimSpace(text)
	text = strings.NewReplacer("\r", "", "\n", "").Replace(text)
	if maxRunes <= 0 {
		return text
	}

	n := 0
	for i := range text {
		if n == maxRunes {
			return text[:i]
		}
		n++
	}
	return text
}

// DocumentHash returns the hex SHA3-256 of data.
func DocumentHash(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
