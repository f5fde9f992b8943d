// Package category maps KRX company codes to industry labels.
//
// The reference table is a delimited file exported from the exchange
// listing (corplist.csv). Exports are commonly EUC-KR encoded; UTF-8 files,
// with or without a byte order mark, are accepted as well.
// A Table is loaded once and is read only afterwards, so it can be shared
// between goroutines without locking.
package category

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// Column headers of the reference table.
const (
	CodeColumn  = "종목코드"
	LabelColumn = "업종"
)

// codeLength is the length of a KRX stock code.
const codeLength = 6

var (
	// ErrMissingColumn is returned when the header lacks the code or label column.
	ErrMissingColumn = errors.New("reference table is missing a required column")

	// ErrEmptyTable is returned when the file contains no header row.
	ErrEmptyTable = errors.New("reference table is empty")
)

// Table is an immutable code to label index.
type Table struct {
	labels map[string]string
}

// Load reads the reference table at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the user's configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open category file: %w", err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return t, nil
}

// Parse reads a reference table from r, detecting EUC-KR or UTF-8.
func Parse(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read category table: %w", err)
	}

	text, err := decode(raw)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	codeIdx, labelIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case CodeColumn:
			codeIdx = i
		case LabelColumn:
			labelIdx = i
		}
	}
	if codeIdx < 0 || labelIdx < 0 {
		return nil, fmt.Errorf("%w: need %q and %q", ErrMissingColumn, CodeColumn, LabelColumn)
	}

	t := &Table{labels: make(map[string]string)}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if codeIdx >= len(rec) || labelIdx >= len(rec) {
			continue
		}

		code, ok := NormalizeCode(rec[codeIdx])
		if !ok {
			continue
		}
		// First label wins for duplicated codes.
		if _, exists := t.labels[code]; exists {
			continue
		}
		t.labels[code] = strings.TrimSpace(rec[labelIdx])
	}

	return t, nil
}

// NewTable builds a Table from an in-memory mapping. Codes are normalized.
func NewTable(m map[string]string) *Table {
	t := &Table{labels: make(map[string]string, len(m))}
	for k, v := range m {
		if code, ok := NormalizeCode(k); ok {
			t.labels[code] = v
		}
	}
	return t
}

// Lookup returns the label for code, or "" when code is not listed.
// A nil Table behaves as an empty one.
func (t *Table) Lookup(code string) string {
	if t == nil {
		return ""
	}
	normalized, ok := NormalizeCode(code)
	if !ok {
		return ""
	}
	return t.labels[normalized]
}

// Len returns the number of indexed codes.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.labels)
}

// NormalizeCode trims s and left pads it with zeros to six digits.
// Spreadsheet exports drop the leading zeros of codes such as 005930.
func NormalizeCode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > codeLength {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return strings.Repeat("0", codeLength-len(s)) + s, true
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decode returns raw as UTF-8 text. Valid UTF-8 is kept as is (minus a BOM),
// anything else is decoded as EUC-KR.
func decode(raw []byte) (string, error) {
	if bytes.HasPrefix(raw, utf8BOM) {
		return string(raw[len(utf8BOM):]), nil
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}

	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), korean.EUCKR.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("failed to decode EUC-KR table: %w", err)
	}
	return string(out), nil
}
