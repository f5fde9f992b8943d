package extract

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Field names one attribute of a raw report record.
type Field int

// Report record attributes.
const (
	FieldTitle Field = iota
	FieldCompanyName
	FieldCompanyCode
	FieldReportDate
	FieldOpinion
	FieldAuthor
	FieldBrokerage
	FieldTargetPrice
	FieldPDFLink
)

// String returns a short lowercase name of f.
func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldCompanyName:
		return "company_name"
	case FieldCompanyCode:
		return "company_code"
	case FieldReportDate:
		return "report_date"
	case FieldOpinion:
		return "opinion"
	case FieldAuthor:
		return "author"
	case FieldBrokerage:
		return "brokerage"
	case FieldTargetPrice:
		return "target_price"
	case FieldPDFLink:
		return "pdf_link"
	default:
		return "unknown"
	}
}

// Record is one raw report row as delivered by a page source.
// Field returns the raw text of an attribute and whether it is present.
type Record interface {
	Field(f Field) (string, bool)
}

// KeyRules locate attributes in a decoded JSON object by key.
type KeyRules map[Field]string

// HankyungKeys are the keys used by the Hankyung consensus search API.
var HankyungKeys = KeyRules{
	FieldTitle:       "REPORT_TITLE",
	FieldCompanyName: "BUSINESS_NAME",
	FieldCompanyCode: "BUSINESS_CODE",
	FieldReportDate:  "REPORT_DATE",
	FieldOpinion:     "GRADE_VALUE",
	FieldAuthor:      "REPORT_WRITER",
	FieldBrokerage:   "OFFICE_NAME",
	FieldTargetPrice: "TARGET_STOCK_PRICES",
	FieldPDFLink:     "REPORT_FILEPATH",
}

// JSONRecord is a Record backed by a decoded JSON object.
type JSONRecord struct {
	obj  map[string]any
	keys KeyRules
	base *url.URL
}

// NewJSONRecord wraps obj. Relative document links are resolved against
// base when base is not nil.
func NewJSONRecord(obj map[string]any, keys KeyRules, base *url.URL) JSONRecord {
	return JSONRecord{obj: obj, keys: keys, base: base}
}

// Field implements Record. Numbers are rendered without exponent;
// null, boolean and nested values count as absent.
func (r JSONRecord) Field(f Field) (string, bool) {
	key, ok := r.keys[f]
	if !ok {
		return "", false
	}
	raw, ok := r.obj[key]
	if !ok {
		return "", false
	}

	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return "", false
	}

	if f == FieldPDFLink {
		s = resolveLink(r.base, s)
	}
	return s, true
}

// ColumnRules locate attributes in an HTML table row by cell index.
type ColumnRules map[Field]int

// ConsensusColumns is the column layout of the consensus analysis list:
// date, category, title, target price, opinion, author, provider,
// company info, attachment.
var ConsensusColumns = ColumnRules{
	FieldReportDate:  0,
	FieldTitle:       2,
	FieldTargetPrice: 3,
	FieldOpinion:     4,
	FieldAuthor:      5,
	FieldBrokerage:   6,
	FieldPDFLink:     8,
}

type cell struct {
	text string
	href string
}

// RowRecord is a Record backed by one <tr> of a result table.
type RowRecord struct {
	cells []cell
	cols  ColumnRules
	base  *url.URL
}

// NewRowRecord captures the cells of row. The link of a cell is the href
// of its first anchor.
func NewRowRecord(row *goquery.Selection, cols ColumnRules, base *url.URL) RowRecord {
	var cells []cell
	row.Find("td").Each(func(_ int, td *goquery.Selection) {
		c := cell{text: strings.TrimSpace(td.Text())}
		if href, ok := td.Find("a[href]").First().Attr("href"); ok {
			c.href = strings.TrimSpace(href)
		}
		cells = append(cells, c)
	})
	return RowRecord{cells: cells, cols: cols, base: base}
}

// Cells returns the number of cells in the row.
func (r RowRecord) Cells() int {
	return len(r.cells)
}

// Field implements Record. The document link is taken from the anchor of
// its cell; every other attribute is the cell text.
func (r RowRecord) Field(f Field) (string, bool) {
	idx, ok := r.cols[f]
	if !ok || idx < 0 || idx >= len(r.cells) {
		return "", false
	}
	c := r.cells[idx]

	if f == FieldPDFLink {
		if c.href == "" {
			return "", false
		}
		return resolveLink(r.base, c.href), true
	}
	return c.text, true
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if base == nil || href == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
