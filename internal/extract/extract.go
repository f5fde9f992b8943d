// Package extract turns raw report records into candidate reports.
//
// A source hands over records as JSON objects or HTML table rows. Both are
// read through the Record interface, so the extraction rules are the same
// for every source. Extraction never fails with an error: a record that
// cannot become a report yields a Rejection describing why.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/nao1215/reportscan/internal/category"
	"github.com/nao1215/reportscan/internal/model"
	"github.com/nao1215/reportscan/internal/opinion"
	"golang.org/x/text/unicode/norm"
)

// Rejection tells why a record did not become a candidate.
type Rejection int

const (
	// RejectNone means the record was accepted.
	RejectNone Rejection = iota
	// RejectBrokerage means the issuing brokerage is not targeted.
	RejectBrokerage
	// RejectNoCode means no 6-digit company code could be found.
	RejectNoCode
	// RejectMissingField means a required attribute is absent or unreadable.
	RejectMissingField
	// RejectOutOfRange means the report predates the lower date bound.
	RejectOutOfRange
)

// String implements fmt.Stringer.
func (r Rejection) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectBrokerage:
		return "brokerage"
	case RejectNoCode:
		return "no_code"
	case RejectMissingField:
		return "missing_field"
	case RejectOutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

var (
	// titleCodePattern matches a 6-digit code in parentheses or brackets.
	titleCodePattern = regexp.MustCompile(`[(\[]\s*(\d{6})\s*[)\]]`)

	// annotationPattern matches bracketed annotations such as [기업분석] or (우).
	annotationPattern = regexp.MustCompile(`[(\[][0-9A-Za-z가-힣\s]*[)\]]`)

	codePattern = regexp.MustCompile(`^\d{6}$`)
	shortYear   = regexp.MustCompile(`^\d{2}-\d{1,2}-\d{1,2}$`)
)

// Extractor applies the field rules for one crawl.
// It is immutable after New and safe for concurrent use.
type Extractor struct {
	brokerages map[string]struct{}
	lowerBound string
}

// New creates an Extractor accepting reports from the given brokerages
// dated on or after lowerBound (YYYY-MM-DD). An empty lowerBound disables
// the range check.
func New(brokerages []string, lowerBound string) *Extractor {
	set := make(map[string]struct{}, len(brokerages))
	for _, b := range brokerages {
		set[NormalizeBrokerage(b)] = struct{}{}
	}
	return &Extractor{brokerages: set, lowerBound: lowerBound}
}

// Extract reads one record.
//
// The report date is checked first so that a page of foreign brokerages
// still signals the end of the requested window. Then the brokerage is
// matched, the company code located, and the remaining attributes read.
func (e *Extractor) Extract(rec Record) (model.Candidate, Rejection) {
	var c model.Candidate

	rawDate, _ := rec.Field(FieldReportDate)
	date, dateOK := NormalizeDate(rawDate)
	if dateOK && e.lowerBound != "" && date < e.lowerBound {
		return model.Candidate{}, RejectOutOfRange
	}

	rawBrokerage, _ := rec.Field(FieldBrokerage)
	c.Brokerage = NormalizeBrokerage(rawBrokerage)
	if _, ok := e.brokerages[c.Brokerage]; !ok {
		return model.Candidate{}, RejectBrokerage
	}

	title, _ := rec.Field(FieldTitle)
	c.Title = cleanText(title)

	code, ok := companyCode(rec, c.Title)
	if !ok {
		return model.Candidate{}, RejectNoCode
	}
	c.CompanyCode = code

	if name, ok := rec.Field(FieldCompanyName); ok && strings.TrimSpace(name) != "" {
		c.CompanyName = cleanText(name)
	} else {
		c.CompanyName = CompanyNameFromTitle(c.Title)
	}

	if !dateOK {
		return model.Candidate{}, RejectMissingField
	}
	c.ReportDate = date

	rawOpinion, _ := rec.Field(FieldOpinion)
	c.Opinion = opinion.Normalize(rawOpinion)
	if c.Opinion == "" {
		c.Opinion = opinion.NotRated
	}

	author, _ := rec.Field(FieldAuthor)
	c.Author = cleanText(author)

	rawTarget, _ := rec.Field(FieldTargetPrice)
	c.TargetEst = ParsePrice(rawTarget)

	link, _ := rec.Field(FieldPDFLink)
	c.PDFLink = strings.TrimSpace(link)

	if c.Title == "" || c.CompanyName == "" || c.Author == "" || c.PDFLink == "" {
		return model.Candidate{}, RejectMissingField
	}

	return c, RejectNone
}

// NormalizeBrokerage trims s and removes every whitespace rune.
func NormalizeBrokerage(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// CodeFromTitle returns the 6-digit code embedded in a title such as
// "삼성전자(005930) 메모리 업황 회복".
func CodeFromTitle(title string) (string, bool) {
	m := titleCodePattern.FindStringSubmatch(title)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// CompanyNameFromTitle derives the company name from a title carrying a
// code. The text before the code is used when there is any; otherwise the
// whole title minus the code is. Bracketed annotations are removed.
func CompanyNameFromTitle(title string) string {
	loc := titleCodePattern.FindStringIndex(title)
	if loc == nil {
		return ""
	}

	name := strings.TrimSpace(annotationPattern.ReplaceAllString(title[:loc[0]], ""))
	if name != "" {
		return name
	}
	rest := title[:loc[0]] + " " + title[loc[1]:]
	return strings.Join(strings.Fields(annotationPattern.ReplaceAllString(rest, "")), " ")
}

// ParsePrice strips thousands separators and a trailing 원.
// Anything that is not a non-negative integer becomes 0.
func ParsePrice(s string) int {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "원")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f == float64(int(f)) {
		return int(f)
	}
	return 0
}

// NormalizeDate converts YYYY-MM-DD, YYYY.MM.DD, YY.MM.DD or YYYY/MM/DD
// into YYYY-MM-DD. A trailing time of day is ignored.
func NormalizeDate(s string) (string, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", false
	}
	d := strings.NewReplacer(".", "-", "/", "-").Replace(strings.TrimRight(fields[0], "."))
	if shortYear.MatchString(d) {
		d = "20" + d
	}
	t, err := time.Parse("2006-1-2", d)
	if err != nil {
		return "", false
	}
	return t.Format(time.DateOnly), true
}

// companyCode prefers the code field. Numeric codes that lost their
// leading zeros in transit are padded back to six digits.
func companyCode(rec Record, title string) (string, bool) {
	if raw, ok := rec.Field(FieldCompanyCode); ok {
		if code, ok := category.NormalizeCode(raw); ok && codePattern.MatchString(code) {
			return code, true
		}
	}
	return CodeFromTitle(title)
}

// cleanText composes Hangul jamo into syllables and collapses whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
