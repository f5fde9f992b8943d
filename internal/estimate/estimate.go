// Package estimate parses the current stock price and its reference date
// from the first page text of a research report.
//
// Reports quote the price the target is measured against near the top of
// the first page, in one of a few shapes:
//
//	현재주가(05/09) 78,000원
//	주가(2024.05.09): 78,000원
//	종가: 78,000원(24/05/09)
//
// The accepted grammar is
//
//	prefix  = 3 runes, none of them 목 or 표   (excludes 목표주가)
//	label   = ("주" | "종") "가"
//	sep     = [ \s \p{Zs} : ]{0,2}
//	price   = [ 0-9 , ]{0,10} "원"?
//	date    = "(" 1..10 runes that are neither Latin nor Hangul ")"
//	line    = prefix label sep price date sep price
//
// Whitespace includes Unicode space separators such as U+00A0 and U+3000,
// which PDF text extraction often leaves between the date and the price.
// The price is the first whitespace-led digit run after the label, and the
// date is the first parenthesized run of digits, dots and slashes.
// Dates without a year take the reference year; two-digit years get the
// century of the reference year.
package estimate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	linePattern  = regexp.MustCompile(`[^목표]{3}[주종]가[\s\p{Zs}:]{0,2}[\d,]{0,10}원?\([^A-Za-z가-힣]{1,10}\)[\s\p{Zs}:]{0,2}[\d,]{0,10}원?`)
	pricePattern = regexp.MustCompile(`[\s\p{Zs}][\d,]+`)
	datePattern  = regexp.MustCompile(`\([\d./]+\)`)
)

// prefixRunes is the length of the guard prefix in linePattern.
const prefixRunes = 3

// Estimate is a current price and the date it was quoted for.
type Estimate struct {
	// Price is in won. A matched but unreadable price yields 0.
	Price int

	// Date is the reference date as YYYY-MM-DD.
	Date string
}

// Parse finds the current price line in text. The year of ref completes
// dates that omit the year. It returns ErrNotFound when text contains no
// line matching the grammar or the date cannot be read.
func Parse(text string, ref time.Time) (Estimate, error) {
	line := linePattern.FindString(text)
	if line == "" {
		return Estimate{}, ErrNotFound
	}
	line = dropRunes(line, prefixRunes)

	rawPrice := pricePattern.FindString(line)
	if rawPrice == "" {
		return Estimate{}, fmt.Errorf("%w: no price in %q", ErrNotFound, line)
	}
	price := parsePrice(rawPrice)

	rawDate := datePattern.FindString(line)
	if rawDate == "" {
		return Estimate{}, fmt.Errorf("%w: no date in %q", ErrNotFound, line)
	}
	date, err := NormalizeDate(rawDate[1:len(rawDate)-1], ref.Year())
	if err != nil {
		return Estimate{}, err
	}

	return Estimate{Price: price, Date: date}, nil
}

// NormalizeDate converts a quoted date such as "05/09", "24.05.09" or
// "2024/5/9" into YYYY-MM-DD using year for the missing parts.
func NormalizeDate(s string, year int) (string, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("/", "-", ".", "-").Replace(s)

	y := strconv.Itoa(year)
	if strings.Count(s, "-") < 2 {
		s = y + "-" + s
	}
	if strings.Index(s, "-") == 2 {
		s = y[:2] + s
	}

	t, err := time.Parse("2006-1-2", s)
	if err != nil {
		return "", fmt.Errorf("%w: invalid date %q", ErrNotFound, s)
	}
	return t.Format(time.DateOnly), nil
}

// parsePrice strips separators; anything that is not a plain number is 0.
func parsePrice(raw string) int {
	digits := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if digits == "" {
		return 0
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

func dropRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[i:]
		}
		n--
	}
	return ""
}
