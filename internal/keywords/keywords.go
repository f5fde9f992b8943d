// Package keywords ranks noun-like Hangul tokens of a report body.
//
// It is a frequency ranking, not a morphological analysis: tokens are runs
// of Hangul syllables, common particles and verb endings are stripped from
// their tail, and a short stop list removes words every report carries.
package keywords

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultLimit is the number of keywords kept per report.
const DefaultLimit = 10

// minRunes is the shortest token kept after suffix stripping.
const minRunes = 2

// suffixes are stripped from token tails, longest first.
var suffixes = []string{
	"으로부터", "에서부터",
	"했으며", "하였다", "되었다", "으로써", "에서는", "에게서", "이라는", "으로는",
	"했다", "된다", "한다", "이다", "였다", "에서", "으로", "까지", "부터", "에게", "에는", "보다", "라는", "하는", "되는", "하며", "하고", "이며",
	"은", "는", "이", "가", "을", "를", "의", "에", "로", "와", "과", "도", "만", "며",
}

// stopWords never become keywords.
var stopWords = map[string]struct{}{
	"증권": {}, "리포트": {}, "자료": {}, "기준": {}, "대비": {}, "전년": {}, "전망": {},
	"예상": {}, "투자의견": {}, "목표주가": {}, "현재주가": {}, "주가": {}, "연구원": {},
	"애널리스트": {}, "억원": {}, "조원": {}, "분기": {}, "이번": {}, "지난": {}, "올해": {},
	"내년": {}, "때문": {}, "것으로": {}, "있는": {}, "없는": {}, "위한": {}, "통해": {},
}

// Extract returns at most limit keywords of text ordered by descending
// frequency. Ties keep the order of first appearance.
func Extract(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}

	type entry struct {
		word  string
		count int
		first int
	}
	index := make(map[string]*entry)
	var order []*entry

	for i, tok := range Tokenize(text) {
		e, ok := index[tok]
		if !ok {
			e = &entry{word: tok, first: i}
			index[tok] = e
			order = append(order, e)
		}
		e.count++
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})

	if len(order) > limit {
		order = order[:limit]
	}
	out := make([]string, 0, len(order))
	for _, e := range order {
		out = append(out, e.word)
	}
	return out
}

// Tokenize splits text into stripped Hangul tokens, dropping stop words
// and tokens shorter than two syllables.
func Tokenize(text string) []string {
	var out []string
	for _, run := range strings.FieldsFunc(text, func(r rune) bool { return !isHangul(r) }) {
		tok := stripSuffix(run)
		if utf8.RuneCountInString(tok) < minRunes {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func stripSuffix(tok string) string {
	for _, s := range suffixes {
		if strings.HasSuffix(tok, s) && utf8.RuneCountInString(tok)-utf8.RuneCountInString(s) >= minRunes {
			return strings.TrimSuffix(tok, s)
		}
	}
	return tok
}

func isHangul(r rune) bool {
	return r >= '가' && r <= '힣'
}
