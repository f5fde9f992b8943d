package analysis

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Sentence length bounds, in runes, exclusive.
const (
	minSentenceRunes = 30
	maxSentenceRunes = 200

	// maxForeignTokens bounds the number of short non-Hangul tokens.
	maxForeignTokens = 5

	// fallbackSentences is used when no sentence passes every filter.
	fallbackSentences = 2
)

var (
	// Cleanup applied to the body before splitting.
	asciiParenthetical = regexp.MustCompile(`\([^가-힣]{1,30}\)`) // (QoQ -21%, YoY 6%)
	decorations        = regexp.MustCompile(`[’‘①②③④⑤]`)
	bulletDash         = regexp.MustCompile(`\s+[\->]\s+`)
	bulletArrow        = regexp.MustCompile(`\s*▶\s*`)
	enumerator         = regexp.MustCompile(`\d\)`)

	// Sentence boundaries.
	sentenceSplit = regexp.MustCompile(`[.?!:] `)

	// Sentence filters.
	foreignToken   = regexp.MustCompile(`[^가-힣]{1,7}\s`)
	numberRun      = regexp.MustCompile(`[\d\s\-.,/%]{10,}`)
	disallowedRune = regexp.MustCompile(`[^a-zA-Z가-힣\d\s\-,.()+%/~&”<>]`)
	tableRef       = regexp.MustCompile(`표\s?\d`)
	figureRef      = regexp.MustCompile(`그림\s?\d`)
)

// CleanBody removes parenthesized figures, enumerators and decorations,
// and turns bullet markers into sentence breaks.
func CleanBody(text string) string {
	text = asciiParenthetical.ReplaceAllString(text, "")
	text = decorations.ReplaceAllString(text, "")
	text = bulletDash.ReplaceAllString(text, ". ")
	text = bulletArrow.ReplaceAllString(text, ". ")
	text = enumerator.ReplaceAllString(text, "")
	return text
}

// SplitSentences splits cleaned text into sentences. A sentence ends at
// ".", "?", "!" or ":" followed by a space, or after a "다" followed by
// whitespace, which closes most Korean declaratives.
func SplitSentences(text string) []string {
	var out []string
	for _, part := range sentenceSplit.Split(text, -1) {
		out = append(out, splitDeclaratives(part)...)
	}
	return out
}

func splitDeclaratives(s string) []string {
	var out []string
	start := 0
	prev := rune(0)
	for i, r := range s {
		if prev == '다' && (r == ' ' || r == '\t') {
			if seg := strings.TrimSpace(s[start:i]); seg != "" {
				out = append(out, seg)
			}
			start = i
		}
		prev = r
	}
	if seg := strings.TrimSpace(s[start:]); seg != "" {
		out = append(out, seg)
	}
	return out
}

// IsOpinionSentence reports whether s reads like an analyst opinion rather
// than a table row, a caption or a source note.
func IsOpinionSentence(s string) bool {
	n := utf8.RuneCountInString(s)
	if n <= minSentenceRunes || n >= maxSentenceRunes {
		return false
	}
	if len(foreignToken.FindAllString(s, -1)) >= maxForeignTokens {
		return false
	}
	if numberRun.MatchString(s) || disallowedRune.MatchString(s) {
		return false
	}
	if tableRef.MatchString(s) || figureRef.MatchString(s) {
		return false
	}
	return !strings.Contains(s, "자료")
}

// OpinionText selects the opinion sentences of a report body and joins
// them with ". ". When no sentence passes every filter, the first
// sentences of acceptable length are used.
func OpinionText(text string) string {
	sents := SplitSentences(CleanBody(text))

	var picked []string
	for _, s := range sents {
		if IsOpinionSentence(s) {
			picked = append(picked, s)
		}
	}

	if len(picked) == 0 {
		for _, s := range sents {
			n := utf8.RuneCountInString(s)
			if n > minSentenceRunes && n < maxSentenceRunes && !strings.Contains(s, "자료") {
				picked = append(picked, s)
				if len(picked) == fallbackSentences {
					break
				}
			}
		}
	}

	return strings.ReplaceAll(strings.Join(picked, ". "), "..", ".")
}
