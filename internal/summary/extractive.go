package summary

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/nao1215/reportscan/internal/keywords"
)

// DefaultSentences is the number of sentences an extractive summary keeps.
const DefaultSentences = 3

var sentenceBoundary = regexp.MustCompile(`[.?!]\s+`)

// Extractive keeps the sentences whose words are most frequent across the
// whole opinion, in their original order.
type Extractive struct {
	sentences int
}

// NewExtractive creates an extractive summarizer keeping n sentences.
func NewExtractive(n int) *Extractive {
	if n <= 0 {
		n = DefaultSentences
	}
	return &Extractive{sentences: n}
}

// Name implements Summarizer.
func (e *Extractive) Name() string { return NameExtractive }

// Summarize implements Summarizer.
func (e *Extractive) Summarize(_ context.Context, text string) (string, error) {
	sents := splitSentences(text)
	if len(sents) == 0 {
		return "", ErrEmptyInput
	}
	if len(sents) <= e.sentences {
		return joinSentences(sents), nil
	}

	freq := make(map[string]int)
	tokens := make([][]string, len(sents))
	for i, s := range sents {
		tokens[i] = keywords.Tokenize(s)
		for _, tok := range tokens[i] {
			freq[tok]++
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(sents))
	for i, toks := range tokens {
		ranked[i].idx = i
		if len(toks) == 0 {
			continue
		}
		sum := 0
		for _, tok := range toks {
			sum += freq[tok]
		}
		ranked[i].score = float64(sum) / float64(len(toks))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	picked := ranked[:e.sentences]
	sort.Slice(picked, func(i, j int) bool { return picked[i].idx < picked[j].idx })

	out := make([]string, 0, len(picked))
	for _, p := range picked {
		out = append(out, sents[p.idx])
	}
	return joinSentences(out), nil
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceBoundary.Split(strings.TrimSpace(text), -1) {
		s = strings.TrimRight(strings.TrimSpace(s), ".?!")
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func joinSentences(sents []string) string {
	return strings.Join(sents, ". ") + "."
}
