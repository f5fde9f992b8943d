// Package opinion normalizes brokerage investment opinions.
//
// Brokerages publish opinions in a mix of Korean and English spellings
// ("매수", "Buy", "Not Rated", "-"). Normalize maps them onto a small closed
// vocabulary while keeping unknown values instead of rejecting them:
//
//	"매수"          -> "BUY"
//	"Market Perform" -> "HOLD"
//	"Trading Buy"    -> "TRADINGBUY" (unmapped, passed through)
package opinion

import (
	"strings"
	"unicode"
)

// Normalized opinion values.
const (
	Buy       = "BUY"
	StrongBuy = "STRONGBUY"
	Hold      = "HOLD"
	NotRated  = "NR"
)

// corrections maps canonicalized raw opinions to the normalized vocabulary.
// Keys are already uppercased with whitespace removed.
var corrections = map[string]string{
	"-":        NotRated,
	"NOTRATED": NotRated,
	"NA":       NotRated,
	"N/A":      NotRated,
	"투자의견없음":   NotRated,

	"중립":            Hold,
	"MARKETPERFORM": Hold,
	"NEUTRAL":       Hold,

	"매수":   Buy,
	"적극매수": StrongBuy,
}

// Normalize uppercases raw, removes every whitespace rune and applies the
// correction table. Values outside the table are returned in their
// canonical form. Normalize is idempotent.
func Normalize(raw string) string {
	key := canonical(raw)
	if v, ok := corrections[key]; ok {
		return v
	}
	return key
}

// Known reports whether raw maps to one of the corrected values.
func Known(raw string) bool {
	_, ok := corrections[canonical(raw)]
	return ok
}

func canonical(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, strings.ToUpper(raw))
}
