package opinion

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"maps dash to NR", "-", NotRated},
		{"maps spaced not rated to NR", "Not Rated", NotRated},
		{"maps NA to NR", "na", NotRated},
		{"maps N/A to NR", "N/A", NotRated},
		{"maps korean no opinion to NR", "투자의견 없음", NotRated},
		{"maps korean neutral to HOLD", "중립", Hold},
		{"maps market perform to HOLD", "Market Perform", Hold},
		{"maps neutral to HOLD", "Neutral", Hold},
		{"maps korean buy to BUY", "매수", Buy},
		{"maps korean strong buy to STRONGBUY", "적극 매수", StrongBuy},
		{"passes unknown values through canonicalized", "Trading Buy", "TRADINGBUY"},
		{"keeps already normalized BUY", "BUY", Buy},
		{"returns empty for empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, expected %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"-", "매수", "Market Perform", "Outperform", "BUY", "적극매수", "투자의견없음", " hold "}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestKnown(t *testing.T) {
	t.Parallel()

	if !Known("중립") {
		t.Error("expected 중립 to be known")
	}
	if Known("Outperform") {
		t.Error("expected Outperform to be unknown")
	}
}
