package summary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const opinionText = "메모리 가격 반등이 본격화된다. " +
	"메모리 수요 회복으로 실적 개선이 기대된다. " +
	"환율 변동성은 부담 요인이다. " +
	"메모리 가격 상승이 실적을 견인한다. " +
	"배당 정책은 유지될 전망."

func TestExtractive(t *testing.T) {
	t.Parallel()

	t.Run("keeps the most representative sentences in order", func(t *testing.T) {
		t.Parallel()
		got, err := NewExtractive(3).Summarize(context.Background(), opinionText)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "메모리 가격 반등이 본격화된다. 메모리 수요 회복으로 실적 개선이 기대된다. 메모리 가격 상승이 실적을 견인한다."
		if got != want {
			t.Errorf("got %q, expected %q", got, want)
		}
	})

	t.Run("returns short input unchanged", func(t *testing.T) {
		t.Parallel()
		got, err := NewExtractive(3).Summarize(context.Background(), "실적 개선이 기대된다.")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "실적 개선이 기대된다." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("fails on empty input", func(t *testing.T) {
		t.Parallel()
		_, err := NewExtractive(3).Summarize(context.Background(), "  ")
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("got %v, expected ErrEmptyInput", err)
		}
	})
}

type failingSummarizer struct{}

func (failingSummarizer) Name() string { return "failing" }

func (failingSummarizer) Summarize(context.Context, string) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestFallback(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := NewFallback(failingSummarizer{}, NewExtractive(1), logger)

	if f.Name() != "failing+extractive" {
		t.Errorf("got name %q", f.Name())
	}

	got, err := f.Summarize(context.Background(), "실적 개선이 기대된다. 메모리 가격 반등.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == "" {
		t.Error("expected fallback summary")
	}

	if _, err := f.Summarize(context.Background(), ""); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("got %v, expected ErrEmptyInput", err)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("defaults to extractive", func(t *testing.T) {
		t.Parallel()
		s, err := New(context.Background(), Config{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Name() != NameExtractive {
			t.Errorf("got %q, expected extractive", s.Name())
		}
	})

	t.Run("requires an API key for LLM summarizers", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{NameGemini, NameClaude} {
			_, err := New(context.Background(), Config{Name: name})
			if !errors.Is(err, ErrMissingAPIKey) {
				t.Errorf("%s: got %v, expected ErrMissingAPIKey", name, err)
			}
		}
	})

	t.Run("rejects an unknown summarizer", func(t *testing.T) {
		t.Parallel()
		_, err := New(context.Background(), Config{Name: "kobart"})
		if !errors.Is(err, ErrUnknownSummarizer) {
			t.Errorf("got %v, expected ErrUnknownSummarizer", err)
		}
	})

	t.Run("wraps LLM summarizers with a fallback", func(t *testing.T) {
		t.Parallel()
		s, err := New(context.Background(), Config{Name: NameClaude, APIKey: "sk-ant-test", Fallback: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Name() != "claude+extractive" {
			t.Errorf("got %q", s.Name())
		}
	})
}

func TestClaude(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "메모리") {
			http.Error(w, "missing prompt", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "메모리 업황 회복으로 실적 개선이 예상된다."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 20}
		}`)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClaude("sk-ant-test", "", 0, srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := c.Summarize(context.Background(), opinionText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "메모리 업황 회복으로 실적 개선이 예상된다." {
		t.Errorf("got %q", got)
	}
}

func TestGemini(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates": [{"content": {"role": "model", "parts": [{"text": "실적 개선 전망."}]}}]}`)
	}))
	t.Cleanup(srv.Close)

	g, err := NewGemini(context.Background(), "AIza-test", "", srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := g.Summarize(context.Background(), opinionText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "실적 개선 전망." {
		t.Errorf("got %q", got)
	}
}
