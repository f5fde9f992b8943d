// Package summary condenses the analyst opinion sentences of a report.
//
// Three summarizers are available:
//   - extractive: picks the most representative sentences, offline
//   - gemini: Google Gemini through google.golang.org/genai
//   - claude: Anthropic Claude through anthropic-sdk-go
//
// LLM summarizers are usually wrapped in a Fallback so that an API outage
// degrades to the extractive summary instead of dropping reports.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Summarizer names accepted on the command line.
const (
	NameExtractive = "extractive"
	NameGemini     = "gemini"
	NameClaude     = "claude"
)

var (
	// ErrEmptyInput is returned when there is nothing to summarize.
	ErrEmptyInput = errors.New("nothing to summarize")

	// ErrMissingAPIKey is returned when an LLM summarizer has no API key.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrEmptyResponse is returned when the model answered without text.
	ErrEmptyResponse = errors.New("model returned no text")

	// ErrUnknownSummarizer is returned by New for an unknown name.
	ErrUnknownSummarizer = errors.New("unknown summarizer")
)

// systemPrompt instructs the LLM summarizers.
const systemPrompt = "당신은 증권사 리서치 리포트를 요약하는 애널리스트입니다. " +
	"주어진 애널리스트 의견 문장만을 근거로 투자 포인트를 한국어 2~3문장으로 요약하세요. " +
	"숫자는 원문 그대로 쓰고, 원문에 없는 내용은 추가하지 마세요."

// Summarizer turns analyst opinion text into a short summary.
type Summarizer interface {
	Name() string
	Summarize(ctx context.Context, text string) (string, error)
}

// Config selects and configures a summarizer.
type Config struct {
	// Name is one of NameExtractive, NameGemini, NameClaude.
	Name string

	// Model overrides the default model of an LLM summarizer.
	Model string

	// APIKey authenticates LLM summarizers.
	APIKey string

	// MaxTokens bounds the LLM answer.
	MaxTokens int

	// BaseURL overrides the API endpoint.
	BaseURL string

	// Fallback wraps LLM summarizers with the extractive one.
	Fallback bool

	Logger *slog.Logger
}

// Names lists the available summarizers.
func Names() []string {
	return []string{NameExtractive, NameGemini, NameClaude}
}

// New creates the summarizer described by cfg.
func New(ctx context.Context, cfg Config) (Summarizer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var s Summarizer
	switch cfg.Name {
	case "", NameExtractive:
		return NewExtractive(DefaultSentences), nil
	case NameGemini:
		g, err := NewGemini(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		s = g
	case NameClaude:
		c, err := NewClaude(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		s = c
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSummarizer, cfg.Name)
	}

	if cfg.Fallback {
		return NewFallback(s, NewExtractive(DefaultSentences), logger), nil
	}
	return s, nil
}

// Fallback uses Secondary whenever Primary fails.
type Fallback struct {
	primary   Summarizer
	secondary Summarizer
	logger    *slog.Logger
}

// NewFallback wraps primary with secondary.
func NewFallback(primary, secondary Summarizer, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

// Name implements Summarizer.
func (f *Fallback) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

// Summarize implements Summarizer.
func (f *Fallback) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}
	out, err := f.primary.Summarize(ctx, text)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	f.logger.Warn("summarizer failed, using fallback",
		"summarizer", f.primary.Name(),
		"fallback", f.secondary.Name(),
		"error", err)
	return f.secondary.Summarize(ctx, text)
}
