package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// DefaultClaudeModel is used when no model is configured.
	DefaultClaudeModel = "claude-3-5-haiku-latest"

	defaultClaudeMaxTokens = 512
)

// Claude summarizes with Anthropic Claude.
type Claude struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewClaude creates a Claude summarizer. baseURL is optional.
func NewClaude(apiKey, model string, maxTokens int, baseURL string) (*Claude, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("claude: %w", ErrMissingAPIKey)
	}
	if model == "" {
		model = DefaultClaudeModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Claude{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Name implements Summarizer.
func (c *Claude) Name() string { return NameClaude }

// Summarize implements Summarizer.
func (c *Claude) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude API call failed: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("claude: %w", ErrEmptyResponse)
	}
	return out, nil
}
