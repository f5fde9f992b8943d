package summary

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini summarizes with Google Gemini.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini summarizer. baseURL is optional.
func NewGemini(ctx context.Context, apiKey, model, baseURL string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Name implements Summarizer.
func (g *Gemini) Name() string { return NameGemini }

// Summarize implements Summarizer.
func (g *Gemini) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.1)),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), config)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	out := strings.TrimSpace(result.Text())
	if out == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return out, nil
}
