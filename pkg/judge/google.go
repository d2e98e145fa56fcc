package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGoogleModel = "gemini-2.0-flash"

// GoogleProvider completes judge prompts with Google Gemini models.
type GoogleProvider struct {
	client *genai.Client
	model  string
}

// NewGoogleProvider builds a provider bound to one Gemini model. The context
// covers client construction only. An empty model selects a small default
// suitable for judging.
func NewGoogleProvider(ctx context.Context, apiKey, model string) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, errors.New("google: api key is required")
	}
	if model == "" {
		model = defaultGoogleModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("creating google client: %w", err)
	}
	return &GoogleProvider{client: client, model: model}, nil
}

// Name returns "google".
func (p *GoogleProvider) Name() string { return "google" }

// Model returns the bound model name.
func (p *GoogleProvider) Model() string { return p.model }

// Complete sends a generate-content request and returns the concatenated
// text parts of the response, skipping thinking blocks.
func (p *GoogleProvider) Complete(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	temp := float32(req.Temperature)
	cfg.Temperature = &temp
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("google request failed: %w", err)
	}

	var sb strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text == "" || part.Thought {
				continue
			}
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("google: empty response content")
	}
	return sb.String(), nil
}
