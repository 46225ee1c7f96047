package enhance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiEnhancer 通过 Gemini API 润色文本。
type GeminiEnhancer struct {
	client *genai.Client
	model  string
}

func NewGeminiEnhancer(ctx context.Context, apiKey, model string) (*GeminiEnhancer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiEnhancer{client: client, model: model}, nil
}

func (g *GeminiEnhancer) Model() string { return g.model }

func (g *GeminiEnhancer) Enhance(ctx context.Context, section, text string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(BuildPrompt(section, text)), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	out := CleanOutput(resp.Text())
	if out == "" {
		return "", errors.New("empty completion")
	}
	return out, nil
}
