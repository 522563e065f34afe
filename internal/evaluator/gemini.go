package evaluator

import (
	"context"
	"net/http"

	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL and HTTPClient override the public endpoint, e.g. in tests.
	BaseURL    string
	HTTPClient *http.Client
}

type geminiChat struct {
	client *genai.Client
	model  string
}

// NewGemini returns an evaluator backed by the Gemini API.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Client, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL, APIVersion: "v1beta"}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Message: "failed to create client", Err: err}
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	return &Client{
		provider: "gemini",
		llm:      &geminiChat{client: client, model: cfg.Model},
	}, nil
}

// Gemini has no separate system role here, so the rubric leads the prompt.
func (g *geminiChat) complete(ctx context.Context, system, user string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(system+"\n\n"+user), nil)
	if err != nil {
		return "", &ProviderError{Provider: "gemini", Message: "failed to generate evaluation", Err: err}
	}
	if result == nil {
		return "", &ProviderError{Provider: "gemini", Message: "no response generated"}
	}

	text, err := result.Text()
	if err != nil {
		return "", &ProviderError{Provider: "gemini", Message: "failed to extract response text", Err: err}
	}
	if text == "" {
		return "", &ProviderError{Provider: "gemini", Message: "empty response generated"}
	}
	return text, nil
}
