package evaluator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultGroqModel   = "llama-3.3-70b-versatile"
	defaultTemperature = 0.3
	defaultMaxTokens   = 500
)

type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type groqChat struct {
	model  string
	client *openai.Client
}

// NewGroq returns an evaluator backed by Groq's OpenAI-compatible chat endpoint.
func NewGroq(cfg GroqConfig) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultGroqModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		provider: "groq",
		llm: &groqChat{
			model:  cfg.Model,
			client: openai.NewClientWithConfig(oc),
		},
	}
}

func (g *groqChat) complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		return "", &ProviderError{Provider: "groq", Message: describeError(err), Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Provider: "groq", Message: "no choices in response"}
	}

	log.Debug().
		Str("model", g.model).
		Dur("elapsed", time.Since(start)).
		Msg("evaluation completed")

	return resp.Choices[0].Message.Content, nil
}

func describeError(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("unexpected status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("unexpected status %d", reqErr.HTTPStatusCode)
	}
	return "request failed"
}
