package transcribe

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

const defaultTranscribeTimeout = 60 * time.Second

type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GroqWhisper calls Groq's OpenAI-compatible /audio/transcriptions endpoint.
type GroqWhisper struct {
	model  string
	client *openai.Client
}

func NewGroqWhisper(cfg GroqConfig) *GroqWhisper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTranscribeTimeout
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-large-v3"
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &GroqWhisper{
		model:  cfg.Model,
		client: openai.NewClientWithConfig(oc),
	}
}

func (g *GroqWhisper) Transcribe(ctx context.Context, audio []byte, filename string) string {
	if audio == nil {
		return SentinelNotFound
	}
	if len(audio) < MinAudioBytes {
		log.Warn().Int("bytes", len(audio)).Msg("audio too small, skipping transcription")
		return SentinelTooShort
	}

	start := time.Now()
	resp, err := g.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    g.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatJSON,
	})
	elapsed := time.Since(start)
	if err != nil {
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("transcription request failed")
		return classifyError(err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return SentinelNoSpeech
	}

	log.Info().
		Int("bytes", len(audio)).
		Int("chars", len(text)).
		Dur("elapsed", elapsed).
		Msg("transcription successful")

	return text
}

// classifyError maps an upstream failure onto a sentinel. Transport failures
// never reached the service; anything else without a structured error body
// is a generic service error.
func classifyError(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return SentinelUnableToProcess
	}

	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return SentinelServiceError
	}

	msg := strings.ToLower(apiErr.Message)
	switch {
	case strings.Contains(msg, "could not process file"):
		return SentinelUnsupported
	case strings.Contains(msg, "invalid"):
		return SentinelInvalid
	default:
		return SentinelUnavailable
	}
}
