// Package evaluator scores a candidate answer against the rubric and
// proposes the next question, using a remote chat model.
package evaluator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/interview-server-go/internal/structure"
)

// DefaultCriteria is the rubric applied to every scored answer.
const DefaultCriteria = "System Design, Technical Evidence, Clarity, Problem-solving approach, Job requirement alignment"

const historyAnswerLimit = 200

type HistoryItem struct {
	Question string
	Answer   string
}

type Request struct {
	Criteria       string
	Question       string
	Answer         string
	JobDescription string
	QuestionIndex  int
	// Next steers generation of the following question.
	Next    structure.Context
	History []HistoryItem
}

type Evaluation struct {
	Score    float64  `json:"score"`
	Missing  []string `json:"missing"`
	Followup string   `json:"followup"`
	Complete bool     `json:"complete"`
}

type Evaluator interface {
	Evaluate(ctx context.Context, req Request) (*Evaluation, error)
}

// ProviderError wraps a failed upstream call.
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s (%v)", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// completer sends one system+user exchange and returns the raw reply.
type completer interface {
	complete(ctx context.Context, system, user string) (string, error)
}

// Client turns a chat model into an Evaluator.
type Client struct {
	provider string
	llm      completer
}

func (c *Client) Provider() string {
	return c.provider
}

func (c *Client) Evaluate(ctx context.Context, req Request) (*Evaluation, error) {
	if req.Criteria == "" {
		req.Criteria = DefaultCriteria
	}

	content, err := c.llm.complete(ctx, systemPrompt, buildUserPrompt(req))
	if err != nil {
		return nil, err
	}

	eval, ok := parseEvaluation(content)
	if !ok {
		log.Warn().
			Str("provider", c.provider).
			Int("questionIndex", req.QuestionIndex).
			Msg("evaluator reply was not usable json, using parse fallback")
	}
	return eval, nil
}
