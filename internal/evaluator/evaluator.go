// Package evaluator scores and summarizes deals through an external
// inference API. The provider is an opaque collaborator: replies must match
// the requested JSON contract or the call fails.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/sablepoint/dealdesk/internal/models"
)

const scoreSystemPrompt = `You are an investment analyst at a venture fund.
Score the deal described by the user on a 0-100 scale across four components:
team (0-30), market (0-30), traction (0-25), terms (0-15).
Reply with a single JSON object, no prose:
{"total": <0-100>, "team": <0-30>, "market": <0-30>, "traction": <0-25>, "terms": <0-15>, "rationale": "<one sentence>"}`

const summarizeSystemPrompt = `You are an investment analyst. Summarize the
deal memo below in at most three sentences, leading with the strongest signal.`

// ScoreResult is the parsed evaluator verdict for a deal
type ScoreResult struct {
	Total     float64 `json:"total"`
	Team      float64 `json:"team"`
	Market    float64 `json:"market"`
	Traction  float64 `json:"traction"`
	Terms     float64 `json:"terms"`
	Rationale string  `json:"rationale"`
}

// Config holds provider settings for the evaluator
type Config struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"` // override for self-hosted gateways and tests
	Model   string `yaml:"model"`
}

// Evaluator calls the inference provider behind a guard
type Evaluator struct {
	client *openai.Client
	model  string
	guard  *Guard
}

// New creates an evaluator. An empty model defaults to gpt-4o-mini.
func New(config Config, guard *Guard) (*Evaluator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("evaluator API key not configured")
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if guard == nil {
		guard = NewGuard(DefaultGuardConfig())
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Evaluator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  config.Model,
		guard:  guard,
	}, nil
}

// Score asks the provider for a component-scored verdict on a deal.
// Malformed or out-of-range replies are errors, never silently zeroed.
func (e *Evaluator) Score(ctx context.Context, deal *models.Deal) (*ScoreResult, error) {
	reply, err := e.complete(ctx, scoreSystemPrompt, dealPrompt(deal))
	if err != nil {
		return nil, err
	}

	result, err := parseScoreReply(reply)
	if err != nil {
		return nil, fmt.Errorf("evaluator returned malformed score for deal %d: %w", deal.ID, err)
	}

	log.Debug().Int64("deal_id", deal.ID).Float64("total", result.Total).Msg("Deal scored")
	return result, nil
}

// Summarize condenses a deal memo into a short summary
func (e *Evaluator) Summarize(ctx context.Context, deal *models.Deal) (string, error) {
	if strings.TrimSpace(deal.Memo) == "" {
		return "", fmt.Errorf("deal %d has no memo to summarize", deal.ID)
	}

	reply, err := e.complete(ctx, summarizeSystemPrompt, deal.Memo)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// BreakerState exposes the guard state for health endpoints
func (e *Evaluator) BreakerState() string {
	return e.guard.State()
}

func (e *Evaluator) complete(ctx context.Context, system, user string) (string, error) {
	result, err := e.guard.Execute(func() (interface{}, error) {
		resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: e.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("inference call failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("inference returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func dealPrompt(deal *models.Deal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nSector: %s\nStage: %s\nCheck size: %.0f\nValuation: %.0f\n",
		deal.Company, deal.Sector, deal.Stage, deal.CheckSize, deal.Valuation)
	if deal.Memo != "" {
		fmt.Fprintf(&b, "\nMemo:\n%s\n", deal.Memo)
	}
	return b.String()
}

func parseScoreReply(reply string) (*ScoreResult, error) {
	// Tolerate a fenced reply, nothing more
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")

	var result ScoreResult
	decoder := json.NewDecoder(strings.NewReader(reply))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&result); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if result.Total < 0 || result.Total > 100 {
		return nil, fmt.Errorf("total out of range: %.2f", result.Total)
	}
	for name, bound := range map[string]struct{ value, max float64 }{
		"team":     {result.Team, 30},
		"market":   {result.Market, 30},
		"traction": {result.Traction, 25},
		"terms":    {result.Terms, 15},
	} {
		if bound.value < 0 || bound.value > bound.max {
			return nil, fmt.Errorf("%s component out of range: %.2f", name, bound.value)
		}
	}

	return &result, nil
}
