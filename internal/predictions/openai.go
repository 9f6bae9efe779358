package predictions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/fightgenie/fightgenie/internal/models"
)

const (
	defaultOpenAIModel  = "gpt-4o"
	samplingTemperature = 0.7
	maxResponseTokens   = 2000
)

// OpenAIGenerator produces predictions through the OpenAI chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIGenerator creates a generator using the given API key. An empty
// model name falls back to the default.
func NewOpenAIGenerator(apiKey, model string, logger *slog.Logger) *OpenAIGenerator {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, event models.EventMeta, fights []models.Fight) (json.RawMessage, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: samplingTemperature,
		MaxTokens:   maxResponseTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(event, fights)},
		},
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices")
	}

	content := resp.Choices[0].Message.Content
	g.logger.Debug("openai response received",
		"model", g.model,
		"event", event.Name,
		"total_tokens", resp.Usage.TotalTokens)

	return extractPrediction(content)
}
