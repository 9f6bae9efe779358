package predictions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fightgenie/fightgenie/internal/models"
)

const defaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicGenerator produces predictions through the Anthropic messages API.
type AnthropicGenerator struct {
	client anthropic.Client
	model  string
	logger *slog.Logger
}

// NewAnthropicGenerator creates a generator using the given API key. An empty
// model name falls back to the default.
func NewAnthropicGenerator(apiKey, model string, logger *slog.Logger) *AnthropicGenerator {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicGenerator{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger,
	}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, event models.EventMeta, fights []models.Fight) (json.RawMessage, error) {
	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   maxResponseTokens,
		Temperature: anthropic.Float(samplingTemperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(event, fights))),
		},
	}

	resp, err := g.client.Messages.New(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("no response content")
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content = block.Text
			break
		}
	}
	if content == "" {
		return nil, fmt.Errorf("no text content in response")
	}

	g.logger.Debug("anthropic response received",
		"model", g.model,
		"event", event.Name,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens)

	return extractPrediction(content)
}
