package predictions

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fightgenie/fightgenie/internal/models"
)

const systemPrompt = "You are an expert MMA analyst producing fight predictions from matchup data. Analyze each bout carefully and respond in the exact JSON format requested."

// buildPrompt renders the fight card into the analyst prompt sent to both
// providers. Response instructions pin the JSON shape so the blob can be
// graded later without provider-specific parsing.
func buildPrompt(event models.EventMeta, fights []models.Fight) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("EVENT: %s\n", event.Name))
	sb.WriteString(fmt.Sprintf("DATE: %s\n", event.Date.Format("January 2, 2006")))
	if event.City != "" {
		sb.WriteString(fmt.Sprintf("LOCATION: %s\n", event.Location()))
	}
	sb.WriteString("\nBOUTS:\n")
	for i, f := range fights {
		sb.WriteString(fmt.Sprintf("%d. %s vs %s (%s)\n", i+1, f.Fighter1, f.Fighter2, f.WeightClass))
	}

	sb.WriteString("\nFor each bout predict the winner, the finishing method, and your confidence.\n\n")
	sb.WriteString("=== RESPONSE INSTRUCTIONS ===\n")
	sb.WriteString("Respond with ONLY a JSON object in this exact shape:\n")
	sb.WriteString(`{"fights":[{"fighter1":"...","fighter2":"...","predictedWinner":"...","method":"...","confidence":75}]}`)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- One entry per bout, in the order listed above\n")
	sb.WriteString("- fighter1 and fighter2 must match the names given exactly\n")
	sb.WriteString("- method is one of: KO/TKO, Submission, Decision\n")
	sb.WriteString("- confidence is an integer from 0 to 100\n")
	sb.WriteString("- No markdown fences, no reasoning, no other text\n")

	return sb.String()
}

// extractPrediction pulls the JSON object out of a model response and
// validates it parses as prediction data. Models occasionally wrap output in
// markdown fences or preamble despite instructions.
func extractPrediction(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response: %s", truncate(content, 200))
	}
	raw := json.RawMessage(content[start : end+1])

	data, err := models.ParsePredictionData(raw)
	if err != nil {
		return nil, fmt.Errorf("response is not valid prediction data: %w", err)
	}
	if len(data.Fights) == 0 {
		return nil, fmt.Errorf("response contains no fight predictions")
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
