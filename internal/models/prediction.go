package models

import (
	"encoding/json"
	"strings"
	"time"
)

// PredictionModel identifies which external AI provider generated a prediction.
type PredictionModel string

const (
	ModelGPT    PredictionModel = "gpt"
	ModelClaude PredictionModel = "claude"
)

// Valid reports whether the model is one of the supported providers.
func (m PredictionModel) Valid() bool {
	return m == ModelGPT || m == ModelClaude
}

// ParsePredictionModel normalizes user-supplied model strings.
func ParsePredictionModel(raw string) (PredictionModel, bool) {
	m := PredictionModel(strings.ToLower(strings.TrimSpace(raw)))
	return m, m.Valid()
}

// StoredPrediction is an immutable cached prediction blob for one
// (event, card, model) tuple. The blob is generated at most once per tuple;
// the only mutation path is deletion followed by regeneration.
type StoredPrediction struct {
	ID        string          `json:"id"`
	EventID   string          `json:"event_id"`
	CardType  CardType        `json:"card_type"`
	Model     PredictionModel `json:"model_used"`
	Data      json.RawMessage `json:"prediction_data"`
	CreatedAt time.Time       `json:"created_at"`
}

// FightPrediction is one predicted bout inside a prediction blob.
type FightPrediction struct {
	Fighter1        string  `json:"fighter1"`
	Fighter2        string  `json:"fighter2"`
	PredictedWinner string  `json:"predictedWinner"`
	Method          string  `json:"method"`
	Confidence      float64 `json:"confidence"` // 0-100
}

// PredictionData is the structure the generators produce and outcome grading
// consumes. Stored blobs are treated as opaque by the repository; only the
// grader parses them, tolerantly.
type PredictionData struct {
	Fights []FightPrediction `json:"fights"`
}

// ParsePredictionData decodes a stored blob. Unknown fields are ignored so
// provider-specific extras (betting analysis, parlays) survive the round trip.
func ParsePredictionData(raw json.RawMessage) (*PredictionData, error) {
	var data PredictionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
