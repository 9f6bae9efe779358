package models

import "time"

// OddsSnapshot is one time-stamped bookmaker price for a fighter.
// Snapshots are append-only and pruned by age.
type OddsSnapshot struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	Fighter     string    `json:"fighter"`
	DecimalOdds float64   `json:"decimal_odds"`
	Book        string    `json:"book"`
	CapturedAt  time.Time `json:"captured_at"`
}

// ImpliedProbability converts decimal odds to the book's implied win
// probability, ignoring vig.
func (o OddsSnapshot) ImpliedProbability() float64 {
	if o.DecimalOdds <= 0 {
		return 0
	}
	return 1 / o.DecimalOdds
}

// MarketAnalysis records the edge between a model's confidence in a fighter
// and the market's implied probability at snapshot time.
type MarketAnalysis struct {
	ID                 string    `json:"id"`
	EventID            string    `json:"event_id"`
	Fighter            string    `json:"fighter"`
	ModelConfidence    float64   `json:"model_confidence"`    // 0-1
	ImpliedProbability float64   `json:"implied_probability"` // 0-1
	Edge               float64   `json:"edge"`                // confidence - implied
	CreatedAt          time.Time `json:"created_at"`
}
