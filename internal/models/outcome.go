package models

import (
	"strings"
	"time"
)

// FightResult is a scraped final result for one bout.
type FightResult struct {
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
	Method string `json:"method"`
}

// FightVerdict grades one predicted bout against its scraped result.
type FightVerdict struct {
	Fighter1        string `json:"fighter1"`
	Fighter2        string `json:"fighter2"`
	PredictedWinner string `json:"predicted_winner"`
	ActualWinner    string `json:"actual_winner"`
	Correct         bool   `json:"correct"`
	PredictedMethod string `json:"predicted_method"`
	ActualMethod    string `json:"actual_method"`
	MethodCorrect   bool   `json:"method_correct"`
}

// PredictionOutcome grades one stored prediction after its event concludes.
// One row per prediction, not per fight; bouts with no scraped result
// (cancellations) are excluded from FightOutcomes rather than marked wrong.
type PredictionOutcome struct {
	ID                 string         `json:"id"`
	PredictionID       string         `json:"prediction_id"`
	EventID            string         `json:"event_id"`
	FightOutcomes      []FightVerdict `json:"fight_outcomes"`
	ConfidenceAccuracy float64        `json:"confidence_accuracy"`
	CreatedAt          time.Time      `json:"created_at"`
}

// MethodCategory is a normalized finish-method family.
type MethodCategory string

const (
	MethodKO         MethodCategory = "ko/tko"
	MethodSubmission MethodCategory = "submission"
	MethodDecision   MethodCategory = "decision"
	MethodOther      MethodCategory = "other"
)

// NormalizeMethod maps the loosely-synonymous method strings used by the
// source site and the AI providers onto one category. KO and TKO are graded
// as the same family; all decision variants (unanimous, split, majority)
// collapse to decision.
func NormalizeMethod(raw string) MethodCategory {
	m := strings.ToLower(strings.TrimSpace(raw))
	m = strings.Trim(m, ".")

	switch {
	case m == "":
		return MethodOther
	case strings.Contains(m, "sub"):
		return MethodSubmission
	case strings.Contains(m, "dec"):
		return MethodDecision
	case strings.Contains(m, "ko") || strings.Contains(m, "tko") || strings.Contains(m, "knockout"):
		return MethodKO
	default:
		return MethodOther
	}
}

// MethodsMatch reports whether a predicted method and an actual method fall
// in the same normalized category. Unrecognized methods never match.
func MethodsMatch(predicted, actual string) bool {
	p := NormalizeMethod(predicted)
	a := NormalizeMethod(actual)
	if p == MethodOther || a == MethodOther {
		return strings.EqualFold(strings.TrimSpace(predicted), strings.TrimSpace(actual)) && predicted != ""
	}
	return p == a
}
