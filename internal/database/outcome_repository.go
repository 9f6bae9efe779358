package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fightgenie/fightgenie/internal/models"
)

// OutcomeRepository stores post-event grading rows: one row per stored
// prediction, written once the real results are in.
type OutcomeRepository struct {
	db *sql.DB
}

// NewOutcomeRepository creates a PostgreSQL-backed outcome repository.
func NewOutcomeRepository(db *sql.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// Create persists an outcome row. The fight verdicts are serialized as JSON.
func (r *OutcomeRepository) Create(ctx context.Context, outcome models.PredictionOutcome) error {
	if outcome.ID == "" {
		outcome.ID = uuid.New().String()
	}
	if outcome.CreatedAt.IsZero() {
		outcome.CreatedAt = time.Now().UTC()
	}

	verdictsJSON, err := json.Marshal(outcome.FightOutcomes)
	if err != nil {
		return fmt.Errorf("failed to marshal fight outcomes: %w", err)
	}

	query := `
		INSERT INTO prediction_outcomes (outcome_id, prediction_id, event_id, fight_outcomes, confidence_accuracy, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		outcome.ID, outcome.PredictionID, outcome.EventID,
		verdictsJSON, outcome.ConfidenceAccuracy, outcome.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	return nil
}

// GetByPrediction returns the outcome row for a prediction, or nil when the
// prediction has not been graded yet.
func (r *OutcomeRepository) GetByPrediction(ctx context.Context, predictionID string) (*models.PredictionOutcome, error) {
	query := `
		SELECT outcome_id, prediction_id, event_id, fight_outcomes, confidence_accuracy, created_at
		FROM prediction_outcomes
		WHERE prediction_id = $1
	`

	var outcome models.PredictionOutcome
	var verdictsJSON []byte
	err := r.db.QueryRowContext(ctx, query, predictionID).Scan(
		&outcome.ID, &outcome.PredictionID, &outcome.EventID,
		&verdictsJSON, &outcome.ConfidenceAccuracy, &outcome.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query outcome: %w", err)
	}

	if err := json.Unmarshal(verdictsJSON, &outcome.FightOutcomes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fight outcomes: %w", err)
	}
	return &outcome, nil
}

// ListUngradedEvents returns IDs of events dated before the cutoff that have
// stored predictions without a matching outcome row. These are the sync
// candidates.
func (r *OutcomeRepository) ListUngradedEvents(ctx context.Context, before time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT sp.event_id
		FROM stored_predictions sp
		JOIN events e ON e.event_id = sp.event_id
		WHERE e.event_date < $1
		  AND NOT EXISTS (
			SELECT 1 FROM prediction_outcomes po WHERE po.prediction_id = sp.prediction_id
		  )
		ORDER BY sp.event_id
	`

	rows, err := r.db.QueryContext(ctx, query, models.DateOnly(before))
	if err != nil {
		return nil, fmt.Errorf("failed to query ungraded events: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ModelAccuracy aggregates win-pick accuracy per model across all graded
// predictions.
type ModelAccuracy struct {
	Model         models.PredictionModel `json:"model"`
	Predictions   int                    `json:"predictions"`
	FightsGraded  int                    `json:"fights_graded"`
	FightsCorrect int                    `json:"fights_correct"`
}

// AccuracyByModel computes grading statistics by walking the stored verdict
// JSON. The verdict blobs are small; this is admin-surface reporting, not a
// hot path.
func (r *OutcomeRepository) AccuracyByModel(ctx context.Context) ([]ModelAccuracy, error) {
	query := `
		SELECT sp.model_used, po.fight_outcomes
		FROM prediction_outcomes po
		JOIN stored_predictions sp ON sp.prediction_id = po.prediction_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query accuracy: %w", err)
	}
	defer rows.Close()

	byModel := make(map[models.PredictionModel]*ModelAccuracy)
	for rows.Next() {
		var model models.PredictionModel
		var verdictsJSON []byte
		if err := rows.Scan(&model, &verdictsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan accuracy row: %w", err)
		}

		var verdicts []models.FightVerdict
		if err := json.Unmarshal(verdictsJSON, &verdicts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal verdicts: %w", err)
		}

		acc, ok := byModel[model]
		if !ok {
			acc = &ModelAccuracy{Model: model}
			byModel[model] = acc
		}
		acc.Predictions++
		for _, v := range verdicts {
			acc.FightsGraded++
			if v.Correct {
				acc.FightsCorrect++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var result []ModelAccuracy
	for _, model := range []models.PredictionModel{models.ModelGPT, models.ModelClaude} {
		if acc, ok := byModel[model]; ok {
			result = append(result, *acc)
		}
	}
	return result, nil
}
