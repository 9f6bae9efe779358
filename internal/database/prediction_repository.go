package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fightgenie/fightgenie/internal/models"
)

// PredictionRepository stores the immutable prediction blobs keyed by
// (event_id, card_type, model_used). A unique constraint on that tuple backs
// up the in-process single-flight guard in the prediction service.
type PredictionRepository struct {
	db *sql.DB
}

// NewPredictionRepository creates a PostgreSQL-backed prediction repository.
func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Get returns the stored prediction for a key, or nil when none exists.
func (r *PredictionRepository) Get(ctx context.Context, eventID string, card models.CardType, model models.PredictionModel) (*models.StoredPrediction, error) {
	query := `
		SELECT prediction_id, event_id, card_type, model_used, prediction_data, created_at
		FROM stored_predictions
		WHERE event_id = $1 AND card_type = $2 AND model_used = $3
	`

	var p models.StoredPrediction
	err := r.db.QueryRowContext(ctx, query, eventID, card, model).Scan(
		&p.ID, &p.EventID, &p.CardType, &p.Model, &p.Data, &p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query prediction: %w", err)
	}
	return &p, nil
}

// Create persists a freshly generated prediction. When a concurrent writer
// won the race on the unique key, the already-stored row is returned instead
// so both callers observe identical bytes.
func (r *PredictionRepository) Create(ctx context.Context, p models.StoredPrediction) (*models.StoredPrediction, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO stored_predictions (prediction_id, event_id, card_type, model_used, prediction_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query, p.ID, p.EventID, p.CardType, p.Model, []byte(p.Data), p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return r.Get(ctx, p.EventID, p.CardType, p.Model)
		}
		return nil, fmt.Errorf("failed to insert prediction: %w", err)
	}
	return &p, nil
}

// ListByEvent returns all stored predictions for an event.
func (r *PredictionRepository) ListByEvent(ctx context.Context, eventID string) ([]models.StoredPrediction, error) {
	query := `
		SELECT prediction_id, event_id, card_type, model_used, prediction_data, created_at
		FROM stored_predictions
		WHERE event_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var predictions []models.StoredPrediction
	for rows.Next() {
		var p models.StoredPrediction
		if err := rows.Scan(&p.ID, &p.EventID, &p.CardType, &p.Model, &p.Data, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
