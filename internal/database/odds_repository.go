package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fightgenie/fightgenie/internal/models"
)

// OddsRepository stores append-only bookmaker snapshots and the market
// analysis rows derived from them. Old rows are pruned by age from the
// maintenance sweep.
type OddsRepository struct {
	db *sql.DB
}

// NewOddsRepository creates a PostgreSQL-backed odds repository.
func NewOddsRepository(db *sql.DB) *OddsRepository {
	return &OddsRepository{db: db}
}

// AppendSnapshot records one bookmaker price observation.
func (r *OddsRepository) AppendSnapshot(ctx context.Context, snap models.OddsSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO odds_history (snapshot_id, event_id, fighter, decimal_odds, book, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, snap.ID, snap.EventID, snap.Fighter, snap.DecimalOdds, snap.Book, snap.CapturedAt)
	if err != nil {
		return fmt.Errorf("failed to insert odds snapshot: %w", err)
	}
	return nil
}

// AppendAnalysis records one derived edge calculation.
func (r *OddsRepository) AppendAnalysis(ctx context.Context, analysis models.MarketAnalysis) error {
	if analysis.ID == "" {
		analysis.ID = uuid.New().String()
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO market_analysis (analysis_id, event_id, fighter, model_confidence, implied_probability, edge, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, analysis.ID, analysis.EventID, analysis.Fighter,
		analysis.ModelConfidence, analysis.ImpliedProbability, analysis.Edge, analysis.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert market analysis: %w", err)
	}
	return nil
}

// ListSnapshots returns the odds history for an event, newest first.
func (r *OddsRepository) ListSnapshots(ctx context.Context, eventID string) ([]models.OddsSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT snapshot_id, event_id, fighter, decimal_odds, book, captured_at
		FROM odds_history
		WHERE event_id = $1
		ORDER BY captured_at DESC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query odds history: %w", err)
	}
	defer rows.Close()

	var snaps []models.OddsSnapshot
	for rows.Next() {
		var s models.OddsSnapshot
		if err := rows.Scan(&s.ID, &s.EventID, &s.Fighter, &s.DecimalOdds, &s.Book, &s.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan odds snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

// ListAnalysis returns the market analysis rows for an event, newest first.
func (r *OddsRepository) ListAnalysis(ctx context.Context, eventID string) ([]models.MarketAnalysis, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT analysis_id, event_id, fighter, model_confidence, implied_probability, edge, created_at
		FROM market_analysis
		WHERE event_id = $1
		ORDER BY created_at DESC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query market analysis: %w", err)
	}
	defer rows.Close()

	var analyses []models.MarketAnalysis
	for rows.Next() {
		var a models.MarketAnalysis
		if err := rows.Scan(&a.ID, &a.EventID, &a.Fighter, &a.ModelConfidence, &a.ImpliedProbability, &a.Edge, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan market analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

// PruneOlderThan deletes snapshots and analysis rows captured before the
// cutoff. Returns the total number of rows removed.
func (r *OddsRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64

	res, err := r.db.ExecContext(ctx, `DELETE FROM odds_history WHERE captured_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune odds history: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}

	res, err = r.db.ExecContext(ctx, `DELETE FROM market_analysis WHERE created_at < $1`, cutoff)
	if err != nil {
		return total, fmt.Errorf("failed to prune market analysis: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}

	return total, nil
}
