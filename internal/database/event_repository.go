package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fightgenie/fightgenie/internal/models"
)

// IntegrityError indicates a multi-table write could not complete atomically.
// The enclosing transaction has been rolled back; nothing was partially
// committed.
type IntegrityError struct {
	Op  string
	Err error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation during %s: %v", e.Op, e.Err)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// EventRepository owns the denormalized events table: one row per fight,
// grouped by a shared event_id. The event ID is allocated here, exactly once
// per batch, and never re-derived from name/date lookups.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a PostgreSQL-backed event repository.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// CreateEventBatch allocates one event ID and inserts every fight row of the
// card under it in a single transaction. Bout order is preserved so the
// positional main-card convention survives storage.
func (r *EventRepository) CreateEventBatch(ctx context.Context, meta models.EventMeta, fights []models.Fight) (string, error) {
	if len(fights) == 0 {
		return "", &IntegrityError{Op: "create event batch", Err: fmt.Errorf("no fights to insert for %q", meta.Name)}
	}

	eventID := uuid.New().String()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO events (
			row_id, event_id, event_name, event_date, city, state, country,
			fighter1, fighter2, weight_class, is_main_card, bout_order,
			is_completed, event_link, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, FALSE, $13, NOW())
	`

	for i, fight := range fights {
		_, err = tx.ExecContext(ctx, query,
			uuid.New().String(),
			eventID,
			meta.Name,
			models.DateOnly(meta.Date),
			meta.City,
			meta.State,
			meta.Country,
			fight.Fighter1,
			fight.Fighter2,
			fight.WeightClass,
			fight.IsMainCard,
			i,
			meta.Link,
		)
		if err != nil {
			return "", &IntegrityError{Op: "create event batch", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", &IntegrityError{Op: "create event batch", Err: err}
	}

	return eventID, nil
}

// GetEvent returns the card-level metadata for an event, or nil when the
// event does not exist.
func (r *EventRepository) GetEvent(ctx context.Context, eventID string) (*models.EventMeta, error) {
	query := `
		SELECT event_id, event_name, event_date, city, state, country,
		       is_completed, completed_at, event_link
		FROM events
		WHERE event_id = $1
		ORDER BY bout_order
		LIMIT 1
	`
	return r.scanEventMeta(r.db.QueryRowContext(ctx, query, eventID))
}

// GetFights returns the fight rows of an event in bout order.
func (r *EventRepository) GetFights(ctx context.Context, eventID string) ([]models.Fight, error) {
	query := `
		SELECT event_id, fighter1, fighter2, weight_class, is_main_card
		FROM events
		WHERE event_id = $1
		ORDER BY bout_order
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fights: %w", err)
	}
	defer rows.Close()

	var fights []models.Fight
	for rows.Next() {
		var f models.Fight
		if err := rows.Scan(&f.EventID, &f.Fighter1, &f.Fighter2, &f.WeightClass, &f.IsMainCard); err != nil {
			return nil, fmt.Errorf("failed to scan fight: %w", err)
		}
		fights = append(fights, f)
	}
	return fights, rows.Err()
}

// GetCurrentEvent returns the uncompleted event dated today, or nil when no
// card falls on today's date.
func (r *EventRepository) GetCurrentEvent(ctx context.Context, now time.Time) (*models.EventMeta, error) {
	query := `
		SELECT event_id, event_name, event_date, city, state, country,
		       is_completed, completed_at, event_link
		FROM events
		WHERE event_date = $1 AND NOT is_completed
		ORDER BY event_name, bout_order
		LIMIT 1
	`
	return r.scanEventMeta(r.db.QueryRowContext(ctx, query, models.DateOnly(now)))
}

// GetNextUpcomingEvent returns the nearest future uncompleted event strictly
// after the given date, or nil when none is stored.
func (r *EventRepository) GetNextUpcomingEvent(ctx context.Context, after time.Time) (*models.EventMeta, error) {
	query := `
		SELECT event_id, event_name, event_date, city, state, country,
		       is_completed, completed_at, event_link
		FROM events
		WHERE event_date > $1 AND NOT is_completed
		ORDER BY event_date, event_name, bout_order
		LIMIT 1
	`
	return r.scanEventMeta(r.db.QueryRowContext(ctx, query, models.DateOnly(after)))
}

// GetEarliestDueEvent returns the earliest uncompleted event dated on or
// before the given day. This is the advance candidate.
func (r *EventRepository) GetEarliestDueEvent(ctx context.Context, now time.Time) (*models.EventMeta, error) {
	query := `
		SELECT event_id, event_name, event_date, city, state, country,
		       is_completed, completed_at, event_link
		FROM events
		WHERE event_date <= $1 AND NOT is_completed
		ORDER BY event_date, event_name, bout_order
		LIMIT 1
	`
	return r.scanEventMeta(r.db.QueryRowContext(ctx, query, models.DateOnly(now)))
}

// ListEvents returns card-level metadata for all stored events in date order.
func (r *EventRepository) ListEvents(ctx context.Context) ([]models.EventMeta, error) {
	query := `
		SELECT DISTINCT ON (event_id)
		       event_id, event_name, event_date, city, state, country,
		       is_completed, completed_at, event_link
		FROM events
		ORDER BY event_id, bout_order
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.EventMeta
	for rows.Next() {
		meta, err := scanEventMetaRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *meta)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortEventsByDate(events)
	return events, nil
}

// MarkCompleted flags every row of an event as completed. Returns false
// without error when the event was already completed, so a double-invoked
// admin action is a reported no-op.
func (r *EventRepository) MarkCompleted(ctx context.Context, eventID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE events
		SET is_completed = TRUE, completed_at = $2
		WHERE event_id = $1 AND NOT is_completed
	`, eventID, now.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to mark event completed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// RollbackCompletion un-marks the target event and every event dated after
// it, and purges the predictions tied to all affected events, in one
// transaction. The timeline is totally ordered by date; there are no
// branches to reconcile. Returns the affected event IDs.
func (r *EventRepository) RollbackCompletion(ctx context.Context, eventID string) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var targetDate time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT event_date FROM events WHERE event_id = $1 LIMIT 1`, eventID,
	).Scan(&targetDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up rollback target: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT DISTINCT event_id FROM events
		WHERE event_date > $1 OR event_id = $2
	`, targetDate, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rollback events: %w", err)
	}

	var affected []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan rollback event: %w", err)
		}
		affected = append(affected, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE events
		SET is_completed = FALSE, completed_at = NULL
		WHERE event_date > $1 OR event_id = $2
	`, targetDate, eventID)
	if err != nil {
		return nil, &IntegrityError{Op: "rollback completion", Err: err}
	}

	// Outcomes grade predictions; they go first, then the predictions.
	_, err = tx.ExecContext(ctx,
		`DELETE FROM prediction_outcomes WHERE event_id = ANY($1)`, pq.Array(affected))
	if err != nil {
		return nil, &IntegrityError{Op: "rollback completion", Err: err}
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM stored_predictions WHERE event_id = ANY($1)`, pq.Array(affected))
	if err != nil {
		return nil, &IntegrityError{Op: "rollback completion", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &IntegrityError{Op: "rollback completion", Err: err}
	}
	return affected, nil
}

// DeleteEventCascade removes an event and every dependent row in strict
// order (outcomes, predictions, odds, market analysis, then the fight rows)
// inside one transaction. Either everything goes or nothing does.
func (r *EventRepository) DeleteEventCascade(ctx context.Context, eventID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deletes := []string{
		`DELETE FROM prediction_outcomes WHERE event_id = $1`,
		`DELETE FROM stored_predictions WHERE event_id = $1`,
		`DELETE FROM odds_history WHERE event_id = $1`,
		`DELETE FROM market_analysis WHERE event_id = $1`,
		`DELETE FROM events WHERE event_id = $1`,
	}

	for _, query := range deletes {
		if _, err := tx.ExecContext(ctx, query, eventID); err != nil {
			return &IntegrityError{Op: "cascade delete", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &IntegrityError{Op: "cascade delete", Err: err}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *EventRepository) scanEventMeta(row rowScanner) (*models.EventMeta, error) {
	meta, err := scanEventMetaRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return meta, err
}

func scanEventMetaRow(row rowScanner) (*models.EventMeta, error) {
	var meta models.EventMeta
	var city, state, country, link sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&meta.ID,
		&meta.Name,
		&meta.Date,
		&city,
		&state,
		&country,
		&meta.Completed,
		&completedAt,
		&link,
	)
	if err != nil {
		return nil, err
	}

	meta.City = city.String
	meta.State = state.String
	meta.Country = country.String
	meta.Link = link.String
	if completedAt.Valid {
		t := completedAt.Time
		meta.CompletedAt = &t
	}
	return &meta, nil
}

func sortEventsByDate(events []models.EventMeta) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
}
