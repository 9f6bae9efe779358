package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fightgenie/fightgenie/internal/models"
)

// SubscriptionRepository stores per-server access grants. One row per
// Discord server; a new purchase replaces the previous grant.
type SubscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository creates a PostgreSQL-backed subscription repository.
func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert creates or replaces a server's subscription.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub models.ServerSubscription) error {
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	query := `
		INSERT INTO server_subscriptions (server_id, subscription_type, status, event_id, expiration_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (server_id) DO UPDATE SET
			subscription_type = EXCLUDED.subscription_type,
			status = EXCLUDED.status,
			event_id = EXCLUDED.event_id,
			expiration_date = EXCLUDED.expiration_date,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		sub.ServerID, sub.Type, sub.Status, sub.EventID, sub.ExpirationDate,
		sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

// Get returns a server's subscription, or nil when the server has none.
func (r *SubscriptionRepository) Get(ctx context.Context, serverID string) (*models.ServerSubscription, error) {
	query := `
		SELECT server_id, subscription_type, status, event_id, expiration_date, created_at, updated_at
		FROM server_subscriptions
		WHERE server_id = $1
	`

	var sub models.ServerSubscription
	var eventID sql.NullString
	var expiration sql.NullTime
	err := r.db.QueryRowContext(ctx, query, serverID).Scan(
		&sub.ServerID, &sub.Type, &sub.Status, &eventID, &expiration,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query subscription: %w", err)
	}

	if eventID.Valid {
		sub.EventID = &eventID.String
	}
	if expiration.Valid {
		t := expiration.Time
		sub.ExpirationDate = &t
	}
	return &sub, nil
}

// CheckAccess reports whether a server currently has an active grant. A
// missing row is simply "no access", not an error.
func (r *SubscriptionRepository) CheckAccess(ctx context.Context, serverID string, now time.Time) (bool, error) {
	sub, err := r.Get(ctx, serverID)
	if err != nil {
		return false, err
	}
	if sub == nil {
		return false, nil
	}
	return sub.ActiveAt(now), nil
}

// ExpireOverdue flips EVENT subscriptions past their expiration date to
// EXPIRED. Returns how many rows changed.
func (r *SubscriptionRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE server_subscriptions
		SET status = 'EXPIRED', updated_at = $1
		WHERE subscription_type = 'EVENT'
		  AND status = 'ACTIVE'
		  AND expiration_date IS NOT NULL
		  AND expiration_date <= $1
	`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	return res.RowsAffected()
}
