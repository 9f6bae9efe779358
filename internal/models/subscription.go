package models

import (
	"strings"
	"time"
)

// SubscriptionType distinguishes permanent server access from single-event access.
type SubscriptionType string

const (
	SubscriptionLifetime SubscriptionType = "LIFETIME"
	SubscriptionEvent    SubscriptionType = "EVENT"
)

// ParseSubscriptionType normalizes user-supplied subscription type strings.
func ParseSubscriptionType(raw string) (SubscriptionType, bool) {
	t := SubscriptionType(strings.ToUpper(strings.TrimSpace(raw)))
	return t, t == SubscriptionLifetime || t == SubscriptionEvent
}

// ServerSubscription gates a Discord server's access to predictions.
// LIFETIME rows never expire; EVENT rows expire the day after the linked
// event, which is fixed at creation time.
type ServerSubscription struct {
	ServerID       string           `json:"server_id"`
	Type           SubscriptionType `json:"subscription_type"`
	Status         string           `json:"status"`
	EventID        *string          `json:"event_id,omitempty"`
	ExpirationDate *time.Time       `json:"expiration_date,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// ActiveAt reports whether the subscription grants access at the given time.
func (s ServerSubscription) ActiveAt(now time.Time) bool {
	if s.Status != "ACTIVE" {
		return false
	}
	if s.Type == SubscriptionLifetime {
		return true
	}
	if s.ExpirationDate == nil {
		return false
	}
	return now.Before(*s.ExpirationDate)
}
