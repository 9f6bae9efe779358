package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fightgenie/fightgenie/internal/models"
	"github.com/fightgenie/fightgenie/internal/scraper"
)

// ErrEventNotFound is returned when a lifecycle operation targets an event
// ID with no stored rows. Callers match it with errors.Is.
var ErrEventNotFound = errors.New("event not found")

// EventStore defines the storage operations the lifecycle manager needs.
// Satisfied by database.EventRepository and database.MemoryStore.
type EventStore interface {
	CreateEventBatch(ctx context.Context, meta models.EventMeta, fights []models.Fight) (string, error)
	GetEvent(ctx context.Context, eventID string) (*models.EventMeta, error)
	GetFights(ctx context.Context, eventID string) ([]models.Fight, error)
	GetCurrentEvent(ctx context.Context, now time.Time) (*models.EventMeta, error)
	GetNextUpcomingEvent(ctx context.Context, after time.Time) (*models.EventMeta, error)
	GetEarliestDueEvent(ctx context.Context, now time.Time) (*models.EventMeta, error)
	ListEvents(ctx context.Context) ([]models.EventMeta, error)
	MarkCompleted(ctx context.Context, eventID string, now time.Time) (bool, error)
	RollbackCompletion(ctx context.Context, eventID string) ([]string, error)
	DeleteEventCascade(ctx context.Context, eventID string) error
}

// CardScraper defines the scrape operations the manager depends on.
type CardScraper interface {
	FetchEventCard(ctx context.Context, eventLink string) ([]scraper.Bout, error)
	FetchUpcomingEvents(ctx context.Context) ([]scraper.UpcomingEvent, error)
}

// Manager orchestrates the event lifecycle: discover upcoming cards, serve
// the active card, and on an operator's completion signal advance to the
// next one. Completion is never inferred from scraped results; the operator
// action here is the only thing that moves the window forward.
type Manager struct {
	store   EventStore
	scraper CardScraper
	retry   scraper.RetryPolicy
	logger  *slog.Logger
}

// NewManager creates a lifecycle manager.
func NewManager(store EventStore, cs CardScraper, logger *slog.Logger) *Manager {
	return &Manager{
		store:   store,
		scraper: cs,
		retry:   scraper.DefaultRetryPolicy(),
		logger:  logger,
	}
}

// AdvanceResult reports what one advance pass did.
type AdvanceResult struct {
	Advanced       bool              `json:"advanced"`
	CompletedEvent *models.EventMeta `json:"completed_event,omitempty"`
	NextEvent      *models.EventMeta `json:"next_event,omitempty"`
	RefreshedCard  bool              `json:"refreshed_card"`
	DiscoveredNew  int               `json:"discovered_new"`
}

// RollbackResult reports the scope of a completed rollback.
type RollbackResult struct {
	ResetEventIDs     []string `json:"reset_event_ids"`
	PurgedPredictions bool     `json:"purged_predictions"`
}

// SyncResult reports a discovery pass against the upcoming-events listing.
type SyncResult struct {
	Discovered int `json:"discovered"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// GetUpcomingEvent returns the card the system should currently serve: an
// event happening today that has not been completed, otherwise the nearest
// future event. When the store has neither, a fresh discovery pass runs
// before giving up.
func (m *Manager) GetUpcomingEvent(ctx context.Context, now time.Time) (*models.EventMeta, error) {
	current, err := m.store.GetCurrentEvent(ctx, now)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return current, nil
	}

	next, err := m.store.GetNextUpcomingEvent(ctx, now)
	if err != nil {
		return nil, err
	}
	if next != nil {
		return next, nil
	}

	m.logger.Info("no stored upcoming event, running discovery")
	if _, err := m.SyncUpcomingFromSource(ctx); err != nil {
		return nil, fmt.Errorf("discovery scrape: %w", err)
	}
	return m.store.GetNextUpcomingEvent(ctx, now)
}

// AdvanceEvent marks the earliest due event completed and prepares the next
// one: its card is re-scraped under a fresh event ID so stale fight listings
// never survive an advance. Calling it with nothing due is a reported no-op.
func (m *Manager) AdvanceEvent(ctx context.Context, now time.Time) (*AdvanceResult, error) {
	result := &AdvanceResult{}

	due, err := m.store.GetEarliestDueEvent(ctx, now)
	if err != nil {
		return nil, err
	}
	if due == nil {
		m.logger.Info("advance requested with no due event")
		return result, nil
	}

	changed, err := m.store.MarkCompleted(ctx, due.ID, now)
	if err != nil {
		return nil, fmt.Errorf("mark completed: %w", err)
	}
	if !changed {
		m.logger.Info("advance requested for already-completed event", "event_id", due.ID)
		return result, nil
	}

	result.Advanced = true
	result.CompletedEvent = due
	m.logger.Info("event completed", "event_id", due.ID, "event", due.Name)

	// The timeline continues from the completed event's date, not from
	// today: a backlog of past-dated uncompleted events is worked through
	// in order rather than skipped over.
	next, err := m.store.GetNextUpcomingEvent(ctx, due.Date)
	if err != nil {
		return nil, err
	}
	if next == nil {
		sync, err := m.SyncUpcomingFromSource(ctx)
		if err != nil {
			m.logger.Error("post-advance discovery failed", "error", err)
			return result, nil
		}
		result.DiscoveredNew = sync.Discovered
		next, err = m.store.GetNextUpcomingEvent(ctx, due.Date)
		if err != nil {
			return nil, err
		}
		result.NextEvent = next
		return result, nil
	}

	refreshed, err := m.RefreshEventCard(ctx, next.ID)
	if err != nil {
		// The stale card stays queryable; the advance itself succeeded.
		m.logger.Error("card refresh after advance failed",
			"event_id", next.ID,
			"error", err)
		result.NextEvent = next
		return result, nil
	}
	result.RefreshedCard = true
	result.NextEvent = refreshed
	return result, nil
}

// RollbackEvent reverses a mistaken completion. The target and every
// later-dated event lose their completed flag, and predictions generated for
// those events are purged so they regenerate against refreshed cards.
func (m *Manager) RollbackEvent(ctx context.Context, eventID string) (*RollbackResult, error) {
	event, err := m.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("rollback %s: %w", eventID, ErrEventNotFound)
	}
	if !event.Completed {
		return &RollbackResult{}, nil
	}

	reset, err := m.store.RollbackCompletion(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("rollback completion: %w", err)
	}

	m.logger.Info("event completion rolled back",
		"event_id", eventID,
		"reset_count", len(reset))

	return &RollbackResult{
		ResetEventIDs:     reset,
		PurgedPredictions: len(reset) > 0,
	}, nil
}

// RefreshEventCard replaces an event's stored card with a fresh scrape of
// its source page. The old rows and everything hanging off them are deleted
// first; the replacement batch gets a new event ID.
func (m *Manager) RefreshEventCard(ctx context.Context, eventID string) (*models.EventMeta, error) {
	event, err := m.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("refresh %s: %w", eventID, ErrEventNotFound)
	}
	if event.Link == "" {
		return nil, fmt.Errorf("event %s has no source link", eventID)
	}

	var bouts []scraper.Bout
	err = scraper.Retry(ctx, m.retry, func() error {
		var ferr error
		bouts, ferr = m.scraper.FetchEventCard(ctx, event.Link)
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("fetch card %s: %w", event.Link, err)
	}

	// Keep the old card on hand: the swap is delete-then-insert across two
	// transactions, and a failed insert must not lose the event entirely.
	oldFights, err := m.store.GetFights(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if err := m.store.DeleteEventCascade(ctx, eventID); err != nil {
		return nil, fmt.Errorf("delete stale card: %w", err)
	}

	meta := *event
	meta.ID = ""
	meta.Completed = false
	meta.CompletedAt = nil

	newID, err := m.store.CreateEventBatch(ctx, meta, boutsToFights(bouts))
	if err != nil {
		restoredID, rerr := m.store.CreateEventBatch(ctx, meta, oldFights)
		if rerr != nil {
			m.logger.Error("failed to restore card after insert failure",
				"event", event.Name,
				"error", rerr)
		} else {
			m.logger.Warn("refresh insert failed, old card restored",
				"event", event.Name,
				"restored_event_id", restoredID)
		}
		return nil, fmt.Errorf("store refreshed card: %w", err)
	}

	m.logger.Info("event card refreshed",
		"event", event.Name,
		"old_event_id", eventID,
		"new_event_id", newID,
		"fight_count", len(bouts))

	return m.store.GetEvent(ctx, newID)
}

// SyncUpcomingFromSource scrapes the upcoming-events listing and stores a
// card batch for every event not already known. Known events are matched by
// source link; their stored cards are left alone.
func (m *Manager) SyncUpcomingFromSource(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{}

	var listed []scraper.UpcomingEvent
	err := scraper.Retry(ctx, m.retry, func() error {
		var ferr error
		listed, ferr = m.scraper.FetchUpcomingEvents(ctx)
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("fetch upcoming listing: %w", err)
	}

	known, err := m.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	knownLinks := make(map[string]bool, len(known))
	for _, e := range known {
		knownLinks[e.Link] = true
	}

	for _, up := range listed {
		if knownLinks[up.Link] {
			result.Skipped++
			continue
		}

		bouts, err := m.scraper.FetchEventCard(ctx, up.Link)
		if err != nil {
			result.Failed++
			m.logger.Error("failed to scrape discovered event",
				"event", up.Name,
				"link", up.Link,
				"error", err)
			continue
		}

		meta := models.EventMeta{
			Name: up.Name,
			Date: models.DateOnly(up.Date),
			Link: up.Link,
		}
		meta.City, meta.State, meta.Country = splitLocation(up.Location)

		id, err := m.store.CreateEventBatch(ctx, meta, boutsToFights(bouts))
		if err != nil {
			result.Failed++
			m.logger.Error("failed to store discovered event",
				"event", up.Name,
				"error", err)
			continue
		}

		result.Discovered++
		m.logger.Info("discovered upcoming event",
			"event", up.Name,
			"event_id", id,
			"date", meta.Date.Format("2006-01-02"),
			"fight_count", len(bouts))
	}

	return result, nil
}

func boutsToFights(bouts []scraper.Bout) []models.Fight {
	fights := make([]models.Fight, len(bouts))
	for i, b := range bouts {
		fights[i] = models.Fight{
			Fighter1:    b.Fighter1,
			Fighter2:    b.Fighter2,
			WeightClass: b.WeightClass,
			IsMainCard:  b.IsMainCard,
		}
	}
	return fights
}

// splitLocation breaks a "City, State, Country" listing string into parts.
// Two-part strings are treated as city and country.
func splitLocation(loc string) (city, state, country string) {
	parts := strings.Split(loc, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch len(parts) {
	case 0:
		return "", "", ""
	case 1:
		return parts[0], "", ""
	case 2:
		return parts[0], "", parts[1]
	default:
		return parts[0], parts[1], parts[2]
	}
}
