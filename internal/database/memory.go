package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fightgenie/fightgenie/internal/models"
)

// MemoryStore implements the event, prediction, and outcome storage
// contracts in memory for testing and development. Semantics mirror the
// PostgreSQL repositories, including the single-ID batch rule, cascade
// ordering, and nil-on-not-found.
type MemoryStore struct {
	mu          sync.Mutex
	events      map[string]models.EventMeta
	fights      map[string][]models.Fight
	predictions map[string]models.StoredPrediction // key: event|card|model
	outcomes    map[string]models.PredictionOutcome
	snapshots   []models.OddsSnapshot
	analyses    []models.MarketAnalysis
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:      make(map[string]models.EventMeta),
		fights:      make(map[string][]models.Fight),
		predictions: make(map[string]models.StoredPrediction),
		outcomes:    make(map[string]models.PredictionOutcome),
	}
}

func predictionKey(eventID string, card models.CardType, model models.PredictionModel) string {
	return eventID + "|" + string(card) + "|" + string(model)
}

// CreateEventBatch allocates one event ID and stores all fight rows under it.
func (s *MemoryStore) CreateEventBatch(ctx context.Context, meta models.EventMeta, fights []models.Fight) (string, error) {
	if len(fights) == 0 {
		return "", &IntegrityError{Op: "create event batch", Err: fmt.Errorf("no fights to insert for %q", meta.Name)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventID := uuid.New().String()
	meta.ID = eventID
	meta.Date = models.DateOnly(meta.Date)
	meta.Completed = false
	meta.CompletedAt = nil
	s.events[eventID] = meta

	stored := make([]models.Fight, len(fights))
	copy(stored, fights)
	for i := range stored {
		stored[i].EventID = eventID
	}
	s.fights[eventID] = stored

	return eventID, nil
}

// GetEvent returns event metadata, or nil when unknown.
func (s *MemoryStore) GetEvent(ctx context.Context, eventID string) (*models.EventMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.events[eventID]
	if !ok {
		return nil, nil
	}
	return &meta, nil
}

// GetFights returns the fight rows of an event in bout order.
func (s *MemoryStore) GetFights(ctx context.Context, eventID string) ([]models.Fight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fights := s.fights[eventID]
	out := make([]models.Fight, len(fights))
	copy(out, fights)
	return out, nil
}

// GetCurrentEvent returns the uncompleted event dated today, or nil.
func (s *MemoryStore) GetCurrentEvent(ctx context.Context, now time.Time) (*models.EventMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *models.EventMeta
	for id := range s.events {
		meta := s.events[id]
		if meta.Completed || !models.SameDay(meta.Date, now) {
			continue
		}
		if best == nil || meta.Name < best.Name {
			m := meta
			best = &m
		}
	}
	return best, nil
}

// GetNextUpcomingEvent returns the nearest uncompleted event strictly after
// the given date, or nil.
func (s *MemoryStore) GetNextUpcomingEvent(ctx context.Context, after time.Time) (*models.EventMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := models.DateOnly(after)
	var best *models.EventMeta
	for id := range s.events {
		meta := s.events[id]
		if meta.Completed || !meta.Date.After(cutoff) {
			continue
		}
		if best == nil || meta.Date.Before(best.Date) {
			m := meta
			best = &m
		}
	}
	return best, nil
}

// GetEarliestDueEvent returns the earliest uncompleted event dated on or
// before the given day, or nil.
func (s *MemoryStore) GetEarliestDueEvent(ctx context.Context, now time.Time) (*models.EventMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := models.DateOnly(now)
	var best *models.EventMeta
	for id := range s.events {
		meta := s.events[id]
		if meta.Completed || meta.Date.After(cutoff) {
			continue
		}
		if best == nil || meta.Date.Before(best.Date) {
			m := meta
			best = &m
		}
	}
	return best, nil
}

// ListEvents returns all stored events in date order.
func (s *MemoryStore) ListEvents(ctx context.Context) ([]models.EventMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]models.EventMeta, 0, len(s.events))
	for id := range s.events {
		events = append(events, s.events[id])
	}
	sortEventsByDate(events)
	return events, nil
}

// MarkCompleted flags an event completed; false when already completed or unknown.
func (s *MemoryStore) MarkCompleted(ctx context.Context, eventID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.events[eventID]
	if !ok || meta.Completed {
		return false, nil
	}
	t := now.UTC()
	meta.Completed = true
	meta.CompletedAt = &t
	s.events[eventID] = meta
	return true, nil
}

// RollbackCompletion un-marks the target and all later events and purges
// their predictions and outcomes.
func (s *MemoryStore) RollbackCompletion(ctx context.Context, eventID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.events[eventID]
	if !ok {
		return nil, nil
	}

	var affected []string
	for id := range s.events {
		meta := s.events[id]
		if id == eventID || meta.Date.After(target.Date) {
			meta.Completed = false
			meta.CompletedAt = nil
			s.events[id] = meta
			affected = append(affected, id)
		}
	}

	for _, id := range affected {
		s.deleteDependentsLocked(id)
	}
	return affected, nil
}

// DeleteEventCascade removes an event and all dependent rows.
func (s *MemoryStore) DeleteEventCascade(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteDependentsLocked(eventID)
	s.pruneOddsLocked(eventID)
	delete(s.events, eventID)
	delete(s.fights, eventID)
	return nil
}

func (s *MemoryStore) deleteDependentsLocked(eventID string) {
	for key, p := range s.predictions {
		if p.EventID == eventID {
			delete(s.outcomes, p.ID)
			delete(s.predictions, key)
		}
	}
	for id, o := range s.outcomes {
		if o.EventID == eventID {
			delete(s.outcomes, id)
		}
	}
}

func (s *MemoryStore) pruneOddsLocked(eventID string) {
	snaps := s.snapshots[:0]
	for _, snap := range s.snapshots {
		if snap.EventID != eventID {
			snaps = append(snaps, snap)
		}
	}
	s.snapshots = snaps

	analyses := s.analyses[:0]
	for _, a := range s.analyses {
		if a.EventID != eventID {
			analyses = append(analyses, a)
		}
	}
	s.analyses = analyses
}

// Get returns the stored prediction for a key, or nil.
func (s *MemoryStore) Get(ctx context.Context, eventID string, card models.CardType, model models.PredictionModel) (*models.StoredPrediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.predictions[predictionKey(eventID, card, model)]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Create stores a prediction; on a key collision the stored row wins.
func (s *MemoryStore) Create(ctx context.Context, p models.StoredPrediction) (*models.StoredPrediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := predictionKey(p.EventID, p.CardType, p.Model)
	if existing, ok := s.predictions[key]; ok {
		return &existing, nil
	}

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.predictions[key] = p
	return &p, nil
}

// ListByEvent returns all stored predictions for an event.
func (s *MemoryStore) ListByEvent(ctx context.Context, eventID string) ([]models.StoredPrediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.StoredPrediction
	for _, p := range s.predictions {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	return out, nil
}

// CreateOutcome persists a grading row.
func (s *MemoryStore) CreateOutcome(ctx context.Context, outcome models.PredictionOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if outcome.ID == "" {
		outcome.ID = uuid.New().String()
	}
	if outcome.CreatedAt.IsZero() {
		outcome.CreatedAt = time.Now().UTC()
	}
	s.outcomes[outcome.PredictionID] = outcome
	return nil
}

// GetOutcomeByPrediction returns the grading row for a prediction, or nil.
func (s *MemoryStore) GetOutcomeByPrediction(ctx context.Context, predictionID string) (*models.PredictionOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.outcomes[predictionID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

// ListUngradedEvents returns events dated before the cutoff with predictions
// but no outcome.
func (s *MemoryStore) ListUngradedEvents(ctx context.Context, before time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := models.DateOnly(before)
	seen := make(map[string]bool)
	var ids []string
	for _, p := range s.predictions {
		if seen[p.EventID] {
			continue
		}
		meta, ok := s.events[p.EventID]
		if !ok || !meta.Date.Before(cutoff) {
			continue
		}
		if _, graded := s.outcomes[p.ID]; graded {
			continue
		}
		seen[p.EventID] = true
		ids = append(ids, p.EventID)
	}
	return ids, nil
}
