package predictions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fightgenie/fightgenie/internal/models"
)

// Store defines the persistence contract for cached prediction blobs.
type Store interface {
	Get(ctx context.Context, eventID string, card models.CardType, model models.PredictionModel) (*models.StoredPrediction, error)
	Create(ctx context.Context, p models.StoredPrediction) (*models.StoredPrediction, error)
}

// Generator produces a prediction blob for a set of fights. Implementations
// wrap one external AI provider; everything past the API call is opaque.
type Generator interface {
	Generate(ctx context.Context, event models.EventMeta, fights []models.Fight) (json.RawMessage, error)
}

// ProviderError carries a provider-reported failure back to the caller
// verbatim. No local recovery or regeneration is attempted.
type ProviderError struct {
	Provider models.PredictionModel
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Service implements the at-most-one-generation-per-key prediction cache.
// A per-key mutex serializes concurrent Discord interactions asking for the
// same prediction; the unique constraint in the store catches anything that
// slips past (e.g. two processes).
type Service struct {
	store      Store
	generators map[models.PredictionModel]Generator
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a prediction service over the given store and generators.
func NewService(store Store, generators map[models.PredictionModel]Generator, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		generators: generators,
		logger:     logger,
		locks:      make(map[string]*sync.Mutex),
	}
}

// GetOrCreate returns the cached prediction for (event, card, model),
// generating and persisting it first when absent. The second return value
// reports whether a generation happened on this call.
func (s *Service) GetOrCreate(ctx context.Context, event models.EventMeta, fights []models.Fight, card models.CardType, model models.PredictionModel) (*models.StoredPrediction, bool, error) {
	if !card.Valid() {
		return nil, false, fmt.Errorf("unknown card type: %q", card)
	}
	gen, ok := s.generators[model]
	if !ok {
		return nil, false, fmt.Errorf("no generator configured for model %q", model)
	}

	key := event.ID + "|" + string(card) + "|" + string(model)
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	cached, err := s.store.Get(ctx, event.ID, card, model)
	if err != nil {
		return nil, false, err
	}
	if cached != nil {
		s.logger.Debug("prediction cache hit", "event_id", event.ID, "card", card, "model", model)
		return cached, false, nil
	}

	cardFights := filterCard(fights, card)
	if len(cardFights) == 0 {
		return nil, false, fmt.Errorf("event %s has no %s fights", event.ID, card)
	}

	s.logger.Info("generating prediction",
		"event_id", event.ID,
		"event", event.Name,
		"card", card,
		"model", model,
		"fight_count", len(cardFights))

	data, err := gen.Generate(ctx, event, cardFights)
	if err != nil {
		return nil, false, &ProviderError{Provider: model, Err: err}
	}

	stored, err := s.store.Create(ctx, models.StoredPrediction{
		EventID:  event.ID,
		CardType: card,
		Model:    model,
		Data:     data,
	})
	if err != nil {
		return nil, false, err
	}
	return stored, true, nil
}

func (s *Service) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// filterCard selects the fights belonging to one half of the card.
func filterCard(fights []models.Fight, card models.CardType) []models.Fight {
	var out []models.Fight
	for _, f := range fights {
		if (card == models.CardMain) == f.IsMainCard {
			out = append(out, f)
		}
	}
	return out
}
