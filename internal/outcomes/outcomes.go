package outcomes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fightgenie/fightgenie/internal/models"
)

// EventSource provides event metadata lookups.
type EventSource interface {
	GetEvent(ctx context.Context, eventID string) (*models.EventMeta, error)
}

// PredictionSource lists stored predictions for an event.
type PredictionSource interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.StoredPrediction, error)
}

// OutcomeStore persists and queries grading rows.
type OutcomeStore interface {
	Create(ctx context.Context, outcome models.PredictionOutcome) error
	GetByPrediction(ctx context.Context, predictionID string) (*models.PredictionOutcome, error)
	ListUngradedEvents(ctx context.Context, before time.Time) ([]string, error)
}

// ResultScraper fetches final results from an event's source page.
type ResultScraper interface {
	FetchEventResults(ctx context.Context, eventLink string) ([]models.FightResult, error)
}

// Service grades stored predictions against scraped final results. Grading
// is sync-driven: a pass walks every past event that still has ungraded
// predictions and writes one outcome row per prediction.
type Service struct {
	events      EventSource
	predictions PredictionSource
	outcomes    OutcomeStore
	scraper     ResultScraper
	logger      *slog.Logger
}

// NewService creates an outcome sync service.
func NewService(events EventSource, predictions PredictionSource, outcomes OutcomeStore, scraper ResultScraper, logger *slog.Logger) *Service {
	return &Service{
		events:      events,
		predictions: predictions,
		outcomes:    outcomes,
		scraper:     scraper,
		logger:      logger,
	}
}

// SyncResult reports one grading pass.
type SyncResult struct {
	EventsProcessed   int `json:"events_processed"`
	PredictionsGraded int `json:"predictions_graded"`
	Errors            int `json:"errors"`
}

// SyncCompletedEvents grades every ungraded prediction for events dated
// before now. Results are fetched once per event and reused across that
// event's predictions; a fetch failure skips the event and the next pass
// retries it.
func (s *Service) SyncCompletedEvents(ctx context.Context, now time.Time) (*SyncResult, error) {
	result := &SyncResult{}

	eventIDs, err := s.outcomes.ListUngradedEvents(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list ungraded events: %w", err)
	}
	if len(eventIDs) == 0 {
		s.logger.Debug("no ungraded events")
		return result, nil
	}

	// Per-run result cache: every prediction of an event grades against the
	// same scrape.
	resultCache := make(map[string][]models.FightResult)

	for _, eventID := range eventIDs {
		event, err := s.events.GetEvent(ctx, eventID)
		if err != nil {
			result.Errors++
			s.logger.Error("failed to load event for grading", "event_id", eventID, "error", err)
			continue
		}
		if event == nil || event.Link == "" {
			result.Errors++
			s.logger.Warn("ungraded event has no source link", "event_id", eventID)
			continue
		}

		results, ok := resultCache[eventID]
		if !ok {
			results, err = s.scraper.FetchEventResults(ctx, event.Link)
			if err != nil {
				result.Errors++
				s.logger.Error("failed to scrape results",
					"event_id", eventID,
					"event", event.Name,
					"error", err)
				continue
			}
			resultCache[eventID] = results
		}
		if len(results) == 0 {
			s.logger.Warn("no results on source page yet", "event_id", eventID, "event", event.Name)
			continue
		}

		graded, errs := s.gradeEvent(ctx, eventID, results)
		result.PredictionsGraded += graded
		result.Errors += errs
		if graded > 0 {
			result.EventsProcessed++
		}

		s.logger.Info("event graded",
			"event_id", eventID,
			"event", event.Name,
			"predictions_graded", graded,
			"results", len(results))
	}

	return result, nil
}

func (s *Service) gradeEvent(ctx context.Context, eventID string, results []models.FightResult) (graded, errs int) {
	preds, err := s.predictions.ListByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("failed to list predictions", "event_id", eventID, "error", err)
		return 0, 1
	}

	for _, pred := range preds {
		existing, err := s.outcomes.GetByPrediction(ctx, pred.ID)
		if err != nil {
			errs++
			continue
		}
		if existing != nil {
			continue
		}

		outcome, err := GradePrediction(pred, results)
		if err != nil {
			errs++
			s.logger.Error("failed to grade prediction",
				"prediction_id", pred.ID,
				"error", err)
			continue
		}

		if err := s.outcomes.Create(ctx, *outcome); err != nil {
			errs++
			s.logger.Error("failed to store outcome",
				"prediction_id", pred.ID,
				"error", err)
			continue
		}
		graded++
	}
	return graded, errs
}

// GradePrediction compares one stored prediction blob against scraped
// results. Fighter pairings match regardless of order or case; predicted
// bouts with no scraped result (cancellations, replacements) are left out of
// the verdict list rather than counted wrong.
func GradePrediction(pred models.StoredPrediction, results []models.FightResult) (*models.PredictionOutcome, error) {
	data, err := models.ParsePredictionData(pred.Data)
	if err != nil {
		return nil, fmt.Errorf("prediction %s has unreadable data: %w", pred.ID, err)
	}

	byPair := make(map[string]models.FightResult, len(results))
	for _, r := range results {
		byPair[models.FighterPairKey(r.Winner, r.Loser)] = r
	}

	var verdicts []models.FightVerdict
	var confidenceSum float64

	for _, f := range data.Fights {
		res, ok := byPair[models.FighterPairKey(f.Fighter1, f.Fighter2)]
		if !ok {
			continue
		}

		correct := sameFighter(f.PredictedWinner, res.Winner)
		verdicts = append(verdicts, models.FightVerdict{
			Fighter1:        f.Fighter1,
			Fighter2:        f.Fighter2,
			PredictedWinner: f.PredictedWinner,
			ActualWinner:    res.Winner,
			Correct:         correct,
			PredictedMethod: f.Method,
			ActualMethod:    res.Method,
			MethodCorrect:   correct && models.MethodsMatch(f.Method, res.Method),
		})

		// A confident correct pick scores high, a confident wrong pick low.
		if correct {
			confidenceSum += f.Confidence
		} else {
			confidenceSum += 100 - f.Confidence
		}
	}

	outcome := &models.PredictionOutcome{
		PredictionID:  pred.ID,
		EventID:       pred.EventID,
		FightOutcomes: verdicts,
	}
	if len(verdicts) > 0 {
		outcome.ConfidenceAccuracy = confidenceSum / float64(len(verdicts))
	}
	return outcome, nil
}

func sameFighter(a, b string) bool {
	return strings.EqualFold(
		strings.Join(strings.Fields(a), " "),
		strings.Join(strings.Fields(b), " "),
	)
}
