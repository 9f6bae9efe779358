package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/fightgenie/fightgenie/internal/database"
	"github.com/fightgenie/fightgenie/internal/lifecycle"
	"github.com/fightgenie/fightgenie/internal/models"
	"github.com/fightgenie/fightgenie/internal/outcomes"
	"github.com/fightgenie/fightgenie/internal/predictions"
)

// EventReader provides the read side of event storage.
type EventReader interface {
	GetEvent(ctx context.Context, eventID string) (*models.EventMeta, error)
	GetFights(ctx context.Context, eventID string) ([]models.Fight, error)
	ListEvents(ctx context.Context) ([]models.EventMeta, error)
	DeleteEventCascade(ctx context.Context, eventID string) error
}

// LifecycleManager exposes the event lifecycle operations.
type LifecycleManager interface {
	GetUpcomingEvent(ctx context.Context, now time.Time) (*models.EventMeta, error)
	AdvanceEvent(ctx context.Context, now time.Time) (*lifecycle.AdvanceResult, error)
	RollbackEvent(ctx context.Context, eventID string) (*lifecycle.RollbackResult, error)
	RefreshEventCard(ctx context.Context, eventID string) (*models.EventMeta, error)
	SyncUpcomingFromSource(ctx context.Context) (*lifecycle.SyncResult, error)
}

// PredictionProvider serves cached or freshly generated predictions.
type PredictionProvider interface {
	GetOrCreate(ctx context.Context, event models.EventMeta, fights []models.Fight, card models.CardType, model models.PredictionModel) (*models.StoredPrediction, bool, error)
}

// OutcomeSyncer runs a grading pass on demand.
type OutcomeSyncer interface {
	SyncCompletedEvents(ctx context.Context, now time.Time) (*outcomes.SyncResult, error)
}

// AccuracyReader reports per-model grading statistics.
type AccuracyReader interface {
	AccuracyByModel(ctx context.Context) ([]database.ModelAccuracy, error)
}

// DomainMetrics records domain-level counters. Nil-safe via the noopMetrics
// default.
type DomainMetrics interface {
	ObservePredictionGenerated(model string)
	ObserveOutcomesGraded(count int)
}

type noopMetrics struct{}

func (noopMetrics) ObservePredictionGenerated(string) {}
func (noopMetrics) ObserveOutcomesGraded(int)         {}

// Handler serves the event, prediction, and outcome endpoints.
type Handler struct {
	events      EventReader
	manager     LifecycleManager
	predictions PredictionProvider
	syncer      OutcomeSyncer
	accuracy    AccuracyReader
	metrics     DomainMetrics
	logger      *slog.Logger
}

// NewHandler creates the core API handler.
func NewHandler(events EventReader, manager LifecycleManager, predictionProvider PredictionProvider, syncer OutcomeSyncer, accuracy AccuracyReader, metrics DomainMetrics, logger *slog.Logger) *Handler {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Handler{
		events:      events,
		manager:     manager,
		predictions: predictionProvider,
		syncer:      syncer,
		accuracy:    accuracy,
		metrics:     metrics,
		logger:      logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// GetEventsHandler handles GET /api/events
func (h *Handler) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		h.logger.Error("failed to list events", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// GetCurrentEventHandler handles GET /api/events/current
func (h *Handler) GetCurrentEventHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	event, err := h.manager.GetUpcomingEvent(r.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Error("failed to resolve current event", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if event == nil {
		http.Error(w, "No upcoming event", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// GetEventByIDHandler handles GET /api/events/:id and /api/events/:id/fights
func (h *Handler) GetEventByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/events/")
	wantFights := false
	if strings.HasSuffix(rest, "/fights") {
		wantFights = true
		rest = strings.TrimSuffix(rest, "/fights")
	}
	eventID := strings.Trim(rest, "/")
	if eventID == "" {
		http.Error(w, "Event ID required", http.StatusBadRequest)
		return
	}

	event, err := h.events.GetEvent(r.Context(), eventID)
	if err != nil {
		h.logger.Error("failed to get event", "event_id", eventID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if event == nil {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	if !wantFights {
		writeJSON(w, http.StatusOK, event)
		return
	}

	fights, err := h.events.GetFights(r.Context(), eventID)
	if err != nil {
		h.logger.Error("failed to get fights", "event_id", eventID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"event":  event,
		"fights": fights,
	})
}

// GetPredictionHandler handles GET /api/predictions?event_id=&card=&model=
// A cache miss triggers generation, so the first caller pays the provider
// latency and everyone after reads the stored row.
func (h *Handler) GetPredictionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	eventID := r.URL.Query().Get("event_id")
	if eventID == "" {
		http.Error(w, "event_id is required", http.StatusBadRequest)
		return
	}
	card, ok := models.ParseCardType(r.URL.Query().Get("card"))
	if !ok {
		http.Error(w, "card must be 'main' or 'prelims'", http.StatusBadRequest)
		return
	}
	model, ok := models.ParsePredictionModel(r.URL.Query().Get("model"))
	if !ok {
		http.Error(w, "model must be 'gpt' or 'claude'", http.StatusBadRequest)
		return
	}

	event, err := h.events.GetEvent(r.Context(), eventID)
	if err != nil {
		h.logger.Error("failed to get event for prediction", "event_id", eventID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if event == nil {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	fights, err := h.events.GetFights(r.Context(), eventID)
	if err != nil {
		h.logger.Error("failed to get fights for prediction", "event_id", eventID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	pred, created, err := h.predictions.GetOrCreate(r.Context(), *event, fights, card, model)
	if err != nil {
		var provErr *predictions.ProviderError
		if errors.As(err, &provErr) {
			h.logger.Error("provider failure", "model", model, "error", err)
			http.Error(w, "Prediction provider error: "+provErr.Err.Error(), http.StatusBadGateway)
			return
		}
		h.logger.Error("failed to get prediction", "event_id", eventID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if created {
		h.metrics.ObservePredictionGenerated(string(model))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"prediction": pred,
		"generated":  created,
	})
}

// AdvanceEventHandler handles POST /api/admin/events/advance
func (h *Handler) AdvanceEventHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := h.manager.AdvanceEvent(r.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Error("advance failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// RollbackEventHandler handles POST /api/admin/events/:id/rollback
func (h *Handler) RollbackEventHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	eventID := pathSegment(r.URL.Path, "/api/admin/events/", "/rollback")
	if eventID == "" {
		http.Error(w, "Event ID required", http.StatusBadRequest)
		return
	}

	result, err := h.manager.RollbackEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, lifecycle.ErrEventNotFound) {
			http.Error(w, "Event not found", http.StatusNotFound)
			return
		}
		h.logger.Error("rollback failed", "event_id", eventID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// RefreshEventHandler handles POST /api/admin/events/:id/refresh
func (h *Handler) RefreshEventHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	eventID := pathSegment(r.URL.Path, "/api/admin/events/", "/refresh")
	if eventID == "" {
		http.Error(w, "Event ID required", http.StatusBadRequest)
		return
	}

	event, err := h.manager.RefreshEventCard(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, lifecycle.ErrEventNotFound) {
			http.Error(w, "Event not found", http.StatusNotFound)
			return
		}
		h.logger.Error("card refresh failed", "event_id", eventID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// DeleteEventHandler handles DELETE /api/admin/events/:id
func (h *Handler) DeleteEventHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	eventID := pathSegment(r.URL.Path, "/api/admin/events/", "")
	if eventID == "" {
		http.Error(w, "Event ID required", http.StatusBadRequest)
		return
	}

	if err := h.events.DeleteEventCascade(r.Context(), eventID); err != nil {
		h.logger.Error("cascade delete failed", "event_id", eventID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"deleted": eventID})
}

// SyncEventsHandler handles POST /api/admin/events/sync
func (h *Handler) SyncEventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := h.manager.SyncUpcomingFromSource(r.Context())
	if err != nil {
		h.logger.Error("upcoming sync failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// SyncOutcomesHandler handles POST /api/admin/outcomes/sync
func (h *Handler) SyncOutcomesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := h.syncer.SyncCompletedEvents(r.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Error("outcome sync failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.metrics.ObserveOutcomesGraded(result.PredictionsGraded)

	writeJSON(w, http.StatusOK, result)
}

// GetAccuracyHandler handles GET /api/stats/accuracy
func (h *Handler) GetAccuracyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.accuracy.AccuracyByModel(r.Context())
	if err != nil {
		h.logger.Error("failed to compute accuracy", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"models": stats})
}

// pathSegment extracts the path element between prefix and suffix, e.g. the
// event ID from /api/admin/events/:id/rollback.
func pathSegment(path, prefix, suffix string) string {
	rest := strings.TrimPrefix(path, prefix)
	if suffix != "" {
		rest = strings.TrimSuffix(rest, suffix)
	}
	return strings.Trim(rest, "/")
}
