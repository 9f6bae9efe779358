package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"log/slog"

	"github.com/fightgenie/fightgenie/internal/models"
)

// OddsStore provides odds history and market analysis storage.
type OddsStore interface {
	AppendSnapshot(ctx context.Context, snap models.OddsSnapshot) error
	AppendAnalysis(ctx context.Context, analysis models.MarketAnalysis) error
	ListSnapshots(ctx context.Context, eventID string) ([]models.OddsSnapshot, error)
	ListAnalysis(ctx context.Context, eventID string) ([]models.MarketAnalysis, error)
}

// OddsHandler serves the odds history and market analysis endpoints.
type OddsHandler struct {
	store  OddsStore
	logger *slog.Logger
}

// NewOddsHandler creates an odds handler.
func NewOddsHandler(store OddsStore, logger *slog.Logger) *OddsHandler {
	return &OddsHandler{store: store, logger: logger}
}

// HandleOdds handles GET /api/odds?event_id= and POST /api/admin/odds
func (h *OddsHandler) HandleOdds(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listSnapshots(w, r)
	case http.MethodPost:
		h.appendSnapshot(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *OddsHandler) listSnapshots(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("event_id")
	if eventID == "" {
		http.Error(w, "event_id is required", http.StatusBadRequest)
		return
	}

	snaps, err := h.store.ListSnapshots(r.Context(), eventID)
	if err != nil {
		h.logger.Error("failed to list odds", "event_id", eventID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"event_id":  eventID,
		"snapshots": snaps,
	})
}

func (h *OddsHandler) appendSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap models.OddsSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if snap.EventID == "" || snap.Fighter == "" || snap.DecimalOdds <= 1.0 {
		http.Error(w, "event_id, fighter, and decimal odds > 1.0 are required", http.StatusBadRequest)
		return
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now().UTC()
	}

	if err := h.store.AppendSnapshot(r.Context(), snap); err != nil {
		h.logger.Error("failed to append odds snapshot", "event_id", snap.EventID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, snap)
}

// HandleAnalysis handles GET /api/odds/analysis?event_id= and POST /api/admin/odds/analysis
func (h *OddsHandler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listAnalysis(w, r)
	case http.MethodPost:
		h.appendAnalysis(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *OddsHandler) listAnalysis(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("event_id")
	if eventID == "" {
		http.Error(w, "event_id is required", http.StatusBadRequest)
		return
	}

	rows, err := h.store.ListAnalysis(r.Context(), eventID)
	if err != nil {
		h.logger.Error("failed to list market analysis", "event_id", eventID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"event_id": eventID,
		"analysis": rows,
	})
}

func (h *OddsHandler) appendAnalysis(w http.ResponseWriter, r *http.Request) {
	var analysis models.MarketAnalysis
	if err := json.NewDecoder(r.Body).Decode(&analysis); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if analysis.EventID == "" || analysis.Fighter == "" {
		http.Error(w, "event_id and fighter are required", http.StatusBadRequest)
		return
	}

	if err := h.store.AppendAnalysis(r.Context(), analysis); err != nil {
		h.logger.Error("failed to append market analysis", "event_id", analysis.EventID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, analysis)
}
