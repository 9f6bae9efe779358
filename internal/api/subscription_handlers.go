package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/fightgenie/fightgenie/internal/models"
)

// SubscriptionStore provides server subscription storage.
type SubscriptionStore interface {
	Upsert(ctx context.Context, sub models.ServerSubscription) error
	Get(ctx context.Context, serverID string) (*models.ServerSubscription, error)
	CheckAccess(ctx context.Context, serverID string, now time.Time) (bool, error)
}

// EventDater resolves an event's date for EVENT subscription expiry.
type EventDater interface {
	GetEvent(ctx context.Context, eventID string) (*models.EventMeta, error)
}

// SubscriptionHandler serves the server subscription endpoints.
type SubscriptionHandler struct {
	store  SubscriptionStore
	events EventDater
	logger *slog.Logger
}

// NewSubscriptionHandler creates a subscription handler.
func NewSubscriptionHandler(store SubscriptionStore, events EventDater, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{store: store, events: events, logger: logger}
}

// UpsertRequest is the admin grant/update payload.
type UpsertRequest struct {
	ServerID string `json:"server_id"`
	Type     string `json:"subscription_type"`
	EventID  string `json:"event_id,omitempty"`
}

// UpsertHandler handles POST /api/admin/subscriptions. EVENT grants get an
// expiration of the day after the linked event; the expiry is fixed here and
// never recomputed if the event later moves.
func (h *SubscriptionHandler) UpsertHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ServerID == "" {
		http.Error(w, "server_id is required", http.StatusBadRequest)
		return
	}
	subType, ok := models.ParseSubscriptionType(req.Type)
	if !ok {
		http.Error(w, "subscription_type must be LIFETIME or EVENT", http.StatusBadRequest)
		return
	}

	sub := models.ServerSubscription{
		ServerID: req.ServerID,
		Type:     subType,
		Status:   "ACTIVE",
	}

	if subType == models.SubscriptionEvent {
		if req.EventID == "" {
			http.Error(w, "event_id is required for EVENT subscriptions", http.StatusBadRequest)
			return
		}
		event, err := h.events.GetEvent(r.Context(), req.EventID)
		if err != nil {
			h.logger.Error("failed to load event for subscription", "event_id", req.EventID, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if event == nil {
			http.Error(w, "Event not found", http.StatusNotFound)
			return
		}

		expiry := models.DateOnly(event.Date).AddDate(0, 0, 1)
		sub.EventID = &req.EventID
		sub.ExpirationDate = &expiry
	}

	if err := h.store.Upsert(r.Context(), sub); err != nil {
		h.logger.Error("failed to upsert subscription", "server_id", req.ServerID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

// AccessHandler handles GET /api/subscriptions/:serverID/access
func (h *SubscriptionHandler) AccessHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	serverID := pathSegment(r.URL.Path, "/api/subscriptions/", "/access")
	if serverID == "" || strings.Contains(serverID, "/") {
		http.Error(w, "Server ID required", http.StatusBadRequest)
		return
	}

	active, err := h.store.CheckAccess(r.Context(), serverID, time.Now().UTC())
	if err != nil {
		h.logger.Error("access check failed", "server_id", serverID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"server_id": serverID,
		"active":    active,
	})
}

// GetHandler handles GET /api/admin/subscriptions/:serverID
func (h *SubscriptionHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	serverID := pathSegment(r.URL.Path, "/api/admin/subscriptions/", "")
	if serverID == "" {
		http.Error(w, "Server ID required", http.StatusBadRequest)
		return
	}

	sub, err := h.store.Get(r.Context(), serverID)
	if err != nil {
		h.logger.Error("failed to get subscription", "server_id", serverID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if sub == nil {
		http.Error(w, "Subscription not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, sub)
}
