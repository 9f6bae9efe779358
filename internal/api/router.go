package api

import (
	"net/http"
	"strings"

	"log/slog"

	"github.com/fightgenie/fightgenie/internal/auth"
)

// SetupRoutes configures all API routes. Lifecycle mutations and grant
// management sit behind the admin JWT; reads and prediction fetches are
// public (the Discord layer does its own subscription gating via the access
// endpoint).
func SetupRoutes(mux *http.ServeMux, handler *Handler, oddsHandler *OddsHandler, subHandler *SubscriptionHandler, authConfig auth.Config, logger *slog.Logger) {
	authHandler := NewAuthHandler(authConfig, logger)
	authMiddleware := auth.AuthMiddleware(authConfig)

	// Authentication routes (public)
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/validate", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(authHandler.ValidateToken)).ServeHTTP(w, r)
	})

	// Event routes (public for reading)
	mux.HandleFunc("/api/events", handler.GetEventsHandler)
	mux.HandleFunc("/api/events/current", handler.GetCurrentEventHandler)
	mux.HandleFunc("/api/events/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/events/current" {
			handler.GetCurrentEventHandler(w, r)
			return
		}
		handler.GetEventByIDHandler(w, r)
	})

	// Prediction routes (public)
	mux.HandleFunc("/api/predictions", handler.GetPredictionHandler)

	// Accuracy stats (public)
	mux.HandleFunc("/api/stats/accuracy", handler.GetAccuracyHandler)

	// Odds routes (public reads)
	mux.HandleFunc("/api/odds", oddsHandler.HandleOdds)
	mux.HandleFunc("/api/odds/analysis", oddsHandler.HandleAnalysis)

	// Subscription access check (public; the bot calls this per interaction)
	mux.HandleFunc("/api/subscriptions/", subHandler.AccessHandler)

	// Admin lifecycle routes
	mux.HandleFunc("/api/admin/events/sync", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(handler.SyncEventsHandler)).ServeHTTP(w, r)
	})
	mux.HandleFunc("/api/admin/events/advance", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(handler.AdvanceEventHandler)).ServeHTTP(w, r)
	})
	mux.HandleFunc("/api/admin/events/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/admin/events/" {
			http.NotFound(w, r)
			return
		}
		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Handle /api/admin/events/:id/rollback
			if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/rollback") {
				handler.RollbackEventHandler(w, r)
				return
			}
			// Handle /api/admin/events/:id/refresh
			if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/refresh") {
				handler.RefreshEventHandler(w, r)
				return
			}
			// Handle DELETE /api/admin/events/:id
			if r.Method == http.MethodDelete {
				handler.DeleteEventHandler(w, r)
				return
			}
			http.Error(w, "Not found", http.StatusNotFound)
		})).ServeHTTP(w, r)
	})

	// Admin outcome sync
	mux.HandleFunc("/api/admin/outcomes/sync", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(handler.SyncOutcomesHandler)).ServeHTTP(w, r)
	})

	// Admin odds writes
	mux.HandleFunc("/api/admin/odds", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(oddsHandler.HandleOdds)).ServeHTTP(w, r)
	})
	mux.HandleFunc("/api/admin/odds/analysis", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(oddsHandler.HandleAnalysis)).ServeHTTP(w, r)
	})

	// Admin subscription management
	mux.HandleFunc("/api/admin/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(subHandler.UpsertHandler)).ServeHTTP(w, r)
	})
	mux.HandleFunc("/api/admin/subscriptions/", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(subHandler.GetHandler)).ServeHTTP(w, r)
	})

	// CORS preflight catch-all
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	})
}
