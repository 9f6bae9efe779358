package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fightgenie/fightgenie/internal/api"
	"github.com/fightgenie/fightgenie/internal/auth"
	"github.com/fightgenie/fightgenie/internal/config"
	"github.com/fightgenie/fightgenie/internal/database"
	"github.com/fightgenie/fightgenie/internal/lifecycle"
	"github.com/fightgenie/fightgenie/internal/logging"
	"github.com/fightgenie/fightgenie/internal/metrics"
	"github.com/fightgenie/fightgenie/internal/models"
	"github.com/fightgenie/fightgenie/internal/outcomes"
	"github.com/fightgenie/fightgenie/internal/predictions"
	"github.com/fightgenie/fightgenie/internal/scheduler"
	"github.com/fightgenie/fightgenie/internal/scraper"
	"github.com/fightgenie/fightgenie/internal/server"
	_ "github.com/lib/pq"
	"log/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting fightgenie")

	dbConfig := database.DefaultConfig()
	dbConfig.URL = cfg.Database.URL
	dbConfig.MaxConnections = cfg.Database.MaxConnections
	dbConfig.MaxIdleConnections = cfg.Database.MaxIdle

	logger.Info("connecting to database")
	db, err := database.Connect(context.Background(), dbConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	// Run pending migrations (non-fatal to allow app to start even if migrations fail)
	if err := database.RunMigrations(db, "./migrations", logger); err != nil {
		logger.Warn("failed to run migrations, continuing anyway", "error", err)
	}

	// Create repositories
	eventRepo := database.NewEventRepository(db)
	predictionRepo := database.NewPredictionRepository(db)
	outcomeRepo := database.NewOutcomeRepository(db)
	oddsRepo := database.NewOddsRepository(db)
	subscriptionRepo := database.NewSubscriptionRepository(db)

	// Stats-site scraper and event lifecycle manager
	cardScraper := scraper.New(scraper.Config{
		BaseURL: cfg.Scraper.BaseURL,
		Timeout: cfg.Scraper.Timeout,
	})
	manager := lifecycle.NewManager(eventRepo, cardScraper, logger)

	// Prediction generators, one per configured provider
	generators := make(map[models.PredictionModel]predictions.Generator)
	if cfg.Predictions.OpenAIKey != "" {
		generators[models.ModelGPT] = predictions.NewOpenAIGenerator(cfg.Predictions.OpenAIKey, cfg.Predictions.OpenAIModel, logger)
		logger.Info("gpt prediction generator enabled")
	} else {
		logger.Warn("OPENAI_API_KEY not set, gpt predictions disabled")
	}
	if cfg.Predictions.AnthropicKey != "" {
		generators[models.ModelClaude] = predictions.NewAnthropicGenerator(cfg.Predictions.AnthropicKey, cfg.Predictions.AnthropicModel, logger)
		logger.Info("claude prediction generator enabled")
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set, claude predictions disabled")
	}
	predictionService := predictions.NewService(predictionRepo, generators, logger)

	// Outcome grading
	outcomeService := outcomes.NewService(eventRepo, predictionRepo, outcomeRepo, cardScraper, logger)

	// Background schedulers
	logger.Info("starting outcome scheduler")
	outcomeScheduler := scheduler.NewOutcomeScheduler(outcomeService, cfg.Scheduler.OutcomeSyncInterval, logger)
	go outcomeScheduler.Start(context.Background())

	logger.Info("starting maintenance scheduler")
	maintenanceScheduler := scheduler.NewMaintenanceScheduler(oddsRepo, subscriptionRepo, cfg.Scheduler.OddsRetention, logger)
	go maintenanceScheduler.Start(context.Background())

	// Setup HTTP routes
	mux := http.NewServeMux()

	// Health check endpoint backed by a live database round trip
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := database.HealthCheck(r.Context(), db); err != nil {
			logger.Error("health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Service info endpoint
	mux.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"fightgenie","status":"ready","version":"0.1.0"}`))
	})

	collector, err := metrics.NewHTTPCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}
	mux.Handle("/metrics", collector.Handler())

	// Load auth configuration
	authConfig := auth.LoadConfigFromEnv()
	logger.Info("auth configured", "jwt_secret_set", authConfig.JWTSecret != "change-this-secret")

	// Add REST API routes
	logger.Info("setting up REST API")
	handler := api.NewHandler(eventRepo, manager, predictionService, outcomeService, outcomeRepo, collector, logger)
	oddsHandler := api.NewOddsHandler(oddsRepo, logger)
	subscriptionHandler := api.NewSubscriptionHandler(subscriptionRepo, eventRepo, logger)
	api.SetupRoutes(mux, handler, oddsHandler, subscriptionHandler, authConfig, logger)

	// Start server
	srv := server.New(cfg.Server, logger, collector.InstrumentHandler(mux))

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("fightgenie started successfully")
	logger.Info("API available", "url", fmt.Sprintf("http://localhost%s", srv.Addr()))

	waitForSignal(logger)

	logger.Info("shutting down")
	outcomeScheduler.Stop()
	maintenanceScheduler.Stop()

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
