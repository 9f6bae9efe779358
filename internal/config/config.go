package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Scraper     ScraperConfig
	Predictions PredictionsConfig
	Scheduler   SchedulerConfig
	Auth        AuthConfig
	Logging     LoggingConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MaxIdle        int
}

// ScraperConfig holds stats-site scraper parameters.
type ScraperConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PredictionsConfig holds AI provider credentials and model names.
type PredictionsConfig struct {
	OpenAIKey      string
	OpenAIModel    string
	AnthropicKey   string
	AnthropicModel string
}

// SchedulerConfig holds background loop intervals and retention windows.
type SchedulerConfig struct {
	OutcomeSyncInterval time.Duration
	OddsRetention       time.Duration
}

// AuthConfig holds admin authentication parameters.
type AuthConfig struct {
	JWTSecret         string
	AdminPasswordHash string
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultMaxConnections = 25
	defaultMaxIdle        = 5

	defaultScrapeBaseURL = "http://ufcstats.com"
	defaultScrapeTimeout = 20 * time.Second

	defaultOutcomeSyncInterval = 30 * time.Minute
	defaultOddsRetention       = 90 * 24 * time.Hour

	defaultLogFormat = "json"
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided. A .env file in the working directory is merged in
// first; missing files are fine.
func Load() (Config, error) {
	_ = godotenv.Load()

	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Database: DatabaseConfig{
			URL:            os.Getenv("DATABASE_URL"),
			MaxConnections: defaultMaxConnections,
			MaxIdle:        defaultMaxIdle,
		},
		Scraper: ScraperConfig{
			BaseURL: getEnv("SCRAPE_BASE_URL", defaultScrapeBaseURL),
			Timeout: defaultScrapeTimeout,
		},
		Predictions: PredictionsConfig{
			OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:    os.Getenv("OPENAI_MODEL"),
			AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY"),
			AnthropicModel: os.Getenv("ANTHROPIC_MODEL"),
		},
		Scheduler: SchedulerConfig{
			OutcomeSyncInterval: defaultOutcomeSyncInterval,
			OddsRetention:       defaultOddsRetention,
		},
		Auth: AuthConfig{
			JWTSecret:         os.Getenv("JWT_SECRET"),
			AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
	}

	if v := os.Getenv("DATABASE_MAX_CONNECTIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid DATABASE_MAX_CONNECTIONS: must be a positive integer")
		}
		cfg.Database.MaxConnections = n
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("SCRAPE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCRAPE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Scraper.Timeout = d
	}

	if v := os.Getenv("OUTCOME_SYNC_INTERVAL_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OUTCOME_SYNC_INTERVAL_SECONDS: %w", err)
		}
		cfg.Scheduler.OutcomeSyncInterval = d
	}

	if v := os.Getenv("ODDS_RETENTION_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return Config{}, fmt.Errorf("invalid ODDS_RETENTION_DAYS: must be a positive integer")
		}
		cfg.Scheduler.OddsRetention = time.Duration(days) * 24 * time.Hour
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
