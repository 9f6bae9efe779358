package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fightgenie/fightgenie/internal/config"
)

// New constructs a slog.Logger writing to stdout, configured according to
// the provided settings. Cloud Run captures stdout, so json is the default
// when no format is set.
func New(cfg config.LoggingConfig) (*slog.Logger, error) {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter is New with an explicit sink. Tests use it to capture
// output; everything else goes through New.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig) (*slog.Logger, error) {
	handler, err := buildHandler(w, cfg)
	if err != nil {
		return nil, err
	}

	return slog.New(handler), nil
}

func buildHandler(w io.Writer, cfg config.LoggingConfig) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	switch cfg.Format {
	case "json", "":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}
}
