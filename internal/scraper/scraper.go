package scraper

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/fightgenie/fightgenie/internal/models"
)

const defaultUserAgent = "FightGenie/1.0 (+https://github.com/fightgenie/fightgenie)"

// Bout is one scraped fighter pairing, in page order.
type Bout struct {
	Fighter1    string `json:"fighter1"`
	Fighter2    string `json:"fighter2"`
	WeightClass string `json:"weight_class"`
	IsMainCard  bool   `json:"is_main_card"`
}

// UpcomingEvent is one scraped entry from the upcoming-events listing.
type UpcomingEvent struct {
	Name     string    `json:"name"`
	Date     time.Time `json:"date"`
	Location string    `json:"location"`
	Link     string    `json:"link"`
}

// Config holds scraper runtime parameters.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// DefaultConfig returns sensible defaults for the stats-site scraper.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "http://ufcstats.com",
		Timeout:   20 * time.Second,
		UserAgent: defaultUserAgent,
	}
}

// Scraper fetches and parses fight-card pages from the stats site.
// It is a leaf component: no storage, no retries of its own. Callers decide
// whether to retry (see Retry) or surface the typed failure.
type Scraper struct {
	cfg    Config
	client *http.Client
}

// New creates a scraper with a caller-side timeout on every fetch.
func New(cfg Config) *Scraper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	return &Scraper{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// FetchEventCard downloads an event page and extracts its bouts in page
// order. The first MainCardSize bouts are flagged as main card. A page that
// parses but yields zero bouts is a ParseMismatchError, never an empty card.
func (s *Scraper) FetchEventCard(ctx context.Context, eventLink string) ([]Bout, error) {
	doc, err := s.get(ctx, eventLink)
	if err != nil {
		return nil, err
	}

	bouts, strategies := parseBouts(doc)
	if len(bouts) == 0 {
		return nil, &ParseMismatchError{URL: eventLink, Strategies: strategies}
	}

	for i := range bouts {
		bouts[i].IsMainCard = i < models.MainCardSize
	}
	return bouts, nil
}

// FetchUpcomingEvents downloads the upcoming-events listing.
func (s *Scraper) FetchUpcomingEvents(ctx context.Context) ([]UpcomingEvent, error) {
	url := s.cfg.BaseURL + "/statistics/events/upcoming?page=all"
	doc, err := s.get(ctx, url)
	if err != nil {
		return nil, err
	}

	events := parseUpcoming(doc, s.cfg.BaseURL)
	if len(events) == 0 {
		return nil, &ParseMismatchError{URL: url, Strategies: []string{"statistics-table"}}
	}
	return events, nil
}

// FetchEventResults downloads a completed event page and extracts final
// results. Bouts without a win flag (cancelled or not yet fought) are
// omitted; an empty slice with nil error means the page parsed but no bout
// has concluded.
func (s *Scraper) FetchEventResults(ctx context.Context, eventLink string) ([]models.FightResult, error) {
	doc, err := s.get(ctx, eventLink)
	if err != nil {
		return nil, err
	}

	bouts, strategies := parseBouts(doc)
	if len(bouts) == 0 {
		return nil, &ParseMismatchError{URL: eventLink, Strategies: strategies}
	}

	return parseResults(doc), nil
}

// get fetches a URL and parses it into a goquery document, mapping transport
// failures and bad statuses onto FetchError.
func (s *Scraper) get(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Retryable: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Retryable:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return doc, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
