package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPCollector exposes Prometheus metrics for inbound HTTP requests and the
// domain counters the admin surface cares about.
type HTTPCollector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	scrapeTotal      *prometheus.CounterVec
	predictionsTotal *prometheus.CounterVec
	outcomesGraded   prometheus.Counter
}

// NewHTTPCollector constructs a collector with default histograms/counters.
func NewHTTPCollector() (*HTTPCollector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fightgenie",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fightgenie",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	scrapeTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fightgenie",
		Subsystem: "scraper",
		Name:      "fetches_total",
		Help:      "Stats-site fetches by result.",
	}, []string{"result"})

	predictionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fightgenie",
		Subsystem: "predictions",
		Name:      "generated_total",
		Help:      "Prediction generations by model.",
	}, []string{"model"})

	outcomesGraded := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fightgenie",
		Subsystem: "outcomes",
		Name:      "graded_total",
		Help:      "Predictions graded against scraped results.",
	})

	for _, c := range []prometheus.Collector{requestDuration, requestTotal, scrapeTotal, predictionsTotal, outcomesGraded} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	collector := &HTTPCollector{
		registry:         registry,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		scrapeTotal:      scrapeTotal,
		predictionsTotal: predictionsTotal,
		outcomesGraded:   outcomesGraded,
	}

	return collector, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *HTTPCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveScrape records one stats-site fetch.
func (c *HTTPCollector) ObserveScrape(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	c.scrapeTotal.WithLabelValues(result).Inc()
}

// ObservePredictionGenerated records one prediction generation.
func (c *HTTPCollector) ObservePredictionGenerated(model string) {
	c.predictionsTotal.WithLabelValues(model).Inc()
}

// ObserveOutcomesGraded records graded predictions from a sync pass.
func (c *HTTPCollector) ObserveOutcomesGraded(count int) {
	c.outcomesGraded.Add(float64(count))
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *HTTPCollector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
