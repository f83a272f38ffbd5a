package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for crawl runs.
type Metrics struct {
	Registry          *prometheus.Registry
	RunsTotal         *prometheus.CounterVec
	ActiveRuns        prometheus.Gauge
	PlacesTotal       prometheus.Counter
	ListingsTotal     *prometheus.CounterVec
	EmailLookupsTotal *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
	OpDuration        *prometheus.HistogramVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_runs_total",
			Help: "Crawl runs finished, by outcome.",
		},
		[]string{"outcome"},
	)
	active := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "leadscout_active_runs",
			Help: "Crawl runs currently in progress.",
		},
	)
	places := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leadscout_places_processed_total",
			Help: "Places dequeued and searched.",
		},
	)
	listings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_listings_classified_total",
			Help: "Listings classified, by status.",
		},
		[]string{"status"},
	)
	emails := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_email_lookups_total",
			Help: "Website email lookups, by result.",
		},
		[]string{"result"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_errors_total",
			Help: "Automation errors by type.",
		},
		[]string{"error_type"},
	)
	opDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadscout_automation_duration_seconds",
			Help:    "Latency of automation operations.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"op"},
	)

	registry.MustRegister(runs, active, places, listings, emails, errorsTotal, opDuration)

	return &Metrics{
		Registry:          registry,
		RunsTotal:         runs,
		ActiveRuns:        active,
		PlacesTotal:       places,
		ListingsTotal:     listings,
		EmailLookupsTotal: emails,
		ErrorsTotal:       errorsTotal,
		OpDuration:        opDuration,
	}
}

// RunStarted increments the active runs gauge.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.ActiveRuns.Inc()
}

// RunFinished records a run outcome and decrements the active gauge.
func (m *Metrics) RunFinished(outcome string) {
	if m == nil {
		return
	}
	m.ActiveRuns.Dec()
	m.RunsTotal.WithLabelValues(outcome).Inc()
}

// IncPlaces increments the processed places counter.
func (m *Metrics) IncPlaces() {
	if m == nil {
		return
	}
	m.PlacesTotal.Inc()
}

// IncListing records a classified listing.
func (m *Metrics) IncListing(status string) {
	if m == nil {
		return
	}
	m.ListingsTotal.WithLabelValues(status).Inc()
}

// IncEmailLookup records an email lookup result: found, none, cached, or error.
func (m *Metrics) IncEmailLookup(result string) {
	if m == nil {
		return
	}
	m.EmailLookupsTotal.WithLabelValues(result).Inc()
}

// IncError increments the errors counter for the error's type label.
func (m *Metrics) IncError(err error) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(ErrorTypeLabel(err)).Inc()
}

// ObserveOp records how long an automation operation took.
func (m *Metrics) ObserveOp(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.OpDuration.WithLabelValues(op).Observe(d.Seconds())
}
