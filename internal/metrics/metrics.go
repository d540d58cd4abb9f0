package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// Scrape endpoint metrics
	scrapeRequests *prometheus.CounterVec
	scrapeDuration *prometheus.HistogramVec
	scrapeInFlight prometheus.Gauge

	// Business metrics
	cyclesTotal         prometheus.Counter
	cycleDuration       prometheus.Histogram
	cycleErrors         *prometheus.CounterVec
	analysesTotal       *prometheus.CounterVec
	consensusConfidence *prometheus.GaugeVec
	tradesTotal         *prometheus.CounterVec
	fallbacksTotal      *prometheus.CounterVec
	notificationsTotal  *prometheus.CounterVec
	activeSymbols       prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		scrapeRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quorum_scrape_requests_total",
				Help: "Total number of metrics scrapes by status code",
			},
			[]string{"code"},
		),

		scrapeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quorum_scrape_duration_seconds",
				Help:    "Metrics scrape duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"code"},
		),

		scrapeInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "quorum_scrape_in_flight",
				Help: "Number of metrics scrapes currently being served",
			},
		),
	}

	reg.MustRegister(r.scrapeRequests)
	reg.MustRegister(r.scrapeDuration)
	reg.MustRegister(r.scrapeInFlight)

	// Business metrics
	r.cyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quorum_cycles_total",
			Help: "Total number of evaluation cycles completed",
		},
	)
	r.cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quorum_cycle_duration_seconds",
			Help:    "Evaluation cycle duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
	r.cycleErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quorum_cycle_errors_total",
			Help: "Total number of cycle and per-symbol errors",
		},
		[]string{"stage"},
	)
	r.analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quorum_analyses_total",
			Help: "Total number of consensus reports by direction",
		},
		[]string{"symbol", "direction"},
	)
	r.consensusConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quorum_consensus_confidence",
			Help: "Latest consensus confidence per symbol",
		},
		[]string{"symbol"},
	)
	r.tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quorum_trades_total",
			Help: "Total number of trade records by action and status",
		},
		[]string{"action", "status"},
	)
	r.fallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quorum_synthetic_fallbacks_total",
			Help: "Total number of bar fetches served by synthetic data",
		},
		[]string{"symbol"},
	)
	r.notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quorum_notifications_total",
			Help: "Total number of events delivered to notifiers",
		},
		[]string{"notifier", "status"},
	)
	r.activeSymbols = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quorum_active_symbols",
			Help: "Number of symbols being evaluated",
		},
	)

	reg.MustRegister(r.cyclesTotal)
	reg.MustRegister(r.cycleDuration)
	reg.MustRegister(r.cycleErrors)
	reg.MustRegister(r.analysesTotal)
	reg.MustRegister(r.consensusConfidence)
	reg.MustRegister(r.tradesTotal)
	reg.MustRegister(r.fallbacksTotal)
	reg.MustRegister(r.notificationsTotal)
	reg.MustRegister(r.activeSymbols)

	return r
}

// Handler serves the registry in the Prometheus text format. Each scrape is
// counted, timed and tracked in flight.
func (r *Registry) Handler() http.Handler {
	h := promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
	h = promhttp.InstrumentHandlerCounter(r.scrapeRequests, h)
	h = promhttp.InstrumentHandlerDuration(r.scrapeDuration, h)
	return promhttp.InstrumentHandlerInFlight(r.scrapeInFlight, h)
}

// RecordCycle records an evaluation cycle completion.
func (r *Registry) RecordCycle(duration float64) {
	r.cyclesTotal.Inc()
	r.cycleDuration.Observe(duration)
}

// RecordError counts a failure at the given stage ("cycle", "bars",
// "news", "lifecycle").
func (r *Registry) RecordError(stage string) {
	r.cycleErrors.WithLabelValues(stage).Inc()
}

// RecordAnalysis records a consensus report.
func (r *Registry) RecordAnalysis(symbol, direction string, confidence int) {
	r.analysesTotal.WithLabelValues(symbol, direction).Inc()
	r.consensusConfidence.WithLabelValues(symbol).Set(float64(confidence))
}

// RecordTrade records a saved trade record.
func (r *Registry) RecordTrade(action, status string) {
	r.tradesTotal.WithLabelValues(action, status).Inc()
}

// RecordFallback records a synthetic bar series served for symbol.
func (r *Registry) RecordFallback(symbol string) {
	r.fallbacksTotal.WithLabelValues(symbol).Inc()
}

// RecordNotification records a notifier delivery.
func (r *Registry) RecordNotification(notifier, status string) {
	r.notificationsTotal.WithLabelValues(notifier, status).Inc()
}

// SetActiveSymbols sets the number of symbols being evaluated.
func (r *Registry) SetActiveSymbols(n int) {
	r.activeSymbols.Set(float64(n))
}

// ForgetSymbol drops the per-symbol confidence series.
func (r *Registry) ForgetSymbol(symbol string) {
	r.consensusConfidence.DeleteLabelValues(symbol)
}
