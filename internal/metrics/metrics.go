package metrics

import (
	"time"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/provider"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Pipeline run outcomes
const (
	OutcomeOK          = "ok"
	OutcomeDegraded    = "degraded"
	OutcomeInvalid     = "invalid_ticker"
	OutcomeConfigError = "config_error"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	signalsGenerated   *prometheus.CounterVec
	pipelineRuns       *prometheus.CounterVec
	pipelineDuration   prometheus.Histogram
	providerAttempts   *prometheus.CounterVec
	providerDuration   *prometheus.HistogramVec
	categoryConfidence *prometheus.HistogramVec
	archiveWrites      *prometheus.CounterVec
	signalsStored      prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.signalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalforge_signals_generated_total",
			Help: "Total number of signals generated",
		},
		[]string{"decision"},
	)
	r.pipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalforge_pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"outcome"},
	)
	r.pipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signalforge_pipeline_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
	r.providerAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalforge_provider_attempts_total",
			Help: "Total number of provider fetch attempts by result",
		},
		[]string{"provider", "category", "result"},
	)
	r.providerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalforge_provider_attempt_duration_seconds",
			Help:    "Provider fetch attempt duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
	r.categoryConfidence = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalforge_category_confidence",
			Help:    "Category confidence per produced signal",
			Buckets: []float64{0, 0.25, 0.5, 0.75, 1},
		},
		[]string{"category"},
	)
	r.archiveWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalforge_archive_writes_total",
			Help: "Total number of signal archive writes",
		},
		[]string{"status"},
	)
	r.signalsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signalforge_signals_stored",
			Help: "Number of signals held in the recent-signal store",
		},
	)

	reg.MustRegister(r.signalsGenerated)
	reg.MustRegister(r.pipelineRuns)
	reg.MustRegister(r.pipelineDuration)
	reg.MustRegister(r.providerAttempts)
	reg.MustRegister(r.providerDuration)
	reg.MustRegister(r.categoryConfidence)
	reg.MustRegister(r.archiveWrites)
	reg.MustRegister(r.signalsStored)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// ObserveAttempt records one provider attempt. An empty reason is a success.
func (r *Registry) ObserveAttempt(id core.ProviderID, c provider.Category, reason core.Reason, elapsed time.Duration) {
	result := "ok"
	if reason != "" {
		result = string(reason)
	}
	r.providerAttempts.WithLabelValues(string(id), string(c), result).Inc()
	r.providerDuration.WithLabelValues(string(id)).Observe(elapsed.Seconds())
}

// RecordPipelineRun records a pipeline run completion.
func (r *Registry) RecordPipelineRun(outcome string, duration time.Duration) {
	r.pipelineRuns.WithLabelValues(outcome).Inc()
	r.pipelineDuration.Observe(duration.Seconds())
}

// RecordSignal records a produced signal and its category confidences.
func (r *Registry) RecordSignal(s core.Signal) {
	r.signalsGenerated.WithLabelValues(string(s.Decision)).Inc()
	for _, cs := range s.CategoryScores {
		r.categoryConfidence.WithLabelValues(string(cs.Category)).Observe(cs.Confidence)
	}
}

// RecordArchiveWrite records a signal archive write.
func (r *Registry) RecordArchiveWrite(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	r.archiveWrites.WithLabelValues(status).Inc()
}

// SetSignalsStored sets the recent-signal store size.
func (r *Registry) SetSignalsStored(n int) {
	r.signalsStored.Set(float64(n))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
