package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	httpDurationHistogram    *prometheus.HistogramVec
	revenueOutcomeCounter    *prometheus.CounterVec
	pipelineStepHistogram    *prometheus.HistogramVec
	compensationCounter      *prometheus.CounterVec
	validationFailureCounter *prometheus.CounterVec
	reportCacheCounter       *prometheus.CounterVec
	idempotencyCounter       *prometheus.CounterVec
	workerRunCounter         *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		revenueOutcomeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revenue_pipeline_outcomes_total",
			Help: "Revenue pipeline terminal states by outcome kind",
		}, []string{"outcome"})

		pipelineStepHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "revenue_pipeline_step_duration_seconds",
			Help:    "Store round-trip latency per pipeline step",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"})

		compensationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_compensations_total",
			Help: "Compensating ledger entry deletes by result",
		}, []string{"result"})

		validationFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_validation_failures_total",
			Help: "Financial validation checks that did not pass",
		}, []string{"check", "status"})

		reportCacheCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_cache_events_total",
			Help: "Report cache hits, misses and invalidations",
		}, []string{"event"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			revenueOutcomeCounter,
			pipelineStepHistogram,
			compensationCounter,
			validationFailureCounter,
			reportCacheCounter,
			idempotencyCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementRevenueOutcome(outcome string) {
	if revenueOutcomeCounter == nil {
		return
	}
	revenueOutcomeCounter.WithLabelValues(outcome).Inc()
}

func ObservePipelineStep(step string, duration time.Duration) {
	if pipelineStepHistogram == nil {
		return
	}
	pipelineStepHistogram.WithLabelValues(step).Observe(duration.Seconds())
}

func IncrementCompensation(result string) {
	if compensationCounter == nil {
		return
	}
	compensationCounter.WithLabelValues(result).Inc()
}

func IncrementValidationFailure(check, status string) {
	if validationFailureCounter == nil {
		return
	}
	validationFailureCounter.WithLabelValues(check, status).Inc()
}

func IncrementReportCacheEvent(event string) {
	if reportCacheCounter == nil {
		return
	}
	reportCacheCounter.WithLabelValues(event).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
