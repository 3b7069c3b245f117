package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Booking outcome labels.
const (
	OutcomeAdmitted     = "admitted"
	OutcomeSlotFull     = "slot_full"
	OutcomeNoSuchSlot   = "no_such_slot"
	OutcomeIneligible   = "ineligible"
	OutcomeNotFound     = "not_found"
	OutcomeRejected     = "rejected"
	OutcomeInternalFail = "error"
)

// MetricsService owns the Prometheus registry for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	bookingOutcomes *prometheus.CounterVec
	allocDuration   prometheus.Histogram
	transitions     *prometheus.CounterVec
	dutyChanges     *prometheus.CounterVec
	jobsDropped     *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	bookingOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_requests_total",
		Help: "Booking requests by outcome",
	}, []string{"outcome"})

	allocDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "booking_allocation_duration_seconds",
		Help:    "Time spent inside the capacity-checked admission",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_transitions_total",
		Help: "Booking status transitions applied",
	}, []string{"from", "to"})

	dutyChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_changes_total",
		Help: "Slot template and duty roster mutations",
	}, []string{"resource", "action"})

	jobsDropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "background_jobs_dropped_total",
		Help: "Background jobs abandoned after exhausting retries",
	}, []string{"type"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses,
		bookingOutcomes, allocDuration, transitions, dutyChanges, jobsDropped, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		bookingOutcomes: bookingOutcomes,
		allocDuration:   allocDuration,
		transitions:     transitions,
		dutyChanges:     dutyChanges,
		jobsDropped:     jobsDropped,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordBooking counts a booking request outcome.
func (m *MetricsService) RecordBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveAllocation records how long the atomic admission took.
func (m *MetricsService) ObserveAllocation(duration time.Duration) {
	if m == nil {
		return
	}
	m.allocDuration.Observe(duration.Seconds())
}

// RecordTransition counts a lifecycle transition.
func (m *MetricsService) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// RecordScheduleChange counts a slot or duty mutation.
func (m *MetricsService) RecordScheduleChange(resource, action string) {
	if m == nil {
		return
	}
	m.dutyChanges.WithLabelValues(resource, action).Inc()
}

// RecordJobDropped counts a background job given up on, e.g. an audit entry
// that could not be written.
func (m *MetricsService) RecordJobDropped(jobType string) {
	if m == nil {
		return
	}
	m.jobsDropped.WithLabelValues(jobType).Inc()
}
