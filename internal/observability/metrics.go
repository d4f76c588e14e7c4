package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets    = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	backendDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	bodySizeBuckets        = []float64{100, 1024, 10240, 102400, 1048576}
)

// Metrics holds all Prometheus metric instruments for the console.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestSizeBytes  *prometheus.HistogramVec
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Screen session metrics
	ScreenEventsTotal     *prometheus.CounterVec
	ScreenEventDuration   *prometheus.HistogramVec
	ScreenSessionsActive  prometheus.Gauge
	MutationsTotal        *prometheus.CounterVec
	ValidationFailures    *prometheus.CounterVec
	IdempotentReplays     *prometheus.CounterVec

	// Wizard metrics
	WizardStartsTotal      *prometheus.CounterVec
	WizardAdvancesTotal    *prometheus.CounterVec
	WizardCompletionsTotal *prometheus.CounterVec
	WizardActiveInstances  *prometheus.GaugeVec
	WizardTimeoutsTotal    *prometheus.CounterVec

	// Backend invocation metrics
	BackendRequestsTotal       *prometheus.CounterVec
	BackendRequestDuration     *prometheus.HistogramVec
	BackendCircuitBreakerState *prometheus.GaugeVec

	// Cache metrics
	CapabilityCacheHitsTotal   prometheus.Counter
	CapabilityCacheMissesTotal prometheus.Counter
	LookupCacheHitsTotal       *prometheus.CounterVec
	LookupCacheMissesTotal     *prometheus.CounterVec

	// System metrics
	DefinitionReloadTotal    *prometheus.CounterVec
	DefinitionsLoaded        prometheus.Gauge
	OpenAPIOperationsIndexed *prometheus.GaugeVec
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftwise_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shiftwise_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPRequestSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shiftwise_http_request_size_bytes",
			Help:    "HTTP request body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPResponseSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shiftwise_http_response_size_bytes",
			Help:    "HTTP response body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),

		// Screens
		ScreenEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftwise_screen_events_total",
			Help: "Total number of screen session events.",
		}, []string{"screen_id", "event", "status"}),
		ScreenEventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shiftwise_screen_event_duration_seconds",
			Help:    "Screen event handling duration in seconds.",
			Buckets: backendDurationBuckets,
		}, []string{"screen_id", "event"}),
		ScreenSessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shiftwise_screen_sessions_active",
			Help: "Number of live screen sessions.",
		}),
		MutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftwise_mutations_total",
			Help: "Total number of create/update/delete submissions.",
		}, []string{"screen_id", "verb", "outcome"}),
		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftwise_validation_failures_total",
			Help: "Total number of form submissions stopped by validation.",
		}, []string{"screen_id"}),
		IdempotentReplays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftwise_idempotent_replays_total",
			Help: "Total number of create submissions answered from the idempotency store.",
		}, []string{"screen_id"}),

		// Wizards
		WizardStartsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftwise_wizard_starts_total",
			Help: "Total number of wizard starts.",
		}, []string{"wizard_id"}),
		WizardAdvancesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftwise_wizard_advances_total",
			Help: "Total number of wizard step advances.",
		}, []string{"wizard_id", "step_id"}),
		WizardCompletionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftwise_wizard_completions_total",
			Help: "Total number of wizard completions.",
		}, []string{"wizard_id", "final_status"}),
		WizardActiveInstances: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shiftwise_wizard_active_instances",
			Help: "Number of active wizard instances.",
		}, []string{"wizard_id"}),
		WizardTimeoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftwise_wizard_timeouts_total",
			Help: "Total number of wizard instance expiries.",
		}, []string{"wizard_id"}),

		// Backend
		BackendRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftwise_backend_requests_total",
			Help: "Total number of backend service requests.",
		}, []string{"service_id", "operation_id", "status"}),
		BackendRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shiftwise_backend_request_duration_seconds",
			Help:    "Backend request duration in seconds.",
			Buckets: backendDurationBuckets,
		}, []string{"service_id"}),
		BackendCircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shiftwise_backend_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"service_id"}),

		// Cache
		CapabilityCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shiftwise_capability_cache_hits_total",
			Help: "Total capability cache hits.",
		}),
		CapabilityCacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shiftwise_capability_cache_misses_total",
			Help: "Total capability cache misses.",
		}),
		LookupCacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftwise_lookup_cache_hits_total",
			Help: "Total lookup cache hits.",
		}, []string{"lookup_id"}),
		LookupCacheMissesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftwise_lookup_cache_misses_total",
			Help: "Total lookup cache misses.",
		}, []string{"lookup_id"}),

		// System
		DefinitionReloadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftwise_definition_reload_total",
			Help: "Total definition reloads.",
		}, []string{"status"}),
		DefinitionsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shiftwise_definitions_loaded",
			Help: "Number of loaded domain definitions.",
		}),
		OpenAPIOperationsIndexed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shiftwise_openapi_operations_indexed",
			Help: "Number of indexed OpenAPI operations.",
		}, []string{"service_id"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSizeBytes,
		m.HTTPResponseSizeBytes,
		m.ScreenEventsTotal,
		m.ScreenEventDuration,
		m.ScreenSessionsActive,
		m.MutationsTotal,
		m.ValidationFailures,
		m.IdempotentReplays,
		m.WizardStartsTotal,
		m.WizardAdvancesTotal,
		m.WizardCompletionsTotal,
		m.WizardActiveInstances,
		m.WizardTimeoutsTotal,
		m.BackendRequestsTotal,
		m.BackendRequestDuration,
		m.BackendCircuitBreakerState,
		m.CapabilityCacheHitsTotal,
		m.CapabilityCacheMissesTotal,
		m.LookupCacheHitsTotal,
		m.LookupCacheMissesTotal,
		m.DefinitionReloadTotal,
		m.DefinitionsLoaded,
		m.OpenAPIOperationsIndexed,
	)

	return m
}

// --- Recording helpers ---

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration, reqSize, respSize int) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
	m.HTTPRequestSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(reqSize))
	m.HTTPResponseSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(respSize))
}

// RecordScreenEvent records a screen session event.
func (m *Metrics) RecordScreenEvent(screenID, event, status string, duration time.Duration) {
	m.ScreenEventsTotal.WithLabelValues(screenID, event, status).Inc()
	m.ScreenEventDuration.WithLabelValues(screenID, event).Observe(duration.Seconds())
}

// SetScreenSessions sets the live screen session count.
func (m *Metrics) SetScreenSessions(count float64) {
	m.ScreenSessionsActive.Set(count)
}

// RecordMutation records a create/update/delete outcome.
func (m *Metrics) RecordMutation(screenID, verb, outcome string) {
	m.MutationsTotal.WithLabelValues(screenID, verb, outcome).Inc()
}

// RecordValidationFailure records a submission stopped by validation.
func (m *Metrics) RecordValidationFailure(screenID string) {
	m.ValidationFailures.WithLabelValues(screenID).Inc()
}

// RecordIdempotentReplay records a create answered from the idempotency store.
func (m *Metrics) RecordIdempotentReplay(screenID string) {
	m.IdempotentReplays.WithLabelValues(screenID).Inc()
}

// RecordWizardStart records a wizard start.
func (m *Metrics) RecordWizardStart(wizardID string) {
	m.WizardStartsTotal.WithLabelValues(wizardID).Inc()
	m.WizardActiveInstances.WithLabelValues(wizardID).Inc()
}

// RecordWizardAdvance records a wizard step advance.
func (m *Metrics) RecordWizardAdvance(wizardID, stepID string) {
	m.WizardAdvancesTotal.WithLabelValues(wizardID, stepID).Inc()
}

// RecordWizardCompletion records a terminal wizard transition.
func (m *Metrics) RecordWizardCompletion(wizardID, finalStatus string) {
	m.WizardCompletionsTotal.WithLabelValues(wizardID, finalStatus).Inc()
	m.WizardActiveInstances.WithLabelValues(wizardID).Dec()
}

// RecordWizardTimeout records a wizard instance expiry.
func (m *Metrics) RecordWizardTimeout(wizardID string) {
	m.WizardTimeoutsTotal.WithLabelValues(wizardID).Inc()
}

// RecordBackendRequest records a backend service request.
func (m *Metrics) RecordBackendRequest(serviceID, operationID string, status int, duration time.Duration) {
	m.BackendRequestsTotal.WithLabelValues(serviceID, operationID, strconv.Itoa(status)).Inc()
	m.BackendRequestDuration.WithLabelValues(serviceID).Observe(duration.Seconds())
}

// SetBackendCircuitBreakerState sets the circuit breaker state for a
// service. State: 0=closed, 1=half-open, 2=open.
func (m *Metrics) SetBackendCircuitBreakerState(serviceID string, state float64) {
	m.BackendCircuitBreakerState.WithLabelValues(serviceID).Set(state)
}

// RecordCapabilityCacheHit records a capability cache hit.
func (m *Metrics) RecordCapabilityCacheHit() {
	m.CapabilityCacheHitsTotal.Inc()
}

// RecordCapabilityCacheMiss records a capability cache miss.
func (m *Metrics) RecordCapabilityCacheMiss() {
	m.CapabilityCacheMissesTotal.Inc()
}

// RecordLookupCacheHit records a lookup cache hit.
func (m *Metrics) RecordLookupCacheHit(lookupID string) {
	m.LookupCacheHitsTotal.WithLabelValues(lookupID).Inc()
}

// RecordLookupCacheMiss records a lookup cache miss.
func (m *Metrics) RecordLookupCacheMiss(lookupID string) {
	m.LookupCacheMissesTotal.WithLabelValues(lookupID).Inc()
}

// RecordDefinitionReload records a definition reload.
func (m *Metrics) RecordDefinitionReload(status string) {
	m.DefinitionReloadTotal.WithLabelValues(status).Inc()
}

// SetDefinitionsLoaded sets the number of loaded domain definitions.
func (m *Metrics) SetDefinitionsLoaded(count float64) {
	m.DefinitionsLoaded.Set(count)
}

// SetOpenAPIOperationsIndexed sets the number of indexed operations.
func (m *Metrics) SetOpenAPIOperationsIndexed(serviceID string, count float64) {
	m.OpenAPIOperationsIndexed.WithLabelValues(serviceID).Set(count)
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics
// using chi's route pattern (not the actual URL path) to avoid label
// cardinality explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		pathPattern := routePattern(r)
		reqSize := 0
		if r.ContentLength > 0 {
			reqSize = int(r.ContentLength)
		}

		m.RecordHTTPRequest(r.Method, pathPattern, sw.status, duration, reqSize, sw.bytes)
	})
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture status and bytes.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	bytes   int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}
