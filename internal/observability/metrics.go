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
	httpDurationBuckets     = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	commandDurationBuckets  = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5}
	outboundDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	bodySizeBuckets         = []float64{100, 1024, 10240, 102400, 1048576}
)

// Metrics holds all Prometheus metric instruments for the studio server.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestSizeBytes  *prometheus.HistogramVec
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Editor metrics
	StoreCommandsTotal   *prometheus.CounterVec
	StoreCommandDuration *prometheus.HistogramVec
	AutosaveTotal        *prometheus.CounterVec
	OpenDocuments        prometheus.Gauge
	DnDResolutionsTotal  *prometheus.CounterVec

	// Outbound request metrics
	SubmissionsTotal      *prometheus.CounterVec
	SubmissionDuration    *prometheus.HistogramVec
	CircuitBreakerState   *prometheus.GaugeVec
	WorkflowActionsTotal  *prometheus.CounterVec
	NotificationsTotal    *prometheus.CounterVec
	PreviewRenderDuration prometheus.Histogram
	AgentToolCallsTotal   *prometheus.CounterVec

	// System metrics
	CatalogReloadTotal *prometheus.CounterVec
	CatalogItems       prometheus.Gauge
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studio_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPRequestSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studio_http_request_size_bytes",
			Help:    "HTTP request body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPResponseSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studio_http_response_size_bytes",
			Help:    "HTTP response body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),

		// Editor
		StoreCommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_store_commands_total",
			Help: "Total number of document commands by outcome.",
		}, []string{"command", "outcome"}),
		StoreCommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studio_store_command_duration_seconds",
			Help:    "Document command duration in seconds.",
			Buckets: commandDurationBuckets,
		}, []string{"command"}),
		AutosaveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_autosave_total",
			Help: "Total number of autosave attempts.",
		}, []string{"status"}),
		OpenDocuments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "studio_open_documents",
			Help: "Number of documents open in the workspace.",
		}),
		DnDResolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_dnd_resolutions_total",
			Help: "Total number of drag-and-drop resolutions.",
		}, []string{"kind", "status"}),

		// Outbound
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_submissions_total",
			Help: "Total number of outbound form submissions and REST calls.",
		}, []string{"source", "status"}),
		SubmissionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studio_submission_duration_seconds",
			Help:    "Outbound request duration in seconds.",
			Buckets: outboundDurationBuckets,
		}, []string{"source"}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "studio_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"host"}),
		WorkflowActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_workflow_actions_total",
			Help: "Total number of executed workflow actions.",
		}, []string{"type", "status"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_notifications_total",
			Help: "Total number of toasts emitted.",
		}, []string{"variant"}),
		PreviewRenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "studio_preview_render_duration_seconds",
			Help:    "Preview render duration in seconds.",
			Buckets: commandDurationBuckets,
		}),
		AgentToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_agent_tool_calls_total",
			Help: "Total number of agent tool calls.",
		}, []string{"tool", "status"}),

		// System
		CatalogReloadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_catalog_reload_total",
			Help: "Total catalog reloads.",
		}, []string{"status"}),
		CatalogItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "studio_catalog_items",
			Help: "Number of component types in the palette.",
		}),
	}

	reg.MustRegister(
		// HTTP
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSizeBytes,
		m.HTTPResponseSizeBytes,
		// Editor
		m.StoreCommandsTotal,
		m.StoreCommandDuration,
		m.AutosaveTotal,
		m.OpenDocuments,
		m.DnDResolutionsTotal,
		// Outbound
		m.SubmissionsTotal,
		m.SubmissionDuration,
		m.CircuitBreakerState,
		m.WorkflowActionsTotal,
		m.NotificationsTotal,
		m.PreviewRenderDuration,
		m.AgentToolCallsTotal,
		// System
		m.CatalogReloadTotal,
		m.CatalogItems,
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

// RecordStoreCommand records a document command and its outcome.
func (m *Metrics) RecordStoreCommand(command, outcome string, duration time.Duration) {
	m.StoreCommandsTotal.WithLabelValues(command, outcome).Inc()
	m.StoreCommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordAutosave records an autosave attempt.
func (m *Metrics) RecordAutosave(status string) {
	m.AutosaveTotal.WithLabelValues(status).Inc()
}

// SetOpenDocuments sets the open documents gauge.
func (m *Metrics) SetOpenDocuments(count float64) {
	m.OpenDocuments.Set(count)
}

// RecordDnDResolution records a resolved drag-end or palette click.
func (m *Metrics) RecordDnDResolution(kind, status string) {
	m.DnDResolutionsTotal.WithLabelValues(kind, status).Inc()
}

// RecordSubmission records an outbound request. source is "form" or "rest".
func (m *Metrics) RecordSubmission(source string, status int, duration time.Duration) {
	m.SubmissionsTotal.WithLabelValues(source, strconv.Itoa(status)).Inc()
	m.SubmissionDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// SetCircuitBreakerState records the circuit breaker state for a host.
func (m *Metrics) SetCircuitBreakerState(host string, state float64) {
	m.CircuitBreakerState.WithLabelValues(host).Set(state)
}

// RecordWorkflowAction records an executed workflow action.
func (m *Metrics) RecordWorkflowAction(actionType, status string) {
	m.WorkflowActionsTotal.WithLabelValues(actionType, status).Inc()
}

// RecordNotification records an emitted toast.
func (m *Metrics) RecordNotification(variant string) {
	m.NotificationsTotal.WithLabelValues(variant).Inc()
}

// RecordPreviewRender records a preview render.
func (m *Metrics) RecordPreviewRender(duration time.Duration) {
	m.PreviewRenderDuration.Observe(duration.Seconds())
}

// RecordAgentToolCall records an agent tool invocation.
func (m *Metrics) RecordAgentToolCall(tool, status string) {
	m.AgentToolCallsTotal.WithLabelValues(tool, status).Inc()
}

// RecordCatalogReload records a catalog reload attempt.
func (m *Metrics) RecordCatalogReload(status string) {
	m.CatalogReloadTotal.WithLabelValues(status).Inc()
}

// SetCatalogItems sets the catalog size gauge.
func (m *Metrics) SetCatalogItems(count float64) {
	m.CatalogItems.Set(count)
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
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
	// chi route patterns have trailing /*, remove it.
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
