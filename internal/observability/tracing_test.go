package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/pitabwire/studio/internal/config"
)

func recordSpans(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exp
}

func onlySpan(t *testing.T, exp *tracetest.InMemoryExporter) tracetest.SpanStub {
	t.Helper()
	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	return spans[0]
}

func attrs(s tracetest.SpanStub) map[string]string {
	m := make(map[string]string, len(s.Attributes))
	for _, a := range s.Attributes {
		m[string(a.Key)] = a.Value.Emit()
	}
	return m
}

func TestInitTracing(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.TracingConfig
		wantErr bool
	}{
		{"disabled", config.TracingConfig{}, false},
		{"stdout", config.TracingConfig{Enabled: true, Exporter: "stdout", SamplingRate: 1}, false},
		{"unknown exporter", config.TracingConfig{Enabled: true, Exporter: "zipkin"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := InitTracing(context.Background(), tt.cfg, "studio", "test")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("InitTracing: %v", err)
			}
			if err := shutdown(context.Background()); err != nil {
				t.Errorf("shutdown: %v", err)
			}
		})
	}
}

func TestStartSpan_storeSaveFailure(t *testing.T) {
	exp := recordSpans(t)

	ctx, span := StartSpan(context.Background(), "store.save", AttrProjectID.String("demo"))
	if TraceIDFromContext(ctx) != span.SpanContext().TraceID().String() {
		t.Error("context does not carry the new span")
	}
	EndSpanWithError(span, errors.New("bucket unavailable"))

	s := onlySpan(t, exp)
	if s.Name != "store.save" || attrs(s)["studio.project_id"] != "demo" {
		t.Errorf("span = %q %v", s.Name, attrs(s))
	}
	if s.Status.Code != codes.Error || s.Status.Description != "bucket unavailable" {
		t.Errorf("status = %+v", s.Status)
	}
	if len(s.Events) == 0 {
		t.Error("error event not recorded")
	}
}

func TestEndSpanWithError_nil(t *testing.T) {
	exp := recordSpans(t)

	_, span := StartSpan(context.Background(), "store.load")
	EndSpanWithError(span, nil)

	if s := onlySpan(t, exp); s.Status.Code == codes.Error {
		t.Error("status set without an error")
	}
}

func TestTraceIDFromContext_noSpan(t *testing.T) {
	if id := TraceIDFromContext(context.Background()); id != "" {
		t.Errorf("TraceIDFromContext = %q, want empty", id)
	}
}

func TestInjectTraceHeaders(t *testing.T) {
	recordSpans(t)

	ctx, span := StartSpan(context.Background(), "invoker.form", AttrSource.String("form"))
	defer span.End()

	h := http.Header{}
	InjectTraceHeaders(ctx, h)
	if !strings.Contains(h.Get("Traceparent"), span.SpanContext().TraceID().String()) {
		t.Errorf("traceparent = %q", h.Get("Traceparent"))
	}
}

func projectRouter(status int) http.Handler {
	r := chi.NewRouter()
	r.Use(TracingMiddleware)
	r.Route("/api/projects/{projectId}", func(r chi.Router) {
		r.Post("/save", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(status) })
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("{}")) })
	})
	return r
}

func TestTracingMiddleware_namesSpanByRoute(t *testing.T) {
	exp := recordSpans(t)

	rec := httptest.NewRecorder()
	projectRouter(http.StatusNoContent).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/projects/demo/save", nil))

	s := onlySpan(t, exp)
	if s.Name != "POST /api/projects/{projectId}/save" {
		t.Errorf("span name = %q", s.Name)
	}
	if s.SpanKind != trace.SpanKindServer {
		t.Errorf("kind = %v", s.SpanKind)
	}
	a := attrs(s)
	if a["studio.project_id"] != "demo" || a["url.path"] != "/api/projects/demo/save" || a["http.response.status_code"] != "204" {
		t.Errorf("attributes = %v", a)
	}
	if rec.Header().Get("Traceparent") == "" {
		t.Error("response carries no traceparent")
	}
}

func TestTracingMiddleware_implicitOK(t *testing.T) {
	exp := recordSpans(t)

	projectRouter(http.StatusOK).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/projects/demo/", nil))

	if got := attrs(onlySpan(t, exp))["http.response.status_code"]; got != "200" {
		t.Errorf("status attribute = %q, want 200", got)
	}
}

func TestTracingMiddleware_serverErrorMarksSpan(t *testing.T) {
	exp := recordSpans(t)

	projectRouter(http.StatusInternalServerError).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/projects/demo/save", nil))

	if s := onlySpan(t, exp); s.Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status.Code)
	}
}

func TestTracingMiddleware_continuesInboundTrace(t *testing.T) {
	exp := recordSpans(t)

	const traceID, parentID = "0af7651916cd43dd8448eb211c80319c", "b7ad6b7169203331"
	req := httptest.NewRequest(http.MethodPost, "/api/projects/demo/save", nil)
	req.Header.Set("Traceparent", "00-"+traceID+"-"+parentID+"-01")
	projectRouter(http.StatusOK).ServeHTTP(httptest.NewRecorder(), req)

	s := onlySpan(t, exp)
	if s.SpanContext.TraceID().String() != traceID || s.Parent.SpanID().String() != parentID {
		t.Errorf("trace %s parent %s", s.SpanContext.TraceID(), s.Parent.SpanID())
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.TracingConfig
		root string
	}{
		{"zero defaults to ten percent", config.TracingConfig{}, "root:TraceIDRatioBased{0.1}"},
		{"above one clamps", config.TracingConfig{SamplingRate: 3}, "root:AlwaysOnSampler"},
		{"ratio", config.TracingConfig{SamplingRate: 0.25}, "root:TraceIDRatioBased{0.25}"},
		{"submissions", config.TracingConfig{SamplingRate: 0.5, AlwaysSampleSubmissions: true}, "root:SubmissionSampler{TraceIDRatioBased{0.5}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d := newSampler(tt.cfg).Description(); !strings.Contains(d, tt.root) {
				t.Errorf("description %q lacks %q", d, tt.root)
			}
		})
	}
}

func TestSubmissionSampler(t *testing.T) {
	s := submissionSampler{ratio: sdktrace.NeverSample()}
	params := func(kv ...attribute.KeyValue) sdktrace.SamplingParameters {
		return sdktrace.SamplingParameters{
			ParentContext: context.Background(),
			TraceID:       trace.TraceID{1},
			Name:          "span",
			Attributes:    kv,
		}
	}

	if got := s.ShouldSample(params(AttrSource.String("form"))).Decision; got != sdktrace.RecordAndSample {
		t.Errorf("submission decision = %v, want RecordAndSample", got)
	}
	if got := s.ShouldSample(params(AttrProjectID.String("demo"))).Decision; got != sdktrace.Drop {
		t.Errorf("other decision = %v, want Drop", got)
	}
}
