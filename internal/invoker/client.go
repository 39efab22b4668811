package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/pitabwire/studio/internal/config"
	"github.com/pitabwire/studio/internal/observability"
	"github.com/pitabwire/studio/model"
)

// Request sources, used as metric and span labels.
const (
	SourceForm = "form"
	SourceREST = "rest"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 10 << 20

// Request is one outbound call.
type Request struct {
	Source  string
	Method  string
	URL     string
	Headers map[string]string
	// Body is JSON-encoded for every method except GET.
	Body any
}

// Response is the outcome of a call that reached the server.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Raw        []byte
	// Body holds the decoded JSON response, or nil when the body is empty
	// or not JSON.
	Body any
}

// OK reports whether the status is 2xx.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Recorder receives outbound request metrics.
type Recorder interface {
	BreakerRecorder
	RecordSubmission(source string, status int, duration time.Duration)
}

// Client executes outbound requests with a per-request timeout and one
// circuit breaker per host.
type Client struct {
	client   *http.Client
	timeout  time.Duration
	breakers *Registry
	recorder Recorder
	logger   *zap.Logger
}

// NewClient creates a client from the submission configuration. recorder
// may be nil.
func NewClient(cfg config.SubmissionConfig, recorder Recorder, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	var br BreakerRecorder
	if recorder != nil {
		br = recorder
	}
	return &Client{
		client:   &http.Client{Transport: transport},
		timeout:  timeout,
		breakers: NewRegistry(cfg.CircuitBreaker, br, logger),
		recorder: recorder,
		logger:   logger,
	}
}

// Breakers exposes the per-host breaker registry.
func (c *Client) Breakers() *Registry {
	return c.breakers
}

// Do executes req. A non-nil error means the request never produced a
// response: invalid URL, open breaker, connection failure or timeout.
// Non-2xx responses are returned without error.
func (c *Client) Do(ctx context.Context, req Request) (resp Response, err error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	source := req.Source
	if source == "" {
		source = SourceREST
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return Response{}, fmt.Errorf("invoker: parse url %q: %w", req.URL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Response{}, fmt.Errorf("invoker: url %q is not absolute", req.URL)
	}

	ctx, span := observability.StartSpan(ctx, "invoker."+source,
		observability.AttrSource.String(source),
		attribute.String("http.request.method", method),
		attribute.String("server.address", u.Host),
	)
	defer func() { observability.EndSpanWithError(span, err) }()

	var bodyBytes []byte
	if method != http.MethodGet && req.Body != nil {
		bodyBytes, err = json.Marshal(req.Body)
		if err != nil {
			return Response{}, fmt.Errorf("invoker: marshal body: %w", err)
		}
		if m, ok := req.Body.(map[string]any); ok && c.logger.Core().Enabled(zap.DebugLevel) {
			c.logger.Debug("outbound request body",
				zap.String("url", req.URL),
				zap.Any("body", observability.RedactBody(m, nil)),
			)
		}
	}

	breaker := c.breakers.Breaker(u.Host)
	if err := breaker.Allow(); err != nil {
		c.logger.Warn("outbound request rejected, circuit open", zap.String("host", u.Host))
		return Response{}, model.NewBackendUnavailableError()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if bodyBytes != nil {
		body = bytes.NewReader(bodyBytes)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return Response{}, fmt.Errorf("invoker: build request: %w", err)
	}
	httpReq.Header = buildRequestHeaders(ctx, req.Headers, bodyBytes != nil)

	start := time.Now()
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		breaker.RecordFailure()
		c.record(source, 0, time.Since(start))
		c.logger.Warn("outbound request failed",
			zap.String("source", source),
			zap.String("host", u.Host),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			return Response{}, model.NewBackendTimeoutError()
		}
		if isConnectionError(err) {
			return Response{}, model.NewBackendUnavailableError()
		}
		return Response{}, fmt.Errorf("invoker: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		breaker.RecordFailure()
		return Response{}, fmt.Errorf("invoker: read response: %w", err)
	}
	c.record(source, httpResp.StatusCode, time.Since(start))

	// 4xx are not infrastructure failures.
	if isServerError(httpResp.StatusCode) {
		breaker.RecordFailure()
	} else if !isClientError(httpResp.StatusCode) {
		breaker.RecordSuccess()
	}

	resp = Response{
		StatusCode: httpResp.StatusCode,
		Headers:    extractResponseHeaders(httpResp),
		Raw:        raw,
	}
	if len(raw) > 0 {
		var parsed any
		if json.Unmarshal(raw, &parsed) == nil {
			resp.Body = parsed
		}
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	return resp, nil
}

func (c *Client) record(source string, status int, d time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordSubmission(source, status, d)
	}
}

// JoinURL joins base and path with exactly one slash between them.
func JoinURL(base, path string) string {
	if base == "" {
		return path
	}
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func buildRequestHeaders(ctx context.Context, custom map[string]string, hasBody bool) http.Header {
	h := make(http.Header)
	h.Set("Accept", "application/json")
	if hasBody {
		h.Set("Content-Type", "application/json")
	}
	if id := observability.CorrelationIDFrom(ctx); id != "" {
		h.Set("X-Correlation-Id", sanitizeHeader(id))
	}

	// Custom headers are applied last so they can override the defaults.
	for k, v := range custom {
		h.Set(sanitizeHeader(k), sanitizeHeader(v))
	}

	observability.InjectTraceHeaders(ctx, h)
	return h
}

// sanitizeHeader strips newlines and carriage returns to prevent header injection.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}

func extractResponseHeaders(resp *http.Response) map[string]string {
	headers := make(map[string]string)
	for _, key := range []string{
		"Content-Type", "X-Correlation-Id", "X-Request-Id", "Retry-After",
	} {
		if v := resp.Header.Get(key); v != "" {
			headers[key] = v
		}
	}
	return headers
}

func isServerError(code int) bool {
	return code >= 500
}

func isClientError(code int) bool {
	return code >= 400 && code < 500
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
