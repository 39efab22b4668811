// Package invoker sends outbound HTTP requests on behalf of the runtime:
// form submissions and data source REST calls. Every target host gets its
// own circuit breaker.
package invoker

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/pitabwire/studio/internal/config"
)

// BreakerRecorder receives circuit breaker state changes per host.
type BreakerRecorder interface {
	SetCircuitBreakerState(host string, state float64)
}

// Registry holds one CircuitBreaker per target host, created on first use.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	cfg      config.CircuitBreakerConfig
	breakers map[string]*CircuitBreaker
	recorder BreakerRecorder
	logger   *zap.Logger
}

// NewRegistry creates an empty breaker registry. recorder may be nil.
func NewRegistry(cfg config.CircuitBreakerConfig, recorder BreakerRecorder, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		cfg:      cfg,
		breakers: make(map[string]*CircuitBreaker),
		recorder: recorder,
		logger:   logger,
	}
}

// Breaker returns the breaker for host, creating it if needed.
func (r *Registry) Breaker(host string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[host]; ok {
		return cb
	}
	cb := NewCircuitBreaker(r.cfg, func(s BreakerState) {
		r.logger.Warn("circuit breaker state changed",
			zap.String("host", host),
			zap.String("state", s.String()),
		)
		if r.recorder != nil {
			r.recorder.SetCircuitBreakerState(host, breakerGauge(s))
		}
	})
	r.breakers[host] = cb
	if r.recorder != nil {
		r.recorder.SetCircuitBreakerState(host, breakerGauge(BreakerClosed))
	}
	return cb
}

// Hosts returns the hosts with a breaker, sorted alphabetically.
func (r *Registry) Hosts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	hosts := make([]string, 0, len(r.breakers))
	for h := range r.breakers {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

// breakerGauge maps a state to the gauge encoding 0=closed, 1=half-open,
// 2=open.
func breakerGauge(s BreakerState) float64 {
	switch s {
	case BreakerHalfOpen:
		return 1
	case BreakerOpen:
		return 2
	}
	return 0
}
