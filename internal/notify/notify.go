// Package notify carries transient toasts from the runtime to whoever is
// watching the preview. Toasts are fire-and-forget and dismiss themselves
// after a fixed time to live.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pitabwire/studio/model"
)

// Default queue settings.
const (
	DefaultTTL      = 4 * time.Second
	DefaultCapacity = 20
)

// Emitter accepts toasts. Implementations must not block.
type Emitter interface {
	Notify(t model.Toast)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(t model.Toast)

// Notify calls f(t).
func (f EmitterFunc) Notify(t model.Toast) { f(t) }

// Recorder receives a count of emitted toasts by variant.
type Recorder interface {
	RecordNotification(variant string)
}

type entry struct {
	toast     model.Toast
	expiresAt time.Time
}

// Queue is a bounded Emitter whose toasts expire after a TTL. When full, the
// oldest toast is dropped. It is safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	entries  []entry
	ttl      time.Duration
	capacity int
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithRecorder reports every emitted toast to r.
func WithRecorder(r Recorder) QueueOption {
	return func(q *Queue) { q.recorder = r }
}

// WithClock replaces the time source. Used by tests.
func WithClock(now func() time.Time) QueueOption {
	return func(q *Queue) { q.now = now }
}

// NewQueue creates a queue. Non-positive ttl or capacity fall back to the
// defaults.
func NewQueue(ttl time.Duration, capacity int, logger *zap.Logger, opts ...QueueOption) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &Queue{
		ttl:      ttl,
		capacity: capacity,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Notify enqueues a toast. An empty variant is stored as info.
func (q *Queue) Notify(t model.Toast) {
	if t.Variant == "" {
		t.Variant = model.ToastInfo
	}

	q.mu.Lock()
	now := q.now()
	q.pruneLocked(now)
	if len(q.entries) >= q.capacity {
		dropped := q.entries[0]
		q.entries = q.entries[1:]
		q.logger.Debug("toast dropped, queue full",
			zap.String("message", dropped.toast.Message),
			zap.Int("capacity", q.capacity),
		)
	}
	q.entries = append(q.entries, entry{toast: t, expiresAt: now.Add(q.ttl)})
	q.mu.Unlock()

	q.logger.Debug("toast", zap.String("variant", t.Variant), zap.String("message", t.Message))
	if q.recorder != nil {
		q.recorder.RecordNotification(t.Variant)
	}
}

// Active returns the toasts that have not yet expired, oldest first.
func (q *Queue) Active() []model.Toast {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pruneLocked(q.now())
	out := make([]model.Toast, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.toast
	}
	return out
}

// Drain returns the active toasts and empties the queue.
func (q *Queue) Drain() []model.Toast {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pruneLocked(q.now())
	out := make([]model.Toast, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.toast
	}
	q.entries = nil
	return out
}

// Len returns the number of stored entries, including expired ones not yet
// pruned.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// pruneLocked drops expired entries. Entries are appended in expiry order so
// the expired ones always form a prefix. Must be called with lock held.
func (q *Queue) pruneLocked(now time.Time) {
	i := 0
	for i < len(q.entries) && !now.Before(q.entries[i].expiresAt) {
		i++
	}
	if i > 0 {
		q.entries = append([]entry(nil), q.entries[i:]...)
	}
}
