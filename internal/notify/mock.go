package notify

import (
	"sync"

	"github.com/pitabwire/studio/model"
)

// Mock is an Emitter that records every toast it receives.
type Mock struct {
	mu     sync.Mutex
	toasts []model.Toast
}

// Notify records t.
func (m *Mock) Notify(t model.Toast) {
	m.mu.Lock()
	m.toasts = append(m.toasts, t)
	m.mu.Unlock()
}

// Toasts returns a copy of the recorded toasts.
func (m *Mock) Toasts() []model.Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Toast(nil), m.toasts...)
}

// Messages returns the recorded toast messages in order.
func (m *Mock) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.toasts))
	for i, t := range m.toasts {
		out[i] = t.Message
	}
	return out
}

// Last returns the most recent toast.
func (m *Mock) Last() (model.Toast, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.toasts) == 0 {
		return model.Toast{}, false
	}
	return m.toasts[len(m.toasts)-1], true
}

// Reset discards the recorded toasts.
func (m *Mock) Reset() {
	m.mu.Lock()
	m.toasts = nil
	m.mu.Unlock()
}
