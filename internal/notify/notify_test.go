package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/pitabwire/studio/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingRecorder struct {
	counts map[string]int
}

func (r *countingRecorder) RecordNotification(variant string) {
	r.counts[variant]++
}

func TestQueue_NotifyAndActive(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	q := NewQueue(4*time.Second, 10, nil, WithClock(clock.Now))

	q.Notify(model.Toast{Message: "Hi, World!"})
	q.Notify(model.Toast{Message: "Saved", Variant: model.ToastSuccess})

	got := q.Active()
	if len(got) != 2 {
		t.Fatalf("Active() len = %d, want 2", len(got))
	}
	if got[0].Message != "Hi, World!" || got[0].Variant != model.ToastInfo {
		t.Errorf("first toast = %+v, want info 'Hi, World!'", got[0])
	}
	if got[1].Variant != model.ToastSuccess {
		t.Errorf("second variant = %q, want success", got[1].Variant)
	}
}

func TestQueue_ExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	q := NewQueue(4*time.Second, 10, nil, WithClock(clock.Now))

	q.Notify(model.Toast{Message: "first"})
	clock.Advance(2 * time.Second)
	q.Notify(model.Toast{Message: "second"})

	clock.Advance(2 * time.Second)
	got := q.Active()
	if len(got) != 1 || got[0].Message != "second" {
		t.Fatalf("Active() = %+v, want only 'second'", got)
	}

	clock.Advance(2 * time.Second)
	if got := q.Active(); len(got) != 0 {
		t.Errorf("Active() after full TTL = %+v, want empty", got)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after prune", q.Len())
	}
}

func TestQueue_DropsOldestWhenFull(t *testing.T) {
	q := NewQueue(time.Minute, 2, nil)

	q.Notify(model.Toast{Message: "a"})
	q.Notify(model.Toast{Message: "b"})
	q.Notify(model.Toast{Message: "c"})

	got := q.Active()
	if len(got) != 2 {
		t.Fatalf("Active() len = %d, want 2", len(got))
	}
	if got[0].Message != "b" || got[1].Message != "c" {
		t.Errorf("Active() = %+v, want [b c]", got)
	}
}

func TestQueue_Drain(t *testing.T) {
	q := NewQueue(time.Minute, 5, nil)
	q.Notify(model.Toast{Message: "one"})

	got := q.Drain()
	if len(got) != 1 || got[0].Message != "one" {
		t.Fatalf("Drain() = %+v, want [one]", got)
	}
	if got := q.Drain(); len(got) != 0 {
		t.Errorf("second Drain() = %+v, want empty", got)
	}
}

func TestQueue_Defaults(t *testing.T) {
	q := NewQueue(0, 0, nil)
	if q.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", q.ttl, DefaultTTL)
	}
	if q.capacity != DefaultCapacity {
		t.Errorf("capacity = %d, want %d", q.capacity, DefaultCapacity)
	}
}

func TestQueue_Recorder(t *testing.T) {
	rec := &countingRecorder{counts: map[string]int{}}
	q := NewQueue(time.Minute, 5, nil, WithRecorder(rec))

	q.Notify(model.Toast{Message: "x"})
	q.Notify(model.Toast{Message: "y", Variant: model.ToastError})

	if rec.counts[model.ToastInfo] != 1 {
		t.Errorf("info count = %d, want 1", rec.counts[model.ToastInfo])
	}
	if rec.counts[model.ToastError] != 1 {
		t.Errorf("error count = %d, want 1", rec.counts[model.ToastError])
	}
}

func TestMock(t *testing.T) {
	var m Mock
	var e Emitter = &m

	e.Notify(model.Toast{Message: "a"})
	e.Notify(model.Toast{Message: "b", Variant: model.ToastError})

	if got := m.Messages(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Messages() = %v, want [a b]", got)
	}
	last, ok := m.Last()
	if !ok || last.Variant != model.ToastError {
		t.Errorf("Last() = %+v, %v, want error toast", last, ok)
	}
	m.Reset()
	if _, ok := m.Last(); ok {
		t.Error("Last() after Reset should report false")
	}
}

func TestEmitterFunc(t *testing.T) {
	var got model.Toast
	var e Emitter = EmitterFunc(func(t model.Toast) { got = t })
	e.Notify(model.Toast{Message: "m"})
	if got.Message != "m" {
		t.Errorf("EmitterFunc message = %q, want m", got.Message)
	}
}
