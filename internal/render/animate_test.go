package render

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pitabwire/studio/model"
)

type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	f.stopped = true
	return true
}

type timerFactory struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (f *timerFactory) afterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{d: d, fn: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *timerFactory) last() *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.timers) == 0 {
		return nil
	}
	return f.timers[len(f.timers)-1]
}

func TestAnimate_mountRunsImmediately(t *testing.T) {
	timers := &timerFactory{}
	e := NewEngine(nil, WithAfterFunc(timers.afterFunc))
	n := node("a1", model.TypeAnimate, model.Props{"durationMs": float64(300), "delayMs": float64(100)},
		node("t1", model.TypeText, nil))

	el := e.Render(n, &Env{}, &recordingHandlers{})
	if got := el.Attr("data-state"); got != phaseRunning {
		t.Errorf("data-state = %q, want %q", got, phaseRunning)
	}
	if got := el.Attr("style"); got != "animation-duration: 300ms; animation-delay: 100ms" {
		t.Errorf("style = %q", got)
	}
	tm := timers.last()
	if tm == nil || tm.d != 400*time.Millisecond {
		t.Fatalf("timer = %+v, want one armed for 400ms", tm)
	}

	tm.fn()
	if got := e.Render(n, &Env{}, &recordingHandlers{}).Attr("data-state"); got != phaseDone {
		t.Errorf("data-state after timer = %q, want %q", got, phaseDone)
	}
	if len(timers.timers) != 1 {
		t.Errorf("timers = %d, want 1", len(timers.timers))
	}
}

func TestAnimate_hoverRestarts(t *testing.T) {
	timers := &timerFactory{}
	e := NewEngine(nil, WithAfterFunc(timers.afterFunc))
	n := node("a1", model.TypeAnimate, model.Props{"trigger": "hover"})
	root := node("root", model.TypeRoot, nil, n)
	h := &recordingHandlers{}

	el := e.Render(n, &Env{}, h)
	if el.Attr("data-state") != phaseIdle || el.Attr("data-key") != "0" {
		t.Fatalf("initial state = %s/%s, want idle/0", el.Attr("data-state"), el.Attr("data-key"))
	}
	for i := 0; i < 2; i++ {
		if err := e.Dispatch(context.Background(), root, &Env{}, h, Event{NodeID: "a1", Action: ActionEnter}); err != nil {
			t.Fatalf("Dispatch(enter) error: %v", err)
		}
	}
	if got := e.Render(n, &Env{}, h).Attr("data-key"); got != "2" {
		t.Errorf("data-key = %s, want 2", got)
	}
	if !timers.timers[0].stopped {
		t.Error("restart did not cancel the previous timer")
	}
}

func TestAnimate_inViewOnce(t *testing.T) {
	tests := []struct {
		name    string
		once    bool
		wantKey string
	}{
		{"once", true, "1"},
		{"every time", false, "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(nil, WithAfterFunc((&timerFactory{}).afterFunc))
			n := node("a1", model.TypeAnimate, model.Props{"trigger": "inView", "once": tt.once})
			root := node("root", model.TypeRoot, nil, n)
			h := &recordingHandlers{}
			e.Render(n, &Env{}, h)
			for i := 0; i < 3; i++ {
				if err := e.Dispatch(context.Background(), root, &Env{}, h, Event{NodeID: "a1", Action: ActionInView}); err != nil {
					t.Fatalf("Dispatch(inview) error: %v", err)
				}
			}
			if got := e.Render(n, &Env{}, h).Attr("data-key"); got != tt.wantKey {
				t.Errorf("data-key = %s, want %s", got, tt.wantKey)
			}
		})
	}
}

func TestAnimate_stagger(t *testing.T) {
	e := NewEngine(nil, WithAfterFunc((&timerFactory{}).afterFunc))
	n := node("a1", model.TypeAnimate, model.Props{"staggerMs": float64(50)},
		node("t1", model.TypeText, nil), node("t2", model.TypeText, nil), node("t3", model.TypeText, nil))

	el := e.Render(n, &Env{}, &recordingHandlers{})
	if len(el.Children) != 3 {
		t.Fatalf("children = %d, want 3", len(el.Children))
	}
	for i, want := range []string{"0ms", "50ms", "100ms"} {
		if got := el.Children[i].Attr("style"); got != "animation-duration: 500ms; animation-delay: "+want {
			t.Errorf("child %d style = %q", i, got)
		}
	}
}

func TestAnimate_unmountCancelsTimer(t *testing.T) {
	timers := &timerFactory{}
	e := NewEngine(nil, WithAfterFunc(timers.afterFunc))
	e.Render(node("a1", model.TypeAnimate, nil), &Env{}, &recordingHandlers{})
	inst, _ := e.Instances().Lookup("a1")

	e.Instances().UnmountAll()
	if !timers.last().stopped {
		t.Error("timer not stopped on unmount")
	}
	timers.last().fn()
	if got := inst.(*animate).Phase(); got != phaseRunning {
		t.Errorf("phase after late timer = %q, want %q", got, phaseRunning)
	}
}
