package render

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pitabwire/studio/model"
)

func TestCarousel_clampsWithoutLoop(t *testing.T) {
	c := Carousel{Count: 3, PerView: 1}
	var got []int
	got = append(got, c.Index)
	for i := 0; i < 3; i++ {
		c.Next()
		got = append(got, c.Index)
	}
	want := []int{0, 1, 2, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("indexes = %v, want %v", got, want)
		}
	}
	c.Prev()
	c.Prev()
	c.Prev()
	if c.Index != 0 {
		t.Errorf("Index after Prev = %d, want 0", c.Index)
	}
}

func TestCarousel_loopWraps(t *testing.T) {
	c := Carousel{Count: 3, PerView: 1, Loop: true, Index: 2}
	c.Next()
	if c.Index != 0 {
		t.Errorf("Next from last = %d, want 0", c.Index)
	}
	c.Prev()
	if c.Index != 2 {
		t.Errorf("Prev from first = %d, want 2", c.Index)
	}
}

func TestCarousel_max(t *testing.T) {
	tests := []struct {
		count, perView, want int
	}{
		{5, 2, 3},
		{2, 3, 0},
		{0, 1, 0},
		{3, 0, 2},
	}
	for _, tt := range tests {
		c := Carousel{Count: tt.count, PerView: tt.perView}
		if got := c.Max(); got != tt.want {
			t.Errorf("Carousel{%d,%d}.Max() = %d, want %d", tt.count, tt.perView, got, tt.want)
		}
	}
}

func slides(n int) []*model.ComponentNode {
	out := make([]*model.ComponentNode, n)
	for i := range out {
		out[i] = node("s"+strconv.Itoa(i), model.TypeText, model.Props{"text": "slide " + strconv.Itoa(i)})
	}
	return out
}

func TestSlide_controls(t *testing.T) {
	e := NewEngine(nil)
	sl := node("car", model.TypeSlide, model.Props{"itemsPerView": float64(2)}, slides(3)...)
	root := node("root", model.TypeRoot, nil, sl)
	h := &recordingHandlers{}

	el := e.Render(sl, &Env{}, h)
	if got := len(el.FindAll(ByAttr(AttrAction, ActionGoto))); got != 2 {
		t.Errorf("dots = %d, want 2", got)
	}
	if got := len(el.FindAll(func(x *Element) bool { return x.Has("data-slide") })); got != 2 {
		t.Errorf("visible slides = %d, want 2", got)
	}

	for i := 0; i < 3; i++ {
		if err := e.Dispatch(context.Background(), root, &Env{}, h, Event{NodeID: "car", Action: ActionNext}); err != nil {
			t.Fatalf("Dispatch(next) error: %v", err)
		}
	}
	if got := e.Render(sl, &Env{}, h).Attr("data-index"); got != "1" {
		t.Errorf("data-index = %s, want 1", got)
	}

	if err := e.Dispatch(context.Background(), root, &Env{}, h, Event{NodeID: "car", Action: ActionGoto, Value: "0"}); err != nil {
		t.Fatalf("Dispatch(goto) error: %v", err)
	}
	if got := e.Render(sl, &Env{}, h).Attr("data-index"); got != "0" {
		t.Errorf("data-index = %s, want 0", got)
	}
}

func TestSlide_noControlsWhenEverythingFits(t *testing.T) {
	e := NewEngine(nil)
	sl := node("car", model.TypeSlide, model.Props{"itemsPerView": float64(3)}, slides(3)...)
	el := e.Render(sl, &Env{}, &recordingHandlers{})
	if el.Find(ByAttr(AttrAction, ActionNext)) != nil || el.Find(ByAttr(AttrAction, ActionGoto)) != nil {
		t.Error("arrows or dots rendered although every slide is visible")
	}
}

type manualTicker struct {
	mu      sync.Mutex
	c       chan time.Time
	period  time.Duration
	stopped bool
}

func (m *manualTicker) C() <-chan time.Time { return m.c }

func (m *manualTicker) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

func (m *manualTicker) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

type tickerFactory struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (f *tickerFactory) new(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &manualTicker{c: make(chan time.Time), period: d}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *tickerFactory) last() *manualTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tickers) == 0 {
		return nil
	}
	return f.tickers[len(f.tickers)-1]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSlide_autoplay(t *testing.T) {
	factory := &tickerFactory{}
	e := NewEngine(nil, WithTicker(factory.new))
	props := model.Props{"autoplay": true, "autoplayMs": float64(100)}
	sl := node("car", model.TypeSlide, props, slides(3)...)

	e.Render(sl, &Env{}, &recordingHandlers{})
	tk := factory.last()
	if tk == nil {
		t.Fatal("autoplay did not start a ticker")
	}
	if tk.period != minAutoplay {
		t.Errorf("period = %v, want %v", tk.period, minAutoplay)
	}

	inst, _ := e.Instances().Lookup("car")
	s := inst.(*slide)
	tk.c <- time.Now()
	waitFor(t, func() bool { return s.Index() == 1 })

	off := node("car", model.TypeSlide, model.Props{"autoplay": false}, slides(3)...)
	e.Render(off, &Env{}, &recordingHandlers{})
	if !tk.isStopped() {
		t.Error("ticker still running after autoplay turned off")
	}
	if s.Autoplaying() {
		t.Error("Autoplaying() = true after autoplay turned off")
	}
}

func TestSlide_unmountStopsAutoplay(t *testing.T) {
	factory := &tickerFactory{}
	e := NewEngine(nil, WithTicker(factory.new))
	sl := node("car", model.TypeSlide, model.Props{"autoplay": true}, slides(2)...)

	e.Render(sl, &Env{}, &recordingHandlers{})
	tk := factory.last()
	if tk == nil {
		t.Fatal("autoplay did not start a ticker")
	}
	if tk.period != defaultAutoplay {
		t.Errorf("period = %v, want %v", tk.period, defaultAutoplay)
	}

	e.Instances().Sync(map[string]bool{})
	if !tk.isStopped() {
		t.Error("ticker still running after unmount")
	}
}
