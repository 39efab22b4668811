package render

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pitabwire/studio/model"
)

const (
	defaultAutoplay = 3000 * time.Millisecond
	minAutoplay     = 500 * time.Millisecond
)

// Carousel is the index state machine of a Slide.
type Carousel struct {
	Index   int
	Count   int
	PerView int
	Loop    bool
}

// Max returns the last index a non-looping carousel may reach.
func (c Carousel) Max() int {
	perView := c.PerView
	if perView < 1 {
		perView = 1
	}
	if m := c.Count - perView; m > 0 {
		return m
	}
	return 0
}

// Next advances by one, wrapping when looping.
func (c *Carousel) Next() {
	if c.Loop {
		if c.Count > 0 {
			c.Index = (c.Index + 1) % c.Count
		}
		return
	}
	c.Goto(c.Index + 1)
}

// Prev steps back by one, wrapping when looping.
func (c *Carousel) Prev() {
	if c.Loop {
		if c.Count > 0 {
			c.Index = (c.Index - 1 + c.Count) % c.Count
		}
		return
	}
	c.Goto(c.Index - 1)
}

// Goto moves to i, clamped to the valid range.
func (c *Carousel) Goto(i int) {
	hi := c.Max()
	if c.Loop && c.Count > 0 {
		hi = c.Count - 1
	}
	switch {
	case i < 0:
		i = 0
	case i > hi:
		i = hi
	}
	c.Index = i
}

// Positions returns how many distinct indexes the carousel can show.
func (c Carousel) Positions() int {
	if c.Loop {
		return c.Count
	}
	return c.Max() + 1
}

// Scrollable reports whether there is more content than one view holds.
func (c Carousel) Scrollable() bool {
	perView := c.PerView
	if perView < 1 {
		perView = 1
	}
	return c.Count > perView
}

// slide is a carousel instance. While autoplay is on it owns a ticker that
// advances the index; the ticker stops on Unmount or when autoplay turns off.
type slide struct {
	mu        sync.Mutex
	car       Carousel
	newTicker func(time.Duration) Ticker
	interval  time.Duration
	stop      func()
}

func newSlide(e *Engine) Instance { return &slide{newTicker: e.newTicker} }

func (s *slide) Mount() {}

func (s *slide) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Index returns the current index.
func (s *slide) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.car.Index
}

// Autoplaying reports whether the autoplay ticker is running.
func (s *slide) Autoplaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// sync reconciles the carousel and the autoplay ticker with the node props.
func (s *slide) sync(n *model.ComponentNode) Carousel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.car.Count = len(n.Children)
	s.car.PerView = n.Props.Int("itemsPerView", 1)
	if s.car.PerView < 1 {
		s.car.PerView = 1
	}
	s.car.Loop = n.Props.Bool("loop", false)
	s.car.Goto(s.car.Index)

	if !n.Props.Bool("autoplay", false) {
		s.stopLocked()
		return s.car
	}
	interval := time.Duration(n.Props.Int("autoplayMs", int(defaultAutoplay/time.Millisecond))) * time.Millisecond
	if interval < minAutoplay {
		interval = minAutoplay
	}
	if s.stop != nil && interval == s.interval {
		return s.car
	}
	s.stopLocked()
	s.startLocked(interval)
	return s.car
}

func (s *slide) startLocked(d time.Duration) {
	t := s.newTicker(d)
	done := make(chan struct{})
	var once sync.Once
	s.interval = d
	s.stop = func() {
		once.Do(func() {
			t.Stop()
			close(done)
		})
	}
	go func() {
		for {
			select {
			case <-done:
				return
			case <-t.C():
				s.mu.Lock()
				s.car.Next()
				s.mu.Unlock()
			}
		}
	}()
}

func (s *slide) stopLocked() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

func (s *slide) Render(e *Engine, n *model.ComponentNode, env *Env, h Handlers) *Element {
	car := s.sync(n)

	viewport := El("div").Class("flex gap-4 overflow-hidden")
	for j := 0; j < car.PerView && car.Count > 0; j++ {
		i := car.Index + j
		if car.Loop {
			i %= car.Count
		} else if i >= car.Count {
			break
		}
		viewport.Append(El("div", e.Render(n.Children[i], env, h)).
			Set("data-slide", strconv.Itoa(i)).
			Class("min-w-0 shrink-0 grow-0 basis-full"))
	}
	el := El("div", viewport).
		Set("role", "region").
		Set("aria-roledescription", "carousel").
		Set("data-index", strconv.Itoa(car.Index)).
		Class("relative", n.Props.String("className", ""))

	if !car.Scrollable() {
		return el
	}
	if n.Props.Bool("showArrows", true) {
		el.Append(
			El("button", TextNode("Previous")).Set("type", "button").Set(AttrNodeID, n.ID).Set(AttrAction, ActionPrev),
			El("button", TextNode("Next")).Set("type", "button").Set(AttrNodeID, n.ID).Set(AttrAction, ActionNext),
		)
	}
	if n.Props.Bool("showDots", true) {
		dots := El("div").Class("flex justify-center gap-2")
		for i := 0; i < car.Positions(); i++ {
			dot := El("button").
				Set("type", "button").
				Set("aria-label", "Go to slide "+strconv.Itoa(i+1)).
				Set(AttrNodeID, n.ID).
				Set(AttrAction, ActionGoto).
				Set(AttrValue, strconv.Itoa(i)).
				SetIf(i == car.Index, "aria-current", "true")
			dots.Append(dot)
		}
		el.Append(dots)
	}
	return el
}

func (s *slide) Handle(_ context.Context, _ *Engine, n *model.ComponentNode, _ *Env, _ Handlers, ev Event) error {
	s.sync(n)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Action {
	case ActionNext:
		s.car.Next()
	case ActionPrev:
		s.car.Prev()
	case ActionGoto:
		i, err := strconv.Atoi(ev.Value)
		if err != nil {
			return unsupported(n, ev)
		}
		s.car.Goto(i)
	default:
		return unsupported(n, ev)
	}
	return nil
}
