// Package session runs an interactive preview of one document: it owns the
// runtime variables, renders the previewed page and routes interactions to
// the rendering engine, the workflow engine and outbound submissions.
package session

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pitabwire/studio/internal/expression"
	"github.com/pitabwire/studio/internal/invoker"
	"github.com/pitabwire/studio/internal/render"
	"github.com/pitabwire/studio/internal/store"
	"github.com/pitabwire/studio/internal/tree"
	"github.com/pitabwire/studio/internal/workflow"
	"github.com/pitabwire/studio/model"
)

// ErrNotLoaded is returned when the previewed store has no document.
var ErrNotLoaded = errors.New("session: document not loaded")

// Source is the document a session previews. *store.Store implements it.
type Source interface {
	Snapshot() (store.Snapshot, bool)
	Subscribe(fn func(store.Event)) (unsubscribe func())
	SetCurrentPage(pageID string) bool
}

// Caller performs outbound requests. *invoker.Client implements it.
type Caller interface {
	Do(ctx context.Context, req invoker.Request) (invoker.Response, error)
}

// Actions runs workflow action lists. *workflow.Engine implements it.
type Actions interface {
	Run(ctx context.Context, scope workflow.Scope, actions []model.WorkflowAction) error
}

// Notifier receives toasts and hands them back on Drain. *notify.Queue
// implements it.
type Notifier interface {
	Notify(t model.Toast)
	Drain() []model.Toast
}

// Recorder receives preview render timings.
type Recorder interface {
	RecordPreviewRender(d time.Duration)
}

// Deps are the collaborators of a Session. Caller and Actions may be nil,
// which disables submissions and event actions respectively.
type Deps struct {
	Engine   *render.Engine
	Caller   Caller
	Actions  Actions
	Notifier Notifier
	Recorder Recorder
	Logger   *zap.Logger
}

// Session is the preview of one document. Interactions are serialized.
type Session struct {
	mu          sync.Mutex
	src         Source
	deps        Deps
	runtime     *model.RuntimeContext
	pageID      string
	dark        bool
	unsubscribe func()
}

// New creates a session over src and starts following its changes.
func New(src Source, deps Deps) *Session {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Engine == nil {
		deps.Engine = render.NewEngine(deps.Logger)
	}
	s := &Session{src: src, deps: deps}
	s.reset(true)
	s.unsubscribe = src.Subscribe(s.onChange)
	return s
}

// Close stops following the document and tears down every stateful
// component instance.
func (s *Session) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	s.deps.Engine.Instances().UnmountAll()
}

func (s *Session) onChange(ev store.Event) {
	if ev.Command == "set_current_page" {
		s.followPage()
		return
	}
	s.reset(false)
}

// followPage moves the preview to the editor's current page. Runtime
// variables survive the switch.
func (s *Session) followPage() {
	snap, ok := s.src.Snapshot()
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageID = snap.CurrentPageID
	s.syncLocked(&snap.App)
}

// syncLocked unmounts every instance whose node is not on the previewed
// page, stopping its timers.
func (s *Session) syncLocked(app *model.AppSchema) {
	var live map[string]bool
	if page, ok := app.PageByID(s.pageID); ok {
		live = tree.CollectIDs([]model.PageSchema{page})
	}
	s.deps.Engine.Instances().Sync(live)
}

// reset reseeds the runtime variables and drops instances whose nodes are
// not on the previewed page. The previewed page follows the editor when followPage is
// set or when it no longer exists.
func (s *Session) reset(followPage bool) {
	snap, ok := s.src.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		s.runtime = model.NewRuntimeContext(nil)
		return
	}
	s.runtime = model.NewRuntimeContext(snap.App.Variables)
	if _, exists := snap.App.PageByID(s.pageID); followPage || !exists {
		s.pageID = snap.CurrentPageID
		s.dark = snap.CanvasDark
	}
	s.syncLocked(&snap.App)
	s.deps.Logger.Debug("preview reset",
		zap.String("project_id", snap.ProjectID),
		zap.String("page_id", s.pageID),
		zap.Uint64("version", snap.Version),
	)
}

// PageID returns the previewed page.
func (s *Session) PageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageID
}

// Dark reports whether the preview renders in dark mode.
func (s *Session) Dark() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dark
}

// Vars returns a copy of the runtime variables.
func (s *Session) Vars() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runtime.Clone().Vars
}

// Toasts drains the pending notifications.
func (s *Session) Toasts() []model.Toast {
	if s.deps.Notifier == nil {
		return nil
	}
	return s.deps.Notifier.Drain()
}

// Render renders the previewed page as HTML.
func (s *Session) Render(_ context.Context) (string, error) {
	snap, ok := s.src.Snapshot()
	if !ok {
		return "", ErrNotLoaded
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	page, env := s.pageLocked(&snap.App)
	el := s.deps.Engine.Render(page.Root, env, &handlers{s: s, app: &snap.App})
	if el == nil {
		el = render.El("div")
	}
	el.Set("data-page-id", page.ID)
	if s.dark {
		el.Class("dark")
	}
	out, err := el.HTML()
	if s.deps.Recorder != nil {
		s.deps.Recorder.RecordPreviewRender(time.Since(start))
	}
	return out, err
}

// Dispatch delivers a user interaction to the previewed page.
func (s *Session) Dispatch(ctx context.Context, ev render.Event) error {
	snap, ok := s.src.Snapshot()
	if !ok {
		return ErrNotLoaded
	}
	s.mu.Lock()
	page, env := s.pageLocked(&snap.App)
	h := &handlers{s: s, app: &snap.App}
	err := s.deps.Engine.Dispatch(ctx, page.Root, env, h, ev)
	target := h.navigateTo
	s.mu.Unlock()

	// The store notifies listeners synchronously, so the switch happens
	// outside the session lock.
	if target != "" {
		s.src.SetCurrentPage(target)
		s.followPage()
	}
	return err
}

func (s *Session) pageLocked(app *model.AppSchema) (model.PageSchema, *render.Env) {
	page, ok := app.PageByID(s.pageID)
	if !ok && len(app.Pages) > 0 {
		page = app.Pages[0]
		s.pageID = page.ID
	}
	return page, &render.Env{App: app, Runtime: s.runtime, PageID: page.ID, Dark: s.dark}
}

// handlers adapts a locked session to render.Handlers and workflow.Host.
type handlers struct {
	s          *Session
	app        *model.AppSchema
	navigateTo string
}

func (h *handlers) Notify(t model.Toast) {
	if h.s.deps.Notifier != nil {
		h.s.deps.Notifier.Notify(t)
	}
}

func (h *handlers) Navigate(pageID string) {
	if _, ok := h.app.PageByID(pageID); ok {
		h.navigateTo = pageID
	}
}

func (h *handlers) ToggleDark() {
	h.s.dark = !h.s.dark
}

func (h *handlers) Submit(ctx context.Context, sub render.Submission) error {
	if h.s.deps.Caller == nil {
		return errors.New("submissions are disabled")
	}
	req := invoker.Request{Source: invoker.SourceForm, Method: sub.Method, URL: sub.URL}
	if sub.Method == http.MethodGet {
		req.URL = withQuery(sub.URL, sub.Fields)
	} else {
		req.Body = sub.Fields
	}
	resp, err := h.s.deps.Caller.Do(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &render.StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func (h *handlers) RunActions(ctx context.Context, n *model.ComponentNode, trigger string) {
	if h.s.deps.Actions == nil {
		return
	}
	scope := workflow.Scope{App: h.app, Runtime: h.s.runtime, Host: (*host)(h)}
	for _, ev := range n.EventsFor(trigger) {
		if err := h.s.deps.Actions.Run(ctx, scope, ev.Actions); err != nil {
			h.s.deps.Logger.Debug("event actions stopped",
				zap.String("node_id", n.ID),
				zap.String("event_id", ev.ID),
				zap.Error(err),
			)
		}
	}
}

// host is the workflow view of handlers.
type host handlers

func (h *host) Notify(t model.Toast) { (*handlers)(h).Notify(t) }

// Navigate accepts a page id or name.
func (h *host) Navigate(target string) bool {
	for _, p := range h.app.Pages {
		if p.ID == target || p.Name == target {
			h.navigateTo = p.ID
			return true
		}
	}
	return false
}

func (h *host) SetOverlay(dialogID string, open bool) {
	h.s.deps.Engine.Instances().SetOverlay(dialogID, open)
}

func withQuery(rawURL string, fields map[string]any) string {
	if len(fields) == 0 {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for k, v := range fields {
		q.Set(k, expression.Stringify(v))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
