package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pitabwire/studio/internal/storage"
)

// Autosave statuses reported to the Recorder.
const (
	AutosaveSaved  = "saved"
	AutosaveFailed = "failed"
)

// Workspace opens one Store per project on demand. Each document still has a
// single writer: every command for a project goes through its Store.
type Workspace struct {
	kv     storage.KV
	logger *zap.Logger
	opts   Options

	mu     sync.Mutex
	stores map[string]*Store
	// hooks run for every store the workspace creates.
	hooks []func(projectID string, s *Store)
}

// NewWorkspace creates an empty workspace over kv.
func NewWorkspace(kv storage.KV, logger *zap.Logger, opts Options) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &Workspace{
		kv:     kv,
		logger: logger,
		opts:   opts,
		stores: make(map[string]*Store),
	}
}

// OnOpen registers fn to run each time a project is opened for the first
// time.
func (w *Workspace) OnOpen(fn func(projectID string, s *Store)) {
	w.mu.Lock()
	w.hooks = append(w.hooks, fn)
	w.mu.Unlock()
}

// Open returns the store for projectID, loading the document on first use.
func (w *Workspace) Open(ctx context.Context, projectID string) (*Store, error) {
	w.mu.Lock()
	if s, ok := w.stores[projectID]; ok {
		w.mu.Unlock()
		return s, nil
	}
	w.mu.Unlock()

	s := New(w.kv, w.logger.With(zap.String("project_id", projectID)), w.opts)
	if err := s.Load(ctx, projectID); err != nil {
		return nil, err
	}

	w.mu.Lock()
	if existing, ok := w.stores[projectID]; ok {
		// Lost a race with another opener; keep the first store.
		w.mu.Unlock()
		return existing, nil
	}
	w.stores[projectID] = s
	hooks := append([]func(string, *Store){}, w.hooks...)
	open := len(w.stores)
	w.mu.Unlock()

	if r, ok := w.opts.Recorder.(interface{ SetOpenDocuments(float64) }); ok {
		r.SetOpenDocuments(float64(open))
	}
	for _, fn := range hooks {
		fn(projectID, s)
	}
	return s, nil
}

// Get returns the store for an already opened project.
func (w *Workspace) Get(projectID string) (*Store, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.stores[projectID]
	return s, ok
}

// Opened returns the ids of every open project in ascending order.
func (w *Workspace) Opened() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.stores))
	for id := range w.stores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ListProjects returns the ids of every persisted document.
func (w *Workspace) ListProjects(ctx context.Context) ([]string, error) {
	return ListProjects(ctx, w.kv)
}

// SaveDirty saves every open store with unsaved changes. Failures are
// logged and counted; they do not stop the remaining saves.
func (w *Workspace) SaveDirty(ctx context.Context) (saved, failed int) {
	for _, id := range w.Opened() {
		s, ok := w.Get(id)
		if !ok || !s.Dirty() {
			continue
		}
		if err := s.Save(ctx); err != nil {
			failed++
			w.opts.Recorder.RecordAutosave(AutosaveFailed)
			w.logger.Error("autosave failed", zap.String("project_id", id), zap.Error(err))
			continue
		}
		saved++
		w.opts.Recorder.RecordAutosave(AutosaveSaved)
	}
	return saved, failed
}

// RunAutosave saves dirty documents every interval until ctx is cancelled,
// then makes one final pass. Failed writes are not retried before the next
// tick.
func (w *Workspace) RunAutosave(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 800 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// The parent context is gone; flush with a short deadline of our own.
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.SaveDirty(flushCtx)
			cancel()
			return
		case <-ticker.C:
			w.SaveDirty(ctx)
		}
	}
}
