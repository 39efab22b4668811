// Package store owns one editable document: its undo/redo history, the
// current selection and page, and every command that changes them.
//
// Commands never return errors. A command that cannot apply (nothing loaded,
// unknown id, rejected move) leaves the store untouched and reports false.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pitabwire/studio/internal/history"
	"github.com/pitabwire/studio/internal/observability"
	"github.com/pitabwire/studio/internal/storage"
	"github.com/pitabwire/studio/model"
)

// Command outcomes reported to the Recorder.
const (
	OutcomeApplied  = "applied"
	OutcomeNoop     = "noop"
	OutcomeUnloaded = "unloaded"
)

// Recorder receives command and persistence measurements.
type Recorder interface {
	RecordStoreCommand(command, outcome string, duration time.Duration)
	RecordAutosave(status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordStoreCommand(string, string, time.Duration) {}
func (nopRecorder) RecordAutosave(string)                            {}

// Event describes a change to the store. Version increases with every
// applied command, undo, redo and load.
type Event struct {
	ProjectID string
	Command   string
	Version   uint64
}

// Options configures a Store.
type Options struct {
	// HistoryLimit bounds the undo stack. Zero keeps every snapshot.
	HistoryLimit int
	Recorder     Recorder
	// NewID generates page ids. Defaults to random UUIDs.
	NewID func() string
}

// Snapshot is a read-only view of the store state.
type Snapshot struct {
	ProjectID     string          `json:"projectId"`
	App           model.AppSchema `json:"app"`
	Selection     []string        `json:"selection"`
	CurrentPageID string          `json:"currentPageId"`
	CanUndo       bool            `json:"canUndo"`
	CanRedo       bool            `json:"canRedo"`
	CanvasDark    bool            `json:"canvasDark"`
	Dirty         bool            `json:"dirty"`
	Version       uint64          `json:"version"`
}

// Store holds a single document. All methods are safe for concurrent use;
// commands are serialized and the present document is replaced, never
// mutated.
type Store struct {
	kv       storage.KV
	logger   *zap.Logger
	recorder Recorder
	limit    int
	newID    func() string

	mu            sync.Mutex
	projectID     string
	hist          *history.State[model.AppSchema]
	selection     []string
	currentPageID string
	canvasDark    bool
	dirty         bool
	version       uint64
	listeners     map[int]func(Event)
	nextListener  int
}

// New creates an unloaded store that persists through kv.
func New(kv storage.KV, logger *zap.Logger, opts Options) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Store{
		kv:        kv,
		logger:    logger,
		recorder:  opts.Recorder,
		limit:     opts.HistoryLimit,
		newID:     opts.NewID,
		listeners: make(map[int]func(Event)),
	}
}

// Load reads the document for projectID. An absent document is replaced by
// the default one. A document that cannot be decoded fails the load and the
// store keeps its previous state.
func (s *Store) Load(ctx context.Context, projectID string) (err error) {
	ctx, span := observability.StartSpan(ctx, "store.load",
		observability.AttrProjectID.String(projectID))
	defer func() { observability.EndSpanWithError(span, err) }()

	raw, found, err := s.kv.Get(ctx, storage.AppKey(projectID))
	if err != nil {
		return fmt.Errorf("store: read %s: %w", storage.AppKey(projectID), err)
	}

	var app model.AppSchema
	synthesized := false
	if found {
		if err := json.Unmarshal([]byte(raw), &app); err != nil {
			s.logger.Error("stored document is corrupt",
				zap.String("project_id", projectID), zap.Error(err))
			return fmt.Errorf("store: decode %s: %w: %w",
				storage.AppKey(projectID), model.NewDocumentCorruptError(projectID), err)
		}
		normalize(&app, projectID, s.newID)
	} else {
		app = DefaultApp(projectID, s.newID)
		synthesized = true
	}

	dark, _, err := s.kv.Get(ctx, storage.CanvasDarkKey(projectID))
	if err != nil {
		return fmt.Errorf("store: read %s: %w", storage.CanvasDarkKey(projectID), err)
	}

	s.mu.Lock()
	h := history.New(app)
	s.projectID = projectID
	s.hist = &h
	s.selection = nil
	s.currentPageID = app.Pages[0].ID
	s.canvasDark = dark == "1"
	s.dirty = synthesized
	s.version++
	ev := Event{ProjectID: projectID, Command: "load", Version: s.version}
	listeners := s.listenerList()
	s.mu.Unlock()

	s.logger.Info("document loaded",
		zap.String("project_id", projectID),
		zap.Bool("synthesized", synthesized),
		zap.Int("pages", len(app.Pages)),
	)
	notify(listeners, ev)
	return nil
}

// Save writes the present document to storage and clears the dirty flag.
func (s *Store) Save(ctx context.Context) (err error) {
	s.mu.Lock()
	if s.hist == nil {
		s.mu.Unlock()
		return model.NewProjectNotOpenError("")
	}
	projectID := s.projectID
	app := s.hist.Present
	version := s.version
	s.mu.Unlock()

	ctx, span := observability.StartSpan(ctx, "store.save",
		observability.AttrProjectID.String(projectID))
	defer func() { observability.EndSpanWithError(span, err) }()

	data, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", projectID, err)
	}
	if err := s.kv.Set(ctx, storage.AppKey(projectID), string(data)); err != nil {
		return fmt.Errorf("store: write %s: %w", storage.AppKey(projectID), err)
	}

	s.mu.Lock()
	// A command that landed during the write keeps the store dirty.
	if s.projectID == projectID && s.version == version {
		s.dirty = false
	}
	s.mu.Unlock()

	s.logger.Debug("document saved", zap.String("project_id", projectID), zap.Int("bytes", len(data)))
	return nil
}

// SetCanvasDark persists the canvas dark-mode preference.
func (s *Store) SetCanvasDark(ctx context.Context, dark bool) error {
	s.mu.Lock()
	if s.hist == nil {
		s.mu.Unlock()
		return model.NewProjectNotOpenError("")
	}
	projectID := s.projectID
	s.mu.Unlock()

	value := "0"
	if dark {
		value = "1"
	}
	if err := s.kv.Set(ctx, storage.CanvasDarkKey(projectID), value); err != nil {
		return fmt.Errorf("store: write %s: %w", storage.CanvasDarkKey(projectID), err)
	}

	s.mu.Lock()
	if s.projectID == projectID {
		s.canvasDark = dark
	}
	s.mu.Unlock()
	return nil
}

// ListProjects returns the ids of every persisted document.
func (s *Store) ListProjects(ctx context.Context) ([]string, error) {
	return ListProjects(ctx, s.kv)
}

// ListProjects returns the ids of every document persisted in kv.
func ListProjects(ctx context.Context, kv storage.KV) ([]string, error) {
	keys, err := kv.List(ctx, storage.AppPrefix)
	if err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if id, ok := storage.ProjectID(k); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Loaded reports whether a document is loaded.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist != nil
}

// Dirty reports whether the present document has unsaved changes.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// ProjectID returns the loaded project id, or "" when unloaded.
func (s *Store) ProjectID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectID
}

// Present returns the current document.
func (s *Store) Present() (model.AppSchema, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hist == nil {
		return model.AppSchema{}, false
	}
	return s.hist.Present, true
}

// Snapshot returns a read-only view of the store.
func (s *Store) Snapshot() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hist == nil {
		return Snapshot{}, false
	}
	return Snapshot{
		ProjectID:     s.projectID,
		App:           s.hist.Present,
		Selection:     append([]string{}, s.selection...),
		CurrentPageID: s.currentPageID,
		CanUndo:       history.CanUndo(*s.hist),
		CanRedo:       history.CanRedo(*s.hist),
		CanvasDark:    s.canvasDark,
		Dirty:         s.dirty,
		Version:       s.version,
	}, true
}

// Selection returns the selected node ids.
func (s *Store) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selection...)
}

// CurrentPage returns the page being edited.
func (s *Store) CurrentPage() (model.PageSchema, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hist == nil {
		return model.PageSchema{}, false
	}
	return s.hist.Present.PageByID(s.currentPageID)
}

// Subscribe registers fn to be called after every change. Listeners run
// outside the store lock and may read the store. The returned function
// removes the listener.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// listenerList must be called with s.mu held.
func (s *Store) listenerList() []func(Event) {
	out := make([]func(Event), 0, len(s.listeners))
	for i := 0; i < s.nextListener; i++ {
		if fn, ok := s.listeners[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func notify(listeners []func(Event), ev Event) {
	for _, fn := range listeners {
		fn(ev)
	}
}

// apply runs fn against the present document under the store lock and, when
// fn reports a change, pushes its result onto the history.
func (s *Store) apply(command string, fn func(app model.AppSchema) (model.AppSchema, bool)) bool {
	start := time.Now()

	s.mu.Lock()
	if s.hist == nil {
		s.mu.Unlock()
		s.recorder.RecordStoreCommand(command, OutcomeUnloaded, time.Since(start))
		s.logger.Warn("command ignored: no document loaded", zap.String("command", command))
		return false
	}

	next, changed := fn(s.hist.Present)
	if !changed {
		projectID := s.projectID
		s.mu.Unlock()
		s.recorder.RecordStoreCommand(command, OutcomeNoop, time.Since(start))
		s.logger.Debug("command was a no-op",
			zap.String("command", command), zap.String("project_id", projectID))
		return false
	}

	h := history.Trim(history.Push(*s.hist, next), s.limit)
	s.hist = &h
	ev := s.changedLocked(command)
	listeners := s.listenerList()
	s.mu.Unlock()

	s.recorder.RecordStoreCommand(command, OutcomeApplied, time.Since(start))
	s.logger.Debug("command applied",
		zap.String("command", command),
		zap.String("project_id", ev.ProjectID),
		zap.Uint64("version", ev.Version),
	)
	notify(listeners, ev)
	return true
}

// changedLocked marks the document dirty and returns the change event. It
// must be called with s.mu held.
func (s *Store) changedLocked(command string) Event {
	s.dirty = true
	s.version++
	// The current page may have disappeared through undo or redo.
	if _, ok := s.hist.Present.PageByID(s.currentPageID); !ok && len(s.hist.Present.Pages) > 0 {
		s.currentPageID = s.hist.Present.Pages[0].ID
	}
	return Event{ProjectID: s.projectID, Command: command, Version: s.version}
}
