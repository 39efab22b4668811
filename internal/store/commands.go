package store

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pitabwire/studio/internal/history"
	"github.com/pitabwire/studio/internal/tree"
	"github.com/pitabwire/studio/model"
)

// UpdateApp merges patch into the document root fields.
func (s *Store) UpdateApp(patch model.AppPatch) bool {
	return s.apply("update_app", func(app model.AppSchema) (model.AppSchema, bool) {
		if len(patch.Pages) > 0 && !validPages(patch.Pages) {
			return app, false
		}
		return patch.Apply(app), true
	})
}

// AddNode inserts node as the last child of parentID. An empty or duplicate
// id, on the node or anywhere in its subtree, is replaced by a generated one.
// It returns the id the node was stored under.
func (s *Store) AddNode(parentID string, node *model.ComponentNode) (string, bool) {
	if node == nil || node.Type == "" {
		return "", false
	}
	var added string
	ok := s.apply("add_node", func(app model.AppSchema) (model.AppSchema, bool) {
		if !containsNode(app.Pages, parentID) {
			return app, false
		}
		alloc := tree.NewAllocator(app.Pages)
		n := tree.Clone(node)
		assignIDs(n, alloc)
		if n.Props == nil {
			n.Props = model.Props{}
		}
		added = n.ID

		pages := clonePages(app.Pages)
		for i := range pages {
			pages[i].Root = tree.InsertAt(pages[i].Root, parentID, n, nil)
		}
		app.Pages = pages
		return app, true
	})
	return added, ok
}

// RemoveNode removes the node from every page. Page roots cannot be removed.
func (s *Store) RemoveNode(id string) bool {
	return s.apply("remove_node", func(app model.AppSchema) (model.AppSchema, bool) {
		if !containsNode(app.Pages, id) || isPageRoot(app.Pages, id) {
			return app, false
		}
		pages := clonePages(app.Pages)
		for i := range pages {
			pages[i].Root = tree.Remove(pages[i].Root, id)
		}
		app.Pages = pages
		return app, true
	})
}

// MoveNode reparents id under newParentID at index, or at the end when index
// is nil. Moves onto itself, into its own subtree, or of unknown nodes are
// rejected. Only the first page is considered.
func (s *Store) MoveNode(id, newParentID string, index *int) bool {
	return s.apply("move_node", func(app model.AppSchema) (model.AppSchema, bool) {
		if id == newParentID || len(app.Pages) == 0 {
			return app, false
		}
		root := app.Pages[0].Root
		if tree.IsDescendant(root, id, newParentID) {
			return app, false
		}
		if _, ok := tree.Find(root, newParentID); !ok {
			return app, false
		}
		detached, node, found := tree.Detach(root, id)
		if !found {
			return app, false
		}
		pages := clonePages(app.Pages)
		pages[0].Root = tree.InsertAt(detached, newParentID, node, index)
		app.Pages = pages
		return app, true
	})
}

// UpdateProps shallow-merges partial into the node's props.
func (s *Store) UpdateProps(id string, partial map[string]any) bool {
	return s.apply("update_props", func(app model.AppSchema) (model.AppSchema, bool) {
		return updateNode(app, id, func(n *model.ComponentNode) {
			n.Props = n.Props.Merge(partial)
		})
	})
}

// UpdateBindings shallow-merges partial into the node's bindings.
func (s *Store) UpdateBindings(id string, partial map[string]string) bool {
	return s.apply("update_bindings", func(app model.AppSchema) (model.AppSchema, bool) {
		return updateNode(app, id, func(n *model.ComponentNode) {
			if n.Bindings == nil {
				n.Bindings = make(map[string]string, len(partial))
			}
			for k, v := range partial {
				n.Bindings[k] = v
			}
		})
	})
}

// AddPage appends page and makes it the current page. Missing ids and roots
// are filled in.
func (s *Store) AddPage(page model.PageSchema) (string, bool) {
	var added string
	ok := s.apply("add_page", func(app model.AppSchema) (model.AppSchema, bool) {
		if page.ID == "" {
			page.ID = s.newID()
		}
		if _, exists := app.PageByID(page.ID); exists {
			return app, false
		}
		if page.Name == "" {
			page.Name = "Page " + strconv.Itoa(len(app.Pages)+1)
		}
		alloc := tree.NewAllocator(app.Pages)
		if page.Root == nil {
			page.Root = &model.ComponentNode{ID: alloc.Next(model.TypeRoot), Type: model.TypeRoot, Props: model.Props{}}
		} else {
			page.Root = tree.Clone(page.Root)
			assignIDs(page.Root, alloc)
		}
		app.Pages = append(clonePages(app.Pages), page)
		added = page.ID
		s.currentPageID = page.ID
		return app, true
	})
	return added, ok
}

// RemovePage removes a page. The last remaining page cannot be removed.
func (s *Store) RemovePage(pageID string) bool {
	return s.apply("remove_page", func(app model.AppSchema) (model.AppSchema, bool) {
		if len(app.Pages) <= 1 {
			return app, false
		}
		pages := make([]model.PageSchema, 0, len(app.Pages)-1)
		for _, p := range app.Pages {
			if p.ID != pageID {
				pages = append(pages, p)
			}
		}
		if len(pages) == len(app.Pages) {
			return app, false
		}
		app.Pages = pages
		return app, true
	})
}

// AddVariable appends a variable definition.
func (s *Store) AddVariable(v model.VariableDef) bool {
	return s.apply("add_variable", func(app model.AppSchema) (model.AppSchema, bool) {
		if v.Name == "" {
			return app, false
		}
		if v.ID == "" {
			v.ID = s.newID()
		}
		if v.Scope == "" {
			v.Scope = model.ScopeApp
		}
		app.Variables = append(append([]model.VariableDef(nil), app.Variables...), v)
		return app, true
	})
}

// AddDataSource appends a data source.
func (s *Store) AddDataSource(ds model.DataSource) bool {
	return s.apply("add_data_source", func(app model.AppSchema) (model.AppSchema, bool) {
		if ds.Name == "" && ds.ID == "" {
			return app, false
		}
		if ds.ID == "" {
			ds.ID = s.newID()
		}
		if ds.Kind == "" {
			ds.Kind = model.DataSourceREST
		}
		app.DataSources = append(append([]model.DataSource(nil), app.DataSources...), ds)
		return app, true
	})
}

// SeedSample replaces the current page's content with a demonstration
// subtree and replaces variables and data sources wholesale.
func (s *Store) SeedSample() bool {
	return s.apply("seed_sample", func(app model.AppSchema) (model.AppSchema, bool) {
		idx := pageIndex(app.Pages, s.currentPageID)
		if idx < 0 {
			return app, false
		}
		alloc := tree.NewAllocator(app.Pages)

		pages := clonePages(app.Pages)
		root := app.Pages[idx].Root.ShallowCopy()
		root.Children = []*model.ComponentNode{SampleCard(alloc)}
		pages[idx].Root = root
		app.Pages = pages
		app.Variables = SampleVariables(s.newID)
		app.DataSources = SampleDataSources(s.newID)
		return app, true
	})
}

// Undo restores the previous snapshot. It is never itself recorded.
func (s *Store) Undo() bool {
	return s.travel("undo", history.CanUndo[model.AppSchema], history.Undo[model.AppSchema])
}

// Redo re-applies the next snapshot. It is never itself recorded.
func (s *Store) Redo() bool {
	return s.travel("redo", history.CanRedo[model.AppSchema], history.Redo[model.AppSchema])
}

func (s *Store) travel(command string, can func(history.State[model.AppSchema]) bool, step func(history.State[model.AppSchema]) history.State[model.AppSchema]) bool {
	start := time.Now()
	s.mu.Lock()
	if s.hist == nil || !can(*s.hist) {
		outcome := OutcomeNoop
		if s.hist == nil {
			outcome = OutcomeUnloaded
		}
		s.mu.Unlock()
		s.recorder.RecordStoreCommand(command, outcome, time.Since(start))
		return false
	}
	h := step(*s.hist)
	s.hist = &h
	ev := s.changedLocked(command)
	listeners := s.listenerList()
	s.mu.Unlock()

	s.recorder.RecordStoreCommand(command, OutcomeApplied, time.Since(start))
	s.logger.Debug("history moved", zap.String("command", command), zap.Uint64("version", ev.Version))
	notify(listeners, ev)
	return true
}

// SetSelection replaces the selected node ids. Selection is not recorded in
// history.
func (s *Store) SetSelection(ids []string) {
	s.mu.Lock()
	s.selection = append([]string(nil), ids...)
	s.mu.Unlock()
}

// SetCurrentPage switches the page being edited. Unknown pages are ignored.
func (s *Store) SetCurrentPage(pageID string) bool {
	s.mu.Lock()
	if s.hist == nil {
		s.mu.Unlock()
		return false
	}
	if _, ok := s.hist.Present.PageByID(pageID); !ok {
		s.mu.Unlock()
		return false
	}
	changed := s.currentPageID != pageID
	s.currentPageID = pageID
	s.version++
	ev := Event{ProjectID: s.projectID, Command: "set_current_page", Version: s.version}
	listeners := s.listenerList()
	s.mu.Unlock()
	if changed {
		notify(listeners, ev)
	}
	return true
}

// GenerateID returns a node id for nodeType that is unused across every
// page of the present document.
func (s *Store) GenerateID(nodeType string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hist == nil {
		return tree.NextID(nodeType, nil)
	}
	return tree.NextID(nodeType, tree.CollectIDs(s.hist.Present.Pages))
}

// NodeByID finds a node on the current page.
func (s *Store) NodeByID(id string) (*model.ComponentNode, bool) {
	page, ok := s.CurrentPage()
	if !ok {
		return nil, false
	}
	return tree.Find(page.Root, id)
}

// RootID returns the root node id of the current page.
func (s *Store) RootID() (string, bool) {
	page, ok := s.CurrentPage()
	if !ok || page.Root == nil {
		return "", false
	}
	return page.Root.ID, true
}

func updateNode(app model.AppSchema, id string, mutate func(*model.ComponentNode)) (model.AppSchema, bool) {
	if !containsNode(app.Pages, id) {
		return app, false
	}
	pages := clonePages(app.Pages)
	for i := range pages {
		pages[i].Root = tree.Update(pages[i].Root, id, mutate)
	}
	app.Pages = pages
	return app, true
}

// assignIDs replaces empty or taken ids in the subtree and reserves the
// resulting ids.
func assignIDs(n *model.ComponentNode, alloc *tree.Allocator) {
	tree.Walk(n, func(c *model.ComponentNode, _ int) bool {
		if c.ID == "" || alloc.Taken(c.ID) {
			c.ID = alloc.Next(c.Type)
		} else {
			alloc.Reserve(c.ID)
		}
		return true
	})
}

// validPages reports whether every page has a Root and whether page ids and
// node ids are unique across the document.
func validPages(pages []model.PageSchema) bool {
	pageIDs := make(map[string]bool, len(pages))
	nodeIDs := make(map[string]bool)
	for _, p := range pages {
		if p.ID == "" || pageIDs[p.ID] || p.Root == nil || p.Root.Type != model.TypeRoot {
			return false
		}
		pageIDs[p.ID] = true
		unique := true
		tree.Walk(p.Root, func(n *model.ComponentNode, _ int) bool {
			if n.ID == "" || nodeIDs[n.ID] {
				unique = false
				return false
			}
			nodeIDs[n.ID] = true
			return true
		})
		if !unique {
			return false
		}
	}
	return true
}

func clonePages(pages []model.PageSchema) []model.PageSchema {
	return append([]model.PageSchema(nil), pages...)
}

func containsNode(pages []model.PageSchema, id string) bool {
	for _, p := range pages {
		if _, ok := tree.Find(p.Root, id); ok {
			return true
		}
	}
	return false
}

func isPageRoot(pages []model.PageSchema, id string) bool {
	for _, p := range pages {
		if p.Root != nil && p.Root.ID == id {
			return true
		}
	}
	return false
}

func pageIndex(pages []model.PageSchema, id string) int {
	for i, p := range pages {
		if p.ID == id {
			return i
		}
	}
	return -1
}
