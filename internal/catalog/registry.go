package catalog

import (
	"sync/atomic"

	"github.com/pitabwire/studio/model"
)

// snapshot is an immutable view of one loaded catalog.
type snapshot struct {
	items      []Item
	byType     map[string]int
	categories []string
	checksum   string
	source     string
}

// Registry serves catalog lookups. Reads are lock-free; Replace swaps the
// whole snapshot atomically.
type Registry struct {
	snap atomic.Pointer[snapshot]
}

// NewRegistry creates a Registry from a loaded catalog file.
func NewRegistry(f File) *Registry {
	r := &Registry{}
	r.Replace(f)
	return r
}

// Replace atomically swaps the registry contents.
func (r *Registry) Replace(f File) {
	s := &snapshot{
		items:    append([]Item(nil), f.Items...),
		byType:   make(map[string]int, len(f.Items)),
		checksum: f.Checksum,
		source:   f.Source,
	}
	seen := make(map[string]bool)
	for i, it := range s.items {
		s.byType[it.Type] = i
		if !seen[it.Category] {
			seen[it.Category] = true
			s.categories = append(s.categories, it.Category)
		}
	}
	r.snap.Store(s)
}

func (r *Registry) current() *snapshot {
	return r.snap.Load()
}

// Items returns the palette entries in catalog order.
func (r *Registry) Items() []Item {
	s := r.current()
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		it.Defaults = cloneDefaults(it.Defaults)
		out[i] = it
	}
	return out
}

// Categories returns the distinct category names in order of first use.
func (r *Registry) Categories() []string {
	return append([]string(nil), r.current().categories...)
}

// Get returns the entry for a node type.
func (r *Registry) Get(nodeType string) (Item, bool) {
	s := r.current()
	i, ok := s.byType[nodeType]
	if !ok {
		return Item{}, false
	}
	it := s.items[i]
	it.Defaults = cloneDefaults(it.Defaults)
	return it, true
}

// Defaults returns a private copy of the default props for a node type.
// Unknown types get an empty map.
func (r *Registry) Defaults(nodeType string) model.Props {
	s := r.current()
	i, ok := s.byType[nodeType]
	if !ok {
		return model.Props{}
	}
	return cloneDefaults(s.items[i].Defaults)
}

// InCategory returns the entries of one category in catalog order.
func (r *Registry) InCategory(category string) []Item {
	var out []Item
	for _, it := range r.Items() {
		if it.Category == category {
			out = append(out, it)
		}
	}
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.current().items)
}

// Checksum returns the checksum of the loaded catalog.
func (r *Registry) Checksum() string {
	return r.current().checksum
}

// Source names where the loaded catalog came from.
func (r *Registry) Source() string {
	return r.current().source
}
