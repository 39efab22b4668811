package tree

import (
	"strconv"

	"github.com/pitabwire/studio/model"
)

// CollectIDs returns the set of every node id across the given pages.
func CollectIDs(pages []model.PageSchema) map[string]bool {
	used := make(map[string]bool)
	for _, p := range pages {
		Walk(p.Root, func(n *model.ComponentNode, _ int) bool {
			used[n.ID] = true
			return true
		})
	}
	return used
}

// NextID returns "<type>-<n>" for the smallest positive n not in used.
func NextID(nodeType string, used map[string]bool) string {
	for i := 1; ; i++ {
		id := nodeType + "-" + strconv.Itoa(i)
		if !used[id] {
			return id
		}
	}
}

// Allocator issues ids that are unique against a starting set and against
// every id it has already issued.
type Allocator struct {
	used map[string]bool
}

// NewAllocator creates an Allocator seeded with the ids of the given pages.
func NewAllocator(pages []model.PageSchema) *Allocator {
	return &Allocator{used: CollectIDs(pages)}
}

// Next reserves and returns a fresh id for the type.
func (a *Allocator) Next(nodeType string) string {
	id := NextID(nodeType, a.used)
	a.used[id] = true
	return id
}

// Reserve marks id as taken.
func (a *Allocator) Reserve(id string) {
	a.used[id] = true
}

// Taken reports whether id is already in use.
func (a *Allocator) Taken(id string) bool {
	return a.used[id]
}
