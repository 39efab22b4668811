// Package tree provides non-destructive structural operations over
// component node trees. No function mutates its input: changed nodes and
// their ancestors are shallow-copied and untouched subtrees are shared.
package tree

import "github.com/pitabwire/studio/model"

// Find returns the first node with the given id in depth-first pre-order.
func Find(root *model.ComponentNode, id string) (*model.ComponentNode, bool) {
	if root == nil {
		return nil, false
	}
	if root.ID == id {
		return root, true
	}
	for _, c := range root.Children {
		if n, ok := Find(c, id); ok {
			return n, true
		}
	}
	return nil, false
}

// Update returns a tree in which the node with the given id has been replaced
// by a shallow copy passed through mutate. Every ancestor on the path is
// copied; siblings off the path are shared with root. When id is absent the
// original root is returned.
func Update(root *model.ComponentNode, id string, mutate func(*model.ComponentNode)) *model.ComponentNode {
	out, _ := update(root, id, mutate)
	return out
}

func update(n *model.ComponentNode, id string, mutate func(*model.ComponentNode)) (*model.ComponentNode, bool) {
	if n == nil {
		return nil, false
	}
	if n.ID == id {
		c := n.ShallowCopy()
		mutate(c)
		return c, true
	}
	var children []*model.ComponentNode
	changed := false
	for i, child := range n.Children {
		nc, ok := update(child, id, mutate)
		if !ok {
			continue
		}
		if !changed {
			children = append([]*model.ComponentNode(nil), n.Children...)
			changed = true
		}
		children[i] = nc
	}
	if !changed {
		return n, false
	}
	c := *n
	c.Children = children
	return &c, true
}

// Remove returns a tree with every node carrying the given id excised from
// its parent, at any depth.
func Remove(root *model.ComponentNode, id string) *model.ComponentNode {
	out, _ := remove(root, id)
	return out
}

func remove(n *model.ComponentNode, id string) (*model.ComponentNode, bool) {
	if n == nil || len(n.Children) == 0 {
		return n, false
	}
	kept := make([]*model.ComponentNode, 0, len(n.Children))
	changed := false
	for _, child := range n.Children {
		if child.ID == id {
			changed = true
			continue
		}
		nc, ok := remove(child, id)
		if ok {
			changed = true
		}
		kept = append(kept, nc)
	}
	if !changed {
		return n, false
	}
	c := *n
	c.Children = kept
	return &c, true
}

// IsDescendant reports whether targetID lies within the subtree rooted at
// ancestorID. A node counts as its own descendant, which is what rejects
// self-parenting moves.
func IsDescendant(root *model.ComponentNode, ancestorID, targetID string) bool {
	ancestor, ok := Find(root, ancestorID)
	if !ok {
		return false
	}
	_, ok = Find(ancestor, targetID)
	return ok
}

// Detach removes the first node with the given id and returns it alongside
// the new root. When the node is absent, found is false and root is returned
// as is.
func Detach(root *model.ComponentNode, id string) (newRoot, node *model.ComponentNode, found bool) {
	if root == nil || len(root.Children) == 0 {
		return root, nil, false
	}
	for i, child := range root.Children {
		if child.ID == id {
			c := *root
			c.Children = make([]*model.ComponentNode, 0, len(root.Children)-1)
			c.Children = append(c.Children, root.Children[:i]...)
			c.Children = append(c.Children, root.Children[i+1:]...)
			return &c, child, true
		}
		sub, detached, ok := Detach(child, id)
		if ok {
			c := *root
			c.Children = append([]*model.ComponentNode(nil), root.Children...)
			c.Children[i] = sub
			return &c, detached, true
		}
	}
	return root, nil, false
}

// InsertAt adds node as a child of parentID. A nil index, or one outside
// [0, len(children)], appends at the end.
func InsertAt(root *model.ComponentNode, parentID string, node *model.ComponentNode, index *int) *model.ComponentNode {
	return Update(root, parentID, func(p *model.ComponentNode) {
		at := len(p.Children)
		if index != nil && *index >= 0 && *index <= len(p.Children) {
			at = *index
		}
		children := make([]*model.ComponentNode, 0, len(p.Children)+1)
		children = append(children, p.Children[:at]...)
		children = append(children, node)
		children = append(children, p.Children[at:]...)
		p.Children = children
	})
}

// Walk visits every node in depth-first pre-order. Returning false from fn
// skips the node's children.
func Walk(root *model.ComponentNode, fn func(n *model.ComponentNode, depth int) bool) {
	walk(root, 0, fn)
}

func walk(n *model.ComponentNode, depth int, fn func(*model.ComponentNode, int) bool) {
	if n == nil {
		return
	}
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		walk(c, depth+1, fn)
	}
}

// Count returns the number of nodes in the tree.
func Count(root *model.ComponentNode) int {
	total := 0
	Walk(root, func(*model.ComponentNode, int) bool {
		total++
		return true
	})
	return total
}

// Index returns a pointer to i, for use as an InsertAt index.
func Index(i int) *int { return &i }

// Clone returns a deep copy of the subtree rooted at n.
func Clone(n *model.ComponentNode) *model.ComponentNode {
	if n == nil {
		return nil
	}
	c := n.ShallowCopy()
	if n.Layout != nil {
		l := *n.Layout
		c.Layout = &l
	}
	if n.Events != nil {
		c.Events = append([]model.ComponentEvent(nil), n.Events...)
	}
	for i, child := range c.Children {
		c.Children[i] = Clone(child)
	}
	return c
}
